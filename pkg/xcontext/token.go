package xcontext

import (
	"context"

	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/pkg/jwt"
)

func WithTokenEngine(ctx context.Context, engine *jwt.Engine[model.AccessToken]) context.Context {
	return context.WithValue(ctx, tokenEngineKey{}, engine)
}

func TokenEngine(ctx context.Context) *jwt.Engine[model.AccessToken] {
	engine, ok := ctx.Value(tokenEngineKey{}).(*jwt.Engine[model.AccessToken])
	if !ok {
		panic("no token engine in context")
	}

	return engine
}
