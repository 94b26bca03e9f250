package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/referlab/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc may derive a new context (e.g. attach the authenticated
// user); returning an error aborts the request with an error envelope.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the handler, regardless of its outcome.
type CloserFunc func(ctx context.Context, req *http.Request, err error)

// Router routes requests onto typed handlers. The base context carries the
// process-wide dependencies (configs, logger, database, token engine) and
// every request context falls back to it for value lookups.
type Router struct {
	Inner gin.IRouter

	baseCtx context.Context
	engine  *gin.Engine
	closers []CloserFunc
}

func New(ctx context.Context) *Router {
	if xcontext.Configs(ctx).Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		Inner:   engine,
		engine:  engine,
		baseCtx: ctx,
	}
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.GET(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.POST(pattern, wrapHandler(r, http.MethodPost, handler))
}

// Before registers a middleware on this router and every route added after
// the call.
func (r *Router) Before(middleware MiddlewareFunc) {
	r.Inner.Use(wrapMiddleware(r, middleware))
}

func (r *Router) AddCloser(closer CloserFunc) {
	r.closers = append(r.closers, closer)
}

// Branch returns a router sharing the underlying route table but with an
// independent middleware chain.
func (r *Router) Branch() *Router {
	return &Router{
		Inner:   r.Inner.Group(""),
		engine:  r.engine,
		baseCtx: r.baseCtx,
		closers: r.closers,
	}
}

func (r *Router) Static(relativePath, root string) {
	r.Inner.Static(relativePath, root)
}

func (r *Router) Handler() http.Handler {
	return r.engine
}
