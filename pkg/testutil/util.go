package testutil

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/referlab/backend/config"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/pkg/jwt"
	"github.com/referlab/backend/pkg/logger"
	"github.com/referlab/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	cfg := config.Configs{
		ApiServer: config.ServerConfigs{
			MaxLimit:     50,
			DefaultLimit: 10,
		},
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
		},
		Referral: config.ReferralConfigs{
			CodePrefix:        "REF-",
			CodeSuffixLen:     8,
			MaxCodeAttempts:   10,
			CodeExpiration:    365 * 24 * time.Hour,
			CodeCacheTTL:      5 * time.Minute,
			BaseReward:        10,
			RewardCurrency:    "USDT",
			RewardExpiration:  90 * 24 * time.Hour,
			MaxChainDepth:     3,
			CooldownWindow:    30 * 24 * time.Hour,
			ExpireAfter:       30 * 24 * time.Hour,
			AnalyticsCacheTTL: 10 * time.Minute,
			ClickTTL:          24 * time.Hour,
		},
		Job: config.JobConfigs{
			MaxAttempts:    3,
			RetryBackoff:   time.Millisecond,
			HandlerTimeout: time.Minute,
		},
	}

	node, err := snowflake.NewNode(0)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithTokenEngine(ctx,
		jwt.NewEngine[model.AccessToken](cfg.Auth.TokenSecret, cfg.Auth.AccessToken.Expiration))
	ctx = xcontext.WithSnowFlake(ctx, node)
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}
