package main

import (
	"fmt"
	"net/http"

	"github.com/referlab/backend/internal/middleware"
	"github.com/referlab/backend/pkg/router"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadTokenEngine()
	s.loadRedis()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting api server on port %s", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.AddCloser(middleware.Logger())

	// Public API
	publicRouter := s.router.Branch()
	optionalVerifier := middleware.NewAuthVerifier().WithOptional()
	publicRouter.Before(optionalVerifier.Middleware())
	{
		router.GET(publicRouter, "/validateCode", s.referralCodeDomain.Validate)
		router.POST(publicRouter, "/trackClick", s.referralDomain.TrackClick)
		router.GET(publicRouter, "/getLeaderboard", s.statisticDomain.GetLeaderboard)
	}

	// These following APIs need authentication.
	authRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier()
	authRouter.Before(authVerifier.Middleware())
	{
		// Referral code API
		router.POST(authRouter, "/issueCode", s.referralCodeDomain.Issue)
		router.POST(authRouter, "/consumeCode", s.referralCodeDomain.Consume)
		router.GET(authRouter, "/getMyCodes", s.referralCodeDomain.GetMyCodes)

		// Referral API
		router.POST(authRouter, "/confirmReferralEvent", s.referralDomain.ConfirmEvent)
		router.GET(authRouter, "/getMyReferrals", s.referralDomain.GetMyReferrals)
		router.GET(authRouter, "/getReferralStats", s.referralDomain.GetStats)

		// Reward API
		router.POST(authRouter, "/claimReward", s.rewardDomain.Claim)
		router.GET(authRouter, "/getMyRewards", s.rewardDomain.GetMyRewards)
		router.POST(authRouter, "/approveReward", s.rewardDomain.Approve)
		router.POST(authRouter, "/markRewardPaid", s.rewardDomain.MarkPaid)
	}
}
