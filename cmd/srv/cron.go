package main

import (
	"github.com/referlab/backend/internal/domain/cron"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	manager := cron.NewCronJobManager()
	manager.Register(cron.NewExpireReferralsCronJob(s.enqueuer))
	manager.Register(cron.NewExpireRewardsCronJob(s.rewardRepo))
	manager.Register(cron.NewRefreshLeaderboardCronJob(s.board))
	manager.Start(s.ctx)

	return nil
}
