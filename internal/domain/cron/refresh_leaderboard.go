package cron

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/pkg/xcontext"
)

// RefreshLeaderboardCronJob warms the current leaderboard windows so the
// first reader after a counter-store flush does not pay for the ledger
// rebuild.
type RefreshLeaderboardCronJob struct {
	board statistic.Leaderboard
}

func NewRefreshLeaderboardCronJob(board statistic.Leaderboard) *RefreshLeaderboardCronJob {
	return &RefreshLeaderboardCronJob{board: board}
}

func (job *RefreshLeaderboardCronJob) Do(ctx context.Context) {
	now := time.Now()
	limit := xcontext.Configs(ctx).ApiServer.DefaultLimit

	for _, period := range []statistic.PeriodType{
		statistic.NewPeriodWeek(now),
		statistic.NewPeriodMonth(now),
	} {
		if _, err := job.board.GetLeaderboard(ctx, period, 0, limit); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot refresh leaderboard %s: %v", period.Period(), err)
		}
	}
}

func (job *RefreshLeaderboardCronJob) RunNow() bool {
	return true
}

func (job *RefreshLeaderboardCronJob) Next() time.Time {
	return time.Now().Add(time.Hour)
}
