package cron

import (
	"context"
	"errors"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/dateutil"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// ExpireRewardsCronJob moves overdue pending rewards to EXPIRED once a day.
type ExpireRewardsCronJob struct {
	rewardRepo repository.RewardRepository
}

func NewExpireRewardsCronJob(rewardRepo repository.RewardRepository) *ExpireRewardsCronJob {
	return &ExpireRewardsCronJob{rewardRepo: rewardRepo}
}

func (job *ExpireRewardsCronJob) Do(ctx context.Context) {
	rewards, err := job.rewardRepo.GetExpiredPending(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get expired pending rewards: %v", err)
		return
	}

	for _, reward := range rewards {
		err := job.rewardRepo.UpdateStatus(ctx, reward.ID, entity.RewardPending, entity.RewardExpired, nil)
		if err != nil {
			// Zero rows means the reward was approved or claimed in the
			// meantime, which is fine.
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}

			xcontext.Logger(ctx).Warnf("Cannot expire reward %s: %v", reward.ID, err)
		}
	}

	if len(rewards) > 0 {
		xcontext.Logger(ctx).Infof("Expired %d overdue rewards", len(rewards))
	}
}

func (job *ExpireRewardsCronJob) RunNow() bool {
	return true
}

func (job *ExpireRewardsCronJob) Next() time.Time {
	return dateutil.NextDay(time.Now())
}
