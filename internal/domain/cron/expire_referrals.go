package cron

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/domain/processor"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/pkg/xcontext"
)

// ExpireReferralsCronJob periodically enqueues the expiry sweep. The sweep
// itself runs in the worker, so a slow scan never blocks other cron jobs.
type ExpireReferralsCronJob struct {
	enqueuer *processor.Enqueuer
}

func NewExpireReferralsCronJob(enqueuer *processor.Enqueuer) *ExpireReferralsCronJob {
	return &ExpireReferralsCronJob{enqueuer: enqueuer}
}

func (job *ExpireReferralsCronJob) Do(ctx context.Context) {
	err := job.enqueuer.Enqueue(ctx, entity.JobExpireReferrals, "sweep",
		model.ExpireReferralsPayload{})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot enqueue expiry sweep: %v", err)
	}
}

func (job *ExpireReferralsCronJob) RunNow() bool {
	return true
}

func (job *ExpireReferralsCronJob) Next() time.Time {
	return time.Now().Add(time.Hour)
}
