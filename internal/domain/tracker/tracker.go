package tracker

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/referlab/backend/pkg/xredis"
)

// Tracker ingests high-frequency signals into the counter store. Every
// write here is a derived, rebuildable aggregate: the ledger stays the
// source of truth and a lost counter increment only makes a dashboard
// stale, so counter failures are logged and swallowed.
type Tracker struct {
	referralRepo repository.ReferralRepository
	codeRepo     repository.ReferralCodeRepository
	redisClient  xredis.Client
}

func New(
	referralRepo repository.ReferralRepository,
	codeRepo repository.ReferralCodeRepository,
	redisClient xredis.Client,
) *Tracker {
	return &Tracker{
		referralRepo: referralRepo,
		codeRepo:     codeRepo,
		redisClient:  redisClient,
	}
}

// TrackClick bumps the per-code, per-day and per-UTM click counters and
// stores a short-lived snapshot of the click metadata. Counters are
// monotonic increments, so duplicate or out-of-order delivery is harmless.
func (t *Tracker) TrackClick(ctx context.Context, req *model.TrackClickRequest) {
	now := time.Now()
	ttl := xcontext.Configs(ctx).Referral.ClickTTL

	t.incrWithTTL(ctx, redisKeyClicks(req.Code), ttl)
	t.incrWithTTL(ctx, redisKeyClicksByDay(now), ttl)

	if req.UTMSource != "" {
		t.incrWithTTL(ctx, redisKeyClicksByUTM("source", req.UTMSource), ttl)
	}
	if req.UTMMedium != "" {
		t.incrWithTTL(ctx, redisKeyClicksByUTM("medium", req.UTMMedium), ttl)
	}
	if req.UTMCampaign != "" {
		t.incrWithTTL(ctx, redisKeyClicksByUTM("campaign", req.UTMCampaign), ttl)
	}

	err := t.redisClient.SetObj(ctx, redisKeyLastClick(req.Code), req, ttl)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot store click snapshot: %v", err)
	}
}

// CountSignup is called after a successful REGISTERED transition; the
// authoritative ReferralEvent was already written by the state machine.
func (t *Tracker) CountSignup(ctx context.Context, at time.Time) {
	t.incrWithTTL(ctx, redisKeySignupsByDay(at), 0)
}

// CountConversion is called after a successful COMPLETED transition.
func (t *Tracker) CountConversion(ctx context.Context, at time.Time) {
	t.incrWithTTL(ctx, redisKeyConversionsByDay(at), 0)
}

func (t *Tracker) incrWithTTL(ctx context.Context, key string, ttl time.Duration) {
	if _, err := t.redisClient.IncrBy(ctx, key, 1); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot increment counter %s: %v", key, err)
		return
	}

	if ttl > 0 {
		if err := t.redisClient.Expire(ctx, key, ttl); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot set ttl on counter %s: %v", key, err)
		}
	}
}

// Metrics combines counter reads with a ledger count. Absent counter keys
// read as zero and a counter store outage degrades to ledger-only values
// instead of failing the response. A zero start/end leaves the ledger
// counts unwindowed.
func (t *Tracker) Metrics(ctx context.Context, userID string, start, end time.Time) (*model.GetStatsResponse, error) {
	now := time.Now()

	var activeClicks int64
	codes, err := t.codeRepo.GetListByOwnerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, code := range codes {
		n, err := t.redisClient.GetInt64(ctx, redisKeyClicks(code.Code))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot read click counter of %s: %v", code.Code, err)
			continue
		}
		activeClicks += n
	}

	todaySignups, err := t.redisClient.GetInt64(ctx, redisKeySignupsByDay(now))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read signup counter: %v", err)
	}

	todayConversions, err := t.redisClient.GetInt64(ctx, redisKeyConversionsByDay(now))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read conversion counter: %v", err)
	}

	pending, err := t.referralRepo.Count(ctx, repository.ReferralFilter{
		ReferrerID: userID,
		Status: []entity.ReferralStatus{
			entity.ReferralPending,
			entity.ReferralRegistered,
			entity.ReferralQualified,
		},
		CreatedAfter:  start,
		CreatedBefore: end,
	})
	if err != nil {
		return nil, err
	}

	total, err := t.referralRepo.Count(ctx, repository.ReferralFilter{
		ReferrerID:    userID,
		CreatedAfter:  start,
		CreatedBefore: end,
	})
	if err != nil {
		return nil, err
	}

	completed, err := t.referralRepo.Count(ctx, repository.ReferralFilter{
		ReferrerID:    userID,
		Status:        []entity.ReferralStatus{entity.ReferralCompleted},
		CreatedAfter:  start,
		CreatedBefore: end,
	})
	if err != nil {
		return nil, err
	}

	completionRate := 0.0
	if total > 0 {
		completionRate = float64(completed) / float64(total)
	}

	return &model.GetStatsResponse{
		TotalReferrals:     total,
		CompletedReferrals: completed,
		PendingReferrals:   pending,
		ActiveClicks:       activeClicks,
		TodaySignups:       todaySignups,
		TodayConversions:   todayConversions,
		CompletionRate:     completionRate,
	}, nil
}
