package domain

import (
	"context"
	"errors"
	"time"

	"github.com/referlab/backend/internal/domain/processor"
	"github.com/referlab/backend/internal/domain/rewarding"
	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/domain/tracker"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/enum"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ReferralDomain interface {
	ConfirmEvent(ctx context.Context, req *model.ConfirmReferralEventRequest) (*model.ConfirmReferralEventResponse, error)
	TrackClick(ctx context.Context, req *model.TrackClickRequest) (*model.TrackClickResponse, error)
	GetMyReferrals(ctx context.Context, req *model.GetMyReferralsRequest) (*model.GetMyReferralsResponse, error)
	GetStats(ctx context.Context, req *model.GetStatsRequest) (*model.GetStatsResponse, error)
}

type referralDomain struct {
	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
	track        *tracker.Tracker
	calculator   *rewarding.Calculator
	enqueuer     *processor.Enqueuer
}

func NewReferralDomain(
	referralRepo repository.ReferralRepository,
	userRepo repository.UserRepository,
	track *tracker.Tracker,
	calculator *rewarding.Calculator,
	enqueuer *processor.Enqueuer,
) *referralDomain {
	return &referralDomain{
		referralRepo: referralRepo,
		userRepo:     userRepo,
		track:        track,
		calculator:   calculator,
		enqueuer:     enqueuer,
	}
}

// ConfirmEvent records a lifecycle signal and hands the transition to the
// job pipeline. The API only stamps the signal on the user row; the
// processor is the single writer of referral state.
func (d *referralDomain) ConfirmEvent(
	ctx context.Context, req *model.ConfirmReferralEventRequest,
) (*model.ConfirmReferralEventResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	eventType, err := enum.ToEnum[entity.ReferralEventType](req.EventType)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid event type %s", req.EventType)
	}

	referral, err := d.referralRepo.GetByID(ctx, req.ReferralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found referral")
		}

		xcontext.Logger(ctx).Errorf("Cannot get referral: %v", err)
		return nil, errorx.Unknown
	}

	if referral.ReferredUserID.Valid && referral.ReferredUserID.String != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Referral belongs to another user")
	}

	now := time.Now()
	switch eventType {
	case entity.EventRegistered:
		err = d.enqueuer.Enqueue(ctx, entity.JobProcessSignup, referral.ID,
			model.ProcessSignupPayload{ReferralID: referral.ID, ReferredUserID: userID})

	case entity.EventKycCompleted:
		if err = d.userRepo.MarkKycVerified(ctx, userID, now); err == nil {
			err = d.enqueueCompletionCheck(ctx, referral.ID)
		}

	case entity.EventFirstTrade:
		if err = d.userRepo.MarkFirstTrade(ctx, userID, now, req.Amount); err == nil {
			err = d.enqueueCompletionCheck(ctx, referral.ID)
		}

	case entity.EventFirstBet:
		if err = d.userRepo.MarkFirstBet(ctx, userID, now); err == nil {
			err = d.enqueueCompletionCheck(ctx, referral.ID)
		}

	default:
		return nil, errorx.New(errorx.BadRequest, "Cannot confirm event %s", req.EventType)
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot confirm event %s: %v", req.EventType, err)
		return nil, errorx.Unknown
	}

	return &model.ConfirmReferralEventResponse{Status: string(referral.Status)}, nil
}

func (d *referralDomain) enqueueCompletionCheck(ctx context.Context, referralID string) error {
	return d.enqueuer.Enqueue(ctx, entity.JobCheckCompletion, referralID,
		model.CheckCompletionPayload{ReferralID: referralID})
}

// TrackClick never rejects: a bad code still returns 200 so the landing
// page cannot tell codes apart by probing.
func (d *referralDomain) TrackClick(
	ctx context.Context, req *model.TrackClickRequest,
) (*model.TrackClickResponse, error) {
	d.track.TrackClick(ctx, req)
	return &model.TrackClickResponse{}, nil
}

func (d *referralDomain) GetMyReferrals(
	ctx context.Context, req *model.GetMyReferralsRequest,
) (*model.GetMyReferralsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	apiCfg := xcontext.Configs(ctx).ApiServer
	if req.Limit == 0 {
		req.Limit = apiCfg.DefaultLimit
	}

	if req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Limit must not be negative")
	}

	if req.Limit > apiCfg.MaxLimit {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	referrals, err := d.referralRepo.GetList(ctx, repository.ReferralFilter{
		ReferrerID: userID,
		Offset:     req.Offset,
		Limit:      req.Limit,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get referrals: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyReferralsResponse{Referrals: []model.Referral{}}
	for _, referral := range referrals {
		view := model.Referral{
			ID:               referral.ID,
			ReferrerID:       referral.ReferrerID,
			Status:           string(referral.Status),
			RewardAmount:     referral.RewardAmount,
			ConversionAmount: referral.ConversionAmount,
			CreatedAt:        referral.CreatedAt,
		}
		if referral.ReferredUserID.Valid {
			view.ReferredUserID = referral.ReferredUserID.String
		}
		if referral.CompletedAt.Valid {
			t := referral.CompletedAt.Time
			view.CompletedAt = &t
		}

		resp.Referrals = append(resp.Referrals, view)
	}

	return resp, nil
}

func (d *referralDomain) GetStats(
	ctx context.Context, req *model.GetStatsRequest,
) (*model.GetStatsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	var start, end time.Time
	if req.Window != "" {
		period, err := statistic.ToPeriod(req.Window)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid window %s", req.Window)
		}

		start, end = period.Start(), period.End()
	}

	resp, err := d.track.Metrics(ctx, userID, start, end)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot compute metrics: %v", err)
		return nil, errorx.Unknown
	}

	earned, err := d.referralRepo.SumRewardByReferrerID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sum rewards: %v", err)
		return nil, errorx.Unknown
	}
	resp.TotalEarned = earned

	tier, err := d.calculator.TierFor(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot resolve tier: %v", err)
		return nil, errorx.Unknown
	}

	if tier != nil {
		resp.Tier = string(tier.Name)
		resp.TierMultiplier = tier.Multiplier
	}

	return resp, nil
}
