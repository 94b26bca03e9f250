package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RewardDomain interface {
	Claim(ctx context.Context, req *model.ClaimRewardRequest) (*model.ClaimRewardResponse, error)
	GetMyRewards(ctx context.Context, req *model.GetMyRewardsRequest) (*model.GetMyRewardsResponse, error)
	Approve(ctx context.Context, req *model.ApproveRewardRequest) (*model.ApproveRewardResponse, error)
	MarkPaid(ctx context.Context, req *model.MarkRewardPaidRequest) (*model.MarkRewardPaidResponse, error)
}

type rewardDomain struct {
	rewardRepo   repository.RewardRepository
	claimRepo    repository.RewardClaimRepository
	referralRepo repository.ReferralRepository
}

func NewRewardDomain(
	rewardRepo repository.RewardRepository,
	claimRepo repository.RewardClaimRepository,
	referralRepo repository.ReferralRepository,
) *rewardDomain {
	return &rewardDomain{
		rewardRepo:   rewardRepo,
		claimRepo:    claimRepo,
		referralRepo: referralRepo,
	}
}

// claimRequirements is decoded from the reward's requirement map. All
// declared requirements must hold at once.
type claimRequirements struct {
	MinReferrals int64   `mapstructure:"MIN_REFERRALS"`
	MinEarnings  float64 `mapstructure:"MIN_EARNINGS"`
}

func (d *rewardDomain) Claim(
	ctx context.Context, req *model.ClaimRewardRequest,
) (*model.ClaimRewardResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	reward, err := d.rewardRepo.GetByID(ctx, req.RewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found reward")
		}

		xcontext.Logger(ctx).Errorf("Cannot get reward: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.checkClaimable(ctx, reward, userID); err != nil {
		return nil, err
	}

	if _, err := d.claimRepo.GetByRewardAndUser(ctx, reward.ID, userID); err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "Reward was already claimed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot check existing claim: %v", err)
		return nil, errorx.Unknown
	}

	claim := &entity.RewardClaim{
		Base:     entity.Base{ID: uuid.NewString()},
		RewardID: reward.ID,
		UserID:   userID,
		Metadata: req.Metadata,
	}

	// The claim row and the counter bump commit together: the conditional
	// increment is the only gate on the claim ceiling, so losing it means
	// the last slot was taken concurrently.
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.rewardRepo.IncrementClaims(ctx, reward.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.ClaimOverLimit, "All claims of this reward are taken")
		}

		xcontext.Logger(ctx).Errorf("Cannot increment claims: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.claimRepo.Create(ctx, claim); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create claim: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	return &model.ClaimRewardResponse{ClaimID: claim.ID}, nil
}

// checkClaimable applies the static rules, then the requirement map. The
// first failing rule names the rejection.
func (d *rewardDomain) checkClaimable(ctx context.Context, reward *entity.Reward, userID string) error {
	now := time.Now()

	if !reward.IsActive {
		return errorx.New(errorx.ClaimIneligible, "Reward is not active")
	}

	if reward.Status == entity.RewardExpired || reward.Status == entity.RewardCancelled {
		return errorx.New(errorx.ClaimIneligible, "Reward is %s", reward.Status)
	}

	if reward.StartsAt.Valid && now.Before(reward.StartsAt.Time) {
		return errorx.New(errorx.ClaimIneligible, "Reward is not claimable yet")
	}

	if reward.ExpiresAt.Valid && now.After(reward.ExpiresAt.Time) {
		return errorx.New(errorx.ClaimIneligible, "Reward is expired")
	}

	var reqs claimRequirements
	if err := mapstructure.WeakDecode(map[string]any(reward.Requirements), &reqs); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode requirements of reward %s: %v", reward.ID, err)
		return errorx.Unknown
	}

	if reqs.MinReferrals > 0 {
		completed, err := d.referralRepo.Count(ctx, repository.ReferralFilter{
			ReferrerID: userID,
			Status:     []entity.ReferralStatus{entity.ReferralCompleted},
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count completed referrals: %v", err)
			return errorx.Unknown
		}

		if completed < reqs.MinReferrals {
			return errorx.New(errorx.ClaimIneligible,
				"Need at least %d completed referrals", reqs.MinReferrals)
		}
	}

	if reqs.MinEarnings > 0 {
		earned, err := d.referralRepo.SumRewardByReferrerID(ctx, userID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot sum earnings: %v", err)
			return errorx.Unknown
		}

		if earned < reqs.MinEarnings {
			return errorx.New(errorx.ClaimIneligible,
				"Need at least %.2f earned from referrals", reqs.MinEarnings)
		}
	}

	return nil
}

func (d *rewardDomain) GetMyRewards(
	ctx context.Context, req *model.GetMyRewardsRequest,
) (*model.GetMyRewardsResponse, error) {
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

	rewards, err := d.rewardRepo.GetListByUserID(ctx, userID, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get rewards: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyRewardsResponse{Rewards: []model.Reward{}}
	for _, reward := range rewards {
		view := model.Reward{
			ID:       reward.ID,
			Type:     string(reward.Type),
			Amount:   reward.Amount,
			Currency: reward.Currency,
			Status:   string(reward.Status),
		}
		if reward.ReferralID.Valid {
			view.ReferralID = reward.ReferralID.String
		}
		if reward.ExpiresAt.Valid {
			t := reward.ExpiresAt.Time
			view.ExpiresAt = &t
		}
		if reward.PaidAt.Valid {
			t := reward.PaidAt.Time
			view.PaidAt = &t
		}

		resp.Rewards = append(resp.Rewards, view)
	}

	return resp, nil
}

func (d *rewardDomain) Approve(
	ctx context.Context, req *model.ApproveRewardRequest,
) (*model.ApproveRewardResponse, error) {
	err := d.rewardRepo.UpdateStatus(ctx, req.RewardID, entity.RewardPending, entity.RewardApproved, nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Reward is not pending")
		}

		xcontext.Logger(ctx).Errorf("Cannot approve reward: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ApproveRewardResponse{}, nil
}

func (d *rewardDomain) MarkPaid(
	ctx context.Context, req *model.MarkRewardPaidRequest,
) (*model.MarkRewardPaidResponse, error) {
	reward, err := d.rewardRepo.GetByID(ctx, req.RewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found reward")
		}

		xcontext.Logger(ctx).Errorf("Cannot get reward: %v", err)
		return nil, errorx.Unknown
	}

	metadata := reward.Metadata
	if metadata == nil {
		metadata = entity.Map{}
	}
	metadata["tx_ref"] = req.TxRef

	err = d.rewardRepo.UpdateStatus(ctx, req.RewardID, entity.RewardApproved, entity.RewardPaid,
		map[string]any{
			"paid_at":  time.Now(),
			"metadata": metadata,
		})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Reward is not approved")
		}

		xcontext.Logger(ctx).Errorf("Cannot mark reward paid: %v", err)
		return nil, errorx.Unknown
	}

	return &model.MarkRewardPaidResponse{}, nil
}
