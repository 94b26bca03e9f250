package rewarding

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/client"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/xcontext"
)

// Calculator decides how much a completed referral is worth and creates
// the PENDING reward record. It never moves funds itself: payout is
// handed to the wallet sink, which is idempotent per reward id.
type Calculator struct {
	referralRepo repository.ReferralRepository
	rewardRepo   repository.RewardRepository
	tierRepo     repository.ReferralTierRepository
	codeRepo     repository.ReferralCodeRepository
	wallet       client.WalletCaller
}

func NewCalculator(
	referralRepo repository.ReferralRepository,
	rewardRepo repository.RewardRepository,
	tierRepo repository.ReferralTierRepository,
	codeRepo repository.ReferralCodeRepository,
	wallet client.WalletCaller,
) *Calculator {
	return &Calculator{
		referralRepo: referralRepo,
		rewardRepo:   rewardRepo,
		tierRepo:     tierRepo,
		codeRepo:     codeRepo,
		wallet:       wallet,
	}
}

// ResolveTier maps a completed-referral count onto the tier ladder. Tiers
// are ordered by min_referrals ascending and the ladder is gapless, so the
// answer is the last tier whose lower bound is satisfied.
func ResolveTier(tiers []entity.ReferralTier, completedCount int64) *entity.ReferralTier {
	var match *entity.ReferralTier
	for i := range tiers {
		if completedCount >= int64(tiers[i].MinReferrals) {
			match = &tiers[i]
		}
	}

	return match
}

// TierFor returns the referrer's current tier from their completed
// referral count.
func (c *Calculator) TierFor(ctx context.Context, referrerID string) (*entity.ReferralTier, error) {
	tiers, err := c.tierRepo.GetActiveOrdered(ctx)
	if err != nil {
		return nil, err
	}

	count, err := c.referralRepo.Count(ctx, repository.ReferralFilter{
		ReferrerID: referrerID,
		Status:     []entity.ReferralStatus{entity.ReferralCompleted},
	})
	if err != nil {
		return nil, err
	}

	return ResolveTier(tiers, count), nil
}

// Amount computes base * tier multiplier * code multiplier, plus the tier
// bonus. Tier multipliers are monotonic in referral count, so the result
// is monotonic across tiers for a fixed event.
func Amount(baseReward float64, tier *entity.ReferralTier, codeMultiplier float64) float64 {
	if codeMultiplier <= 0 {
		codeMultiplier = 1
	}

	if tier == nil {
		return baseReward * codeMultiplier
	}

	return baseReward*tier.Multiplier*codeMultiplier + tier.BonusReward
}

// ReferralAmount resolves everything needed to price a completion.
func (c *Calculator) ReferralAmount(ctx context.Context, referral *entity.Referral) (float64, error) {
	tier, err := c.TierFor(ctx, referral.ReferrerID)
	if err != nil {
		return 0, err
	}

	codeMultiplier := 1.0
	if code, err := c.codeRepo.GetByID(ctx, referral.ReferralCodeID); err == nil {
		codeMultiplier = code.RewardMultiplier
	}

	return Amount(xcontext.Configs(ctx).Referral.BaseReward, tier, codeMultiplier), nil
}

// EnsureReward creates the PENDING reward for a completed referral if it
// does not exist yet, then hands payout to the wallet sink. Safe to call
// again on job redelivery: the (referral, type) pair is checked first, so
// no duplicate reward row is ever produced.
func (c *Calculator) EnsureReward(
	ctx context.Context, referral *entity.Referral, amount float64,
) (*entity.Reward, error) {
	exists, err := c.rewardRepo.ExistsByReferralAndType(ctx, referral.ID, entity.RewardCash)
	if err != nil {
		return nil, err
	}

	if exists {
		xcontext.Logger(ctx).Debugf("Reward for referral %s already exists", referral.ID)
		return nil, nil
	}

	cfg := xcontext.Configs(ctx).Referral
	reward := &entity.Reward{
		Base:       entity.Base{ID: uuid.NewString()},
		UserID:     referral.ReferrerID,
		ReferralID: sql.NullString{Valid: true, String: referral.ID},
		Type:       entity.RewardCash,
		Amount:     amount,
		Currency:   cfg.RewardCurrency,
		Status:     entity.RewardPending,
		IsActive:   true,
		ExpiresAt:  sql.NullTime{Valid: true, Time: time.Now().Add(cfg.RewardExpiration)},
		Metadata: entity.Map{
			"event_type":        referral.CompletedEventType,
			"conversion_amount": referral.ConversionAmount,
		},
	}

	if err := c.rewardRepo.Create(ctx, reward); err != nil {
		return nil, err
	}

	// Fire-and-forget from the engine's point of view: a failed credit is
	// retried by the wallet side, the reward row already records the debt.
	if err := c.wallet.Credit(ctx, reward.ID, reward.UserID, reward.Amount, reward.Currency); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot credit wallet for reward %s: %v", reward.ID, err)
	}

	return reward, nil
}
