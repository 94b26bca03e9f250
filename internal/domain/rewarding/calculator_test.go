package rewarding

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func seedTierLadder(ctx context.Context, t *testing.T) {
	tierRepo := repository.NewReferralTierRepository()

	ladder := []entity.ReferralTier{
		{Name: entity.TierBronze, MinReferrals: 0, MaxReferrals: 4, Multiplier: 1, BonusReward: 0},
		{Name: entity.TierSilver, MinReferrals: 5, MaxReferrals: 9, Multiplier: 1.5, BonusReward: 2},
		{Name: entity.TierGold, MinReferrals: 10, MaxReferrals: -1, Multiplier: 2, BonusReward: 5},
	}

	for i := range ladder {
		ladder[i].Base = entity.Base{ID: uuid.NewString()}
		ladder[i].IsActive = true
		ladder[i].DisplayOrder = i + 1
		require.NoError(t, tierRepo.Upsert(ctx, &ladder[i]))
	}
}

func Test_ResolveTier(t *testing.T) {
	ladder := []entity.ReferralTier{
		{Name: entity.TierBronze, MinReferrals: 0, Multiplier: 1},
		{Name: entity.TierSilver, MinReferrals: 5, Multiplier: 1.5},
		{Name: entity.TierGold, MinReferrals: 10, Multiplier: 2},
	}

	require.Equal(t, entity.TierBronze, ResolveTier(ladder, 0).Name)
	require.Equal(t, entity.TierBronze, ResolveTier(ladder, 4).Name)
	require.Equal(t, entity.TierSilver, ResolveTier(ladder, 5).Name)
	require.Equal(t, entity.TierSilver, ResolveTier(ladder, 9).Name)
	require.Equal(t, entity.TierGold, ResolveTier(ladder, 10).Name)
	require.Equal(t, entity.TierGold, ResolveTier(ladder, 1000).Name)
	require.Nil(t, ResolveTier(nil, 3))
}

func Test_Amount(t *testing.T) {
	gold := &entity.ReferralTier{Name: entity.TierGold, Multiplier: 2, BonusReward: 5}

	require.Equal(t, float64(25), Amount(10, gold, 1))
	require.Equal(t, float64(65), Amount(10, gold, 3))
	require.Equal(t, float64(10), Amount(10, nil, 0))
	// Non-positive code multipliers fall back to 1.
	require.Equal(t, float64(25), Amount(10, gold, -2))
}

func Test_Calculator_ReferralAmount(t *testing.T) {
	ctx := testutil.MockContext()
	seedTierLadder(ctx, t)

	referralRepo := repository.NewReferralRepository()
	calculator := NewCalculator(
		referralRepo,
		repository.NewRewardRepository(),
		repository.NewReferralTierRepository(),
		repository.NewReferralCodeRepository(),
		&testutil.MockWalletCaller{},
	)

	referrer, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		referred, err := testutil.SampleUser(ctx, nil)
		require.NoError(t, err)

		_, err = testutil.SampleReferral(ctx, &entity.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: sql.NullString{Valid: true, String: referred.ID},
			Status:         entity.ReferralCompleted,
		})
		require.NoError(t, err)
	}

	tier, err := calculator.TierFor(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, entity.TierGold, tier.Name)

	code, err := testutil.SampleCode(ctx, &entity.ReferralCode{OwnerID: referrer.ID})
	require.NoError(t, err)

	referral, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     referrer.ID,
		ReferralCodeID: code.ID,
	})
	require.NoError(t, err)

	// Base 10 at gold multiplier 2 plus bonus 5.
	amount, err := calculator.ReferralAmount(ctx, &referral)
	require.NoError(t, err)
	require.Equal(t, float64(25), amount)
}

func Test_Calculator_EnsureReward(t *testing.T) {
	ctx := testutil.MockContext()

	rewardRepo := repository.NewRewardRepository()

	var credits int
	calculator := NewCalculator(
		repository.NewReferralRepository(),
		rewardRepo,
		repository.NewReferralTierRepository(),
		repository.NewReferralCodeRepository(),
		&testutil.MockWalletCaller{
			CreditFunc: func(ctx context.Context, rewardID, userID string, amount float64, currency string) error {
				credits++
				return nil
			},
		},
	)

	referral, err := testutil.SampleReferral(ctx, &entity.Referral{
		Status:             entity.ReferralCompleted,
		CompletedEventType: string(entity.EventFirstTrade),
		ConversionAmount:   500,
	})
	require.NoError(t, err)

	reward, err := calculator.EnsureReward(ctx, &referral, 25)
	require.NoError(t, err)
	require.NotNil(t, reward)
	require.Equal(t, entity.RewardPending, reward.Status)
	require.Equal(t, float64(25), reward.Amount)
	require.Equal(t, "USDT", reward.Currency)
	require.Equal(t, referral.ReferrerID, reward.UserID)
	require.Equal(t, 1, credits)

	// Redelivery of the same completion must not mint a second reward.
	again, err := calculator.EnsureReward(ctx, &referral, 25)
	require.NoError(t, err)
	require.Nil(t, again)
	require.Equal(t, 1, credits)

	rewards, err := rewardRepo.GetListByUserID(ctx, referral.ReferrerID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
}
