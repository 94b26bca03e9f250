package domain

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newRewardDomain() *rewardDomain {
	return NewRewardDomain(
		repository.NewRewardRepository(),
		repository.NewRewardClaimRepository(),
		repository.NewReferralRepository(),
	)
}

func createReward(ctx context.Context, t *testing.T, init entity.Reward) entity.Reward {
	init.Base = entity.Base{ID: uuid.NewString()}
	if init.Type == "" {
		init.Type = entity.RewardCredit
	}
	if init.Status == "" {
		init.Status = entity.RewardPending
	}
	init.IsActive = true

	require.NoError(t, repository.NewRewardRepository().Create(ctx, &init))
	return init
}

func Test_rewardDomain_ClaimRequirements(t *testing.T) {
	ctx := testutil.MockContext()
	rewardDomain := newRewardDomain()

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	reward := createReward(ctx, t, entity.Reward{
		UserID:   user.ID,
		Amount:   100,
		Currency: "USDT",
		Requirements: entity.Map{
			entity.RequirementMinReferrals: 2,
			entity.RequirementMinEarnings:  15,
		},
	})

	// No completed referrals yet.
	_, err = rewardDomain.Claim(userCtx, &model.ClaimRewardRequest{RewardID: reward.ID})
	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.ClaimIneligible, xerr.Code)

	for i := 0; i < 2; i++ {
		referred, err := testutil.SampleUser(ctx, nil)
		require.NoError(t, err)

		_, err = testutil.SampleReferral(ctx, &entity.Referral{
			ReferrerID:     user.ID,
			ReferredUserID: sql.NullString{Valid: true, String: referred.ID},
			Status:         entity.ReferralCompleted,
			RewardAmount:   10,
		})
		require.NoError(t, err)
	}

	// Both requirements hold now: 2 completed, 20 earned.
	claimed, err := rewardDomain.Claim(userCtx, &model.ClaimRewardRequest{RewardID: reward.ID})
	require.NoError(t, err)
	require.NotEmpty(t, claimed.ClaimID)

	// The same user cannot claim twice.
	_, err = rewardDomain.Claim(userCtx, &model.ClaimRewardRequest{RewardID: reward.ID})
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.AlreadyExists, xerr.Code)
}

func Test_rewardDomain_ClaimCeiling(t *testing.T) {
	ctx := testutil.MockContext()
	rewardDomain := newRewardDomain()

	reward := createReward(ctx, t, entity.Reward{Amount: 5, Currency: "USDT", MaxClaims: 1})

	first, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	_, err = rewardDomain.Claim(
		xcontext.WithRequestUserID(ctx, first.ID),
		&model.ClaimRewardRequest{RewardID: reward.ID})
	require.NoError(t, err)

	second, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	_, err = rewardDomain.Claim(
		xcontext.WithRequestUserID(ctx, second.ID),
		&model.ClaimRewardRequest{RewardID: reward.ID})

	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.ClaimOverLimit, xerr.Code)

	got, err := repository.NewRewardRepository().GetByID(ctx, reward.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.CurrentClaims)
}

func Test_rewardDomain_ClaimExpired(t *testing.T) {
	ctx := testutil.MockContext()
	rewardDomain := newRewardDomain()

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	reward := createReward(ctx, t, entity.Reward{
		Amount:    5,
		Currency:  "USDT",
		ExpiresAt: sql.NullTime{Valid: true, Time: time.Now().Add(-time.Hour)},
	})

	_, err = rewardDomain.Claim(
		xcontext.WithRequestUserID(ctx, user.ID),
		&model.ClaimRewardRequest{RewardID: reward.ID})

	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.ClaimIneligible, xerr.Code)
}

func Test_rewardDomain_ApproveAndMarkPaid(t *testing.T) {
	ctx := testutil.MockContext()
	rewardDomain := newRewardDomain()

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	reward := createReward(ctx, t, entity.Reward{UserID: user.ID, Amount: 25, Currency: "USDT"})

	// Paying out a pending reward is rejected.
	_, err = rewardDomain.MarkPaid(userCtx, &model.MarkRewardPaidRequest{RewardID: reward.ID})
	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.Conflict, xerr.Code)

	_, err = rewardDomain.Approve(userCtx, &model.ApproveRewardRequest{RewardID: reward.ID})
	require.NoError(t, err)

	// Approving twice is rejected.
	_, err = rewardDomain.Approve(userCtx, &model.ApproveRewardRequest{RewardID: reward.ID})
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.Conflict, xerr.Code)

	_, err = rewardDomain.MarkPaid(userCtx, &model.MarkRewardPaidRequest{
		RewardID: reward.ID,
		TxRef:    "0xdeadbeef",
	})
	require.NoError(t, err)

	got, err := repository.NewRewardRepository().GetByID(ctx, reward.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RewardPaid, got.Status)
	require.True(t, got.PaidAt.Valid)
	require.Equal(t, "0xdeadbeef", got.Metadata["tx_ref"])

	mine, err := rewardDomain.GetMyRewards(userCtx, &model.GetMyRewardsRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Rewards, 1)
	require.Equal(t, "paid", mine.Rewards[0].Status)
}
