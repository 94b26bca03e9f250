package chain

import (
	"context"
	"database/sql"
	"testing"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func completedLink(ctx context.Context, t *testing.T, referrerID, referredID string) {
	_, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     referrerID,
		ReferredUserID: sql.NullString{Valid: true, String: referredID},
		Status:         entity.ReferralCompleted,
	})
	require.NoError(t, err)
}

func Test_Validator_RootReferrer(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	referral, err := testutil.SampleReferral(ctx, nil)
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &referral)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 1, result.Depth)
}

func Test_Validator_OneHopCycle(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	completedLink(ctx, t, alice.ID, bob.ID)

	// Bob turning around and referring Alice closes a two-node loop.
	back, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     bob.ID,
		ReferredUserID: sql.NullString{Valid: true, String: alice.ID},
	})
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &back)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, entity.InvalidReasonCircular, result.Reason)
}

func Test_Validator_OneHopCycleThroughExpiredLink(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	// An expired link still counts: Alice once referred Bob, so Bob may
	// never refer Alice back.
	_, err = testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     alice.ID,
		ReferredUserID: sql.NullString{Valid: true, String: bob.ID},
		Status:         entity.ReferralExpired,
	})
	require.NoError(t, err)

	back, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     bob.ID,
		ReferredUserID: sql.NullString{Valid: true, String: alice.ID},
	})
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &back)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, entity.InvalidReasonCircular, result.Reason)
}

func Test_Validator_LongCycle(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	carol, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	completedLink(ctx, t, alice.ID, bob.ID)
	completedLink(ctx, t, bob.ID, carol.ID)

	back, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     carol.ID,
		ReferredUserID: sql.NullString{Valid: true, String: alice.ID},
	})
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &back)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, entity.InvalidReasonCircular, result.Reason)
}

func Test_Validator_DepthBoundary(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	// MaxChainDepth is 3 in the mock configs. Two completed ancestors
	// above the referrer put the new referral at depth 3, still legal.
	users := make([]entity.User, 0, 5)
	for i := 0; i < 5; i++ {
		user, err := testutil.SampleUser(ctx, nil)
		require.NoError(t, err)
		users = append(users, user)
	}

	completedLink(ctx, t, users[0].ID, users[1].ID)
	completedLink(ctx, t, users[1].ID, users[2].ID)

	atLimit, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     users[2].ID,
		ReferredUserID: sql.NullString{Valid: true, String: users[3].ID},
	})
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &atLimit)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 3, result.Depth)

	// One more completed link pushes the next referral past the limit.
	completedLink(ctx, t, users[2].ID, users[3].ID)

	tooDeep, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     users[3].ID,
		ReferredUserID: sql.NullString{Valid: true, String: users[4].ID},
	})
	require.NoError(t, err)

	result, err = validator.Validate(ctx, &tooDeep)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, entity.InvalidReasonTooDeep, result.Reason)
	require.Equal(t, 4, result.Depth)
}

func Test_Validator_PendingLinksIgnored(t *testing.T) {
	ctx := testutil.MockContext()
	validator := NewValidator(repository.NewReferralRepository())

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	carol, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	dave, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	// Pending links do not count toward depth by default.
	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, carol.ID}, {carol.ID, dave.ID}} {
		_, err := testutil.SampleReferral(ctx, &entity.Referral{
			ReferrerID:     pair[0],
			ReferredUserID: sql.NullString{Valid: true, String: pair[1]},
			Status:         entity.ReferralPending,
		})
		require.NoError(t, err)
	}

	extra, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	deep, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     dave.ID,
		ReferredUserID: sql.NullString{Valid: true, String: extra.ID},
	})
	require.NoError(t, err)

	result, err := validator.Validate(ctx, &deep)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 1, result.Depth)
}
