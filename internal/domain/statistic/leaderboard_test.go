package statistic

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_EventPoints(t *testing.T) {
	require.Equal(t, int64(10), EventPoints(entity.EventRegistered, 0))
	require.Equal(t, int64(25), EventPoints(entity.EventKycCompleted, 0))
	require.Equal(t, int64(50), EventPoints(entity.EventFirstBet, 0))
	require.Equal(t, int64(100), EventPoints(entity.EventFirstTrade, 500))
	// The conversion bonus is capped at 100 points.
	require.Equal(t, int64(150), EventPoints(entity.EventFirstTrade, 1000))
	require.Equal(t, int64(150), EventPoints(entity.EventFirstTrade, 1000000))
	require.Equal(t, int64(0), EventPoints(entity.EventCodeUsed, 0))
}

func Test_ToPeriod(t *testing.T) {
	current := time.Date(2024, 5, 15, 12, 30, 0, 0, time.UTC)

	week, err := ToPeriodWithTime("week", current)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), week.Start())
	require.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), week.End())

	month, err := ToPeriodWithTime("month", current)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), month.Start())
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), month.End())

	_, err = ToPeriod("day")
	require.Error(t, err)
}

func Test_Leaderboard_AddEventPoints(t *testing.T) {
	ctx := testutil.MockContext()

	scores := map[string]int64{}
	board := New(
		repository.NewReferralRepository(),
		repository.NewUserRepository(),
		&testutil.MockRedisClient{
			ZIncrByFunc: func(ctx context.Context, key string, incr int64, member string) error {
				scores[key+"/"+member] += incr
				return nil
			},
		},
	)

	now := time.Now()
	err := board.AddEventPoints(ctx, "alice", entity.EventRegistered, 0, now)
	require.NoError(t, err)

	week := redisKeyLeaderboard(NewPeriodWeek(now))
	month := redisKeyLeaderboard(NewPeriodMonth(now))
	require.Equal(t, int64(10), scores[week+"/alice"])
	require.Equal(t, int64(10), scores[month+"/alice"])

	// Zero-point events never touch the store.
	err = board.AddEventPoints(ctx, "alice", entity.EventCodeUsed, 0, now)
	require.NoError(t, err)
	require.Len(t, scores, 2)
}

func Test_Leaderboard_GetLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	board := New(
		repository.NewReferralRepository(),
		repository.NewUserRepository(),
		&testutil.MockRedisClient{
			ExistFunc: func(ctx context.Context, key string) (bool, error) {
				return true, nil
			},
			ZRevRangeWithScoresFunc: func(ctx context.Context, key string, offset, limit int) ([]redis.Z, error) {
				return []redis.Z{
					{Member: alice.ID, Score: 120},
					{Member: bob.ID, Score: 85},
				}, nil
			},
		},
	)

	entries, err := board.GetLeaderboard(ctx, NewPeriodWeek(time.Now()), 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, alice.ID, entries[0].User.ID)
	require.Equal(t, alice.Name, entries[0].User.Name)
	require.Equal(t, int64(120), entries[0].Points)
	require.Equal(t, 1, entries[0].CurrentRank)
	require.Equal(t, bob.ID, entries[1].User.ID)
	require.Equal(t, 2, entries[1].CurrentRank)
}

func Test_Leaderboard_RebuildFromLedger(t *testing.T) {
	ctx := testutil.MockContext()

	referrer, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		referred, err := testutil.SampleUser(ctx, nil)
		require.NoError(t, err)

		_, err = testutil.SampleReferral(ctx, &entity.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: sql.NullString{Valid: true, String: referred.ID},
			Status:         entity.ReferralCompleted,
			CompletedAt:    sql.NullTime{Valid: true, Time: time.Now()},
		})
		require.NoError(t, err)
	}

	added := map[string]float64{}
	board := New(
		repository.NewReferralRepository(),
		repository.NewUserRepository(),
		&testutil.MockRedisClient{
			ZAddFunc: func(ctx context.Context, key string, z redis.Z) error {
				added[z.Member.(string)] = z.Score
				return nil
			},
		},
	)

	_, err = board.GetLeaderboard(ctx, NewPeriodWeek(time.Now()), 0, 10)
	require.NoError(t, err)

	// Two completions at the conversion base of 50 points each.
	require.Equal(t, float64(100), added[referrer.ID])
}
