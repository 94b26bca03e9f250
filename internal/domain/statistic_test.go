package domain

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_statisticDomain_GetLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	board := statistic.New(
		repository.NewReferralRepository(),
		repository.NewUserRepository(),
		&testutil.MockRedisClient{
			ExistFunc: func(ctx context.Context, key string) (bool, error) {
				return true, nil
			},
			ZRevRangeWithScoresFunc: func(ctx context.Context, key string, offset, limit int) ([]redis.Z, error) {
				return []redis.Z{{Member: user.ID, Score: 60}}, nil
			},
		},
	)
	statisticDomain := NewStatisticDomain(board)

	resp, err := statisticDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Period: "week"})
	require.NoError(t, err)
	require.Len(t, resp.Leaderboard, 1)
	require.Equal(t, user.ID, resp.Leaderboard[0].User.ID)
	require.Equal(t, int64(60), resp.Leaderboard[0].Points)

	_, err = statisticDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Period: "decade"})
	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.BadRequest, xerr.Code)
}
