package statistic

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/referlab/backend/pkg/xredis"
)

const rebuildLimit = 1000

type Leaderboard interface {
	GetLeaderboard(ctx context.Context, period PeriodType, offset, limit int) ([]model.LeaderboardEntry, error)
	AddEventPoints(ctx context.Context, referrerID string, eventType entity.ReferralEventType, amount float64, at time.Time) error
}

type leaderboard struct {
	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
	redisClient  xredis.Client
}

func New(
	referralRepo repository.ReferralRepository,
	userRepo repository.UserRepository,
	redisClient xredis.Client,
) *leaderboard {
	return &leaderboard{
		referralRepo: referralRepo,
		userRepo:     userRepo,
		redisClient:  redisClient,
	}
}

// AddEventPoints bumps the referrer's score in the sorted sets of every
// window containing the event. Increments are best-effort: the sets can
// always be rebuilt from the ledger.
func (l *leaderboard) AddEventPoints(
	ctx context.Context,
	referrerID string,
	eventType entity.ReferralEventType,
	amount float64,
	at time.Time,
) error {
	points := EventPoints(eventType, amount)
	if points == 0 {
		return nil
	}

	for _, period := range []PeriodType{NewPeriodWeek(at), NewPeriodMonth(at)} {
		err := l.redisClient.ZIncrBy(ctx, redisKeyLeaderboard(period), points, referrerID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot incr leaderboard %s: %v", period.Period(), err)
		}
	}

	return nil
}

func (l *leaderboard) GetLeaderboard(
	ctx context.Context, period PeriodType, offset, limit int,
) ([]model.LeaderboardEntry, error) {
	// Leaderboard reads are heavy and tolerate staleness, so page results
	// are cached for the analytics TTL.
	cacheKey := redisKeyLeaderboardCache(period, offset, limit)
	var cached []model.LeaderboardEntry
	if err := l.redisClient.GetObj(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	key := redisKeyLeaderboard(period)
	ok, err := l.redisClient.Exist(ctx, key)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot call exist redis: %v", err)
		return nil, errorx.Unknown
	}

	if !ok {
		if err := l.rebuildFromDB(ctx, period); err != nil {
			return nil, err
		}
	}

	results, err := l.redisClient.ZRevRangeWithScores(ctx, key, offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get revrange redis: %v", err)
		return nil, errorx.Unknown
	}

	entries := []model.LeaderboardEntry{}
	ids := []string{}
	for i, z := range results {
		id := z.Member.(string)
		ids = append(ids, id)
		entries = append(entries, model.LeaderboardEntry{
			User:        model.ShortUser{ID: id},
			Points:      int64(z.Score),
			CurrentRank: offset + i + 1,
		})
	}

	users, err := l.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get leaderboard users: %v", err)
		return nil, errorx.Unknown
	}

	byID := map[string]entity.User{}
	for _, u := range users {
		byID[u.ID] = u
	}

	for i := range entries {
		if u, ok := byID[entries[i].User.ID]; ok {
			entries[i].User.Name = u.Name
			entries[i].User.AvatarURL = u.AvatarURL
		}
	}

	ttl := xcontext.Configs(ctx).Referral.AnalyticsCacheTTL
	if err := l.redisClient.SetObj(ctx, cacheKey, entries, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache leaderboard page: %v", err)
	}

	return entries, nil
}

// rebuildFromDB reconstitutes the sorted set from the completed-in-window
// ledger aggregation. Scores rebuilt this way count completions, the
// event-point granularity accrues again from live traffic.
func (l *leaderboard) rebuildFromDB(ctx context.Context, period PeriodType) error {
	rows, err := l.referralRepo.GroupCompletedByReferrer(ctx, period.Start(), period.End(), rebuildLimit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot aggregate completed referrals: %v", err)
		return errorx.Unknown
	}

	key := redisKeyLeaderboard(period)
	for _, row := range rows {
		points := row.Count * EventPoints(entity.EventFirstTrade, 0)
		err := l.redisClient.ZAdd(ctx, key, redis.Z{Member: row.ReferrerID, Score: float64(points)})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot rebuild leaderboard member %s: %v", row.ReferrerID, err)
			return errorx.Unknown
		}
	}

	return nil
}
