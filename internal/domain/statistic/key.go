package statistic

import "fmt"

func redisKeyLeaderboard(period PeriodType) string {
	return fmt.Sprintf("leaderboard:%s", period.Period())
}

func redisKeyLeaderboardCache(period PeriodType, offset, limit int) string {
	return fmt.Sprintf("leaderboard:cache:%s:%d:%d", period.Period(), offset, limit)
}
