package statistic

import (
	"github.com/pkg/math"
	"github.com/referlab/backend/internal/entity"
)

// EventPoints converts a lifecycle event into leaderboard points. The
// conversion bonus is clamped so a single whale trade cannot bury the
// rest of the board.
func EventPoints(eventType entity.ReferralEventType, amount float64) int64 {
	switch eventType {
	case entity.EventRegistered:
		return 10
	case entity.EventKycCompleted:
		return 25
	case entity.EventFirstTrade, entity.EventFirstBet:
		return 50 + math.MinInt64(int64(amount/10), 100)
	}

	return 0
}
