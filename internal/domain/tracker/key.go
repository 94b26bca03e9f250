package tracker

import (
	"fmt"
	"time"

	"github.com/referlab/backend/pkg/dateutil"
)

func redisKeyClicks(code string) string {
	return fmt.Sprintf("clicks:code:%s", code)
}

func redisKeyLastClick(code string) string {
	return fmt.Sprintf("clicks:last:%s", code)
}

func redisKeyClicksByDay(t time.Time) string {
	return fmt.Sprintf("clicks:day:%s", dateutil.DayBucket(t))
}

func redisKeyClicksByUTM(dimension, value string) string {
	return fmt.Sprintf("clicks:utm:%s:%s", dimension, value)
}

func redisKeySignupsByDay(t time.Time) string {
	return fmt.Sprintf("signups:day:%s", dateutil.DayBucket(t))
}

func redisKeyConversionsByDay(t time.Time) string {
	return fmt.Sprintf("conversions:day:%s", dateutil.DayBucket(t))
}
