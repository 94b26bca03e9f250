package dateutil

import (
	"fmt"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func NextDay(t time.Time) time.Time {
	return BeginningOfDay(t).AddDate(0, 0, 1)
}

func LastWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -7)
}

func LastMonth(t time.Time) time.Time {
	return t.AddDate(0, -1, 0)
}

// DayBucket returns the key suffix used for day-scoped counters.
func DayBucket(t time.Time) string {
	return t.Format("20060102")
}

func WeekBucket(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("week/%d/%d", week, year)
}

func MonthBucket(t time.Time) string {
	return fmt.Sprintf("month/%d/%d", int(t.Month()), t.Year())
}
