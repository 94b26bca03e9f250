package statistic

import (
	"fmt"
	"time"

	"github.com/referlab/backend/pkg/dateutil"
)

// PeriodType scopes a leaderboard to a reporting window.
type PeriodType interface {
	Period() string
	Start() time.Time
	End() time.Time
}

type weekPeriod struct {
	current time.Time
}

func NewPeriodWeek(current time.Time) weekPeriod {
	return weekPeriod{current: current}
}

func (p weekPeriod) Period() string {
	return dateutil.WeekBucket(p.current)
}

func (p weekPeriod) Start() time.Time {
	day := dateutil.BeginningOfDay(p.current)
	weekday := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -weekday)
}

func (p weekPeriod) End() time.Time {
	return p.Start().AddDate(0, 0, 7)
}

type monthPeriod struct {
	current time.Time
}

func NewPeriodMonth(current time.Time) monthPeriod {
	return monthPeriod{current: current}
}

func (p monthPeriod) Period() string {
	return dateutil.MonthBucket(p.current)
}

func (p monthPeriod) Start() time.Time {
	return time.Date(p.current.Year(), p.current.Month(), 1, 0, 0, 0, 0, p.current.Location())
}

func (p monthPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func ToPeriod(periodString string) (PeriodType, error) {
	return ToPeriodWithTime(periodString, time.Now())
}

func ToPeriodWithTime(periodString string, current time.Time) (PeriodType, error) {
	switch periodString {
	case "week":
		return NewPeriodWeek(current), nil
	case "month":
		return NewPeriodMonth(current), nil
	}

	return nil, fmt.Errorf("invalid period, expected week or month, but got %s", periodString)
}
