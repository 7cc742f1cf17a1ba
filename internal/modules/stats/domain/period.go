package domain

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodAll    Period = "all"
	PeriodCustom Period = "custom"
	PeriodLast7  Period = "last7"
)

// MaxCustomDays bounds a custom range so bucket construction stays small.
const MaxCustomDays = 366

// ParsePeriod maps unknown or empty input to PeriodLast7.
func ParsePeriod(raw string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll, PeriodCustom:
		return p
	default:
		return PeriodLast7
	}
}

// DateRange is an inclusive calendar range used by PeriodCustom.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Ordered returns the range with Start not after End.
func (r DateRange) Ordered() DateRange {
	if r.End.Before(r.Start) {
		return DateRange{Start: r.End, End: r.Start}
	}
	return r
}

// Days counts the calendar days the range covers in loc.
func (r DateRange) Days(loc *time.Location) int {
	o := r.Ordered()
	start := startOfDay(o.Start, loc)
	end := startOfDay(o.End, loc)
	n := 1
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
