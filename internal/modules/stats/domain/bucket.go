package domain

import (
	"sort"
	"time"
)

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"

	weekBuckets  = 8
	monthBuckets = 5
	lastNDays    = 7
)

// Bucket is a labeled time window with an inclusive End.
type Bucket struct {
	Key   string
	Label string
	Start time.Time
	End   time.Time
}

func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

func dayBucket(start time.Time, labelLayout string) Bucket {
	return Bucket{
		Key:   start.Format(dayKeyLayout),
		Label: start.Format(labelLayout),
		Start: start,
		End:   start.AddDate(0, 0, 1).Add(-time.Millisecond),
	}
}

func monthBucket(start time.Time) Bucket {
	return Bucket{
		Key:   start.Format(monthKeyLayout),
		Label: start.Format("Jan 2006"),
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Millisecond),
	}
}

func earliest(samples []Sample) (time.Time, bool) {
	if len(samples) == 0 {
		return time.Time{}, false
	}
	first := samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp.Before(first) {
			first = s.Timestamp
		}
	}
	return first, true
}

// BuildBuckets returns chronological, disjoint buckets for period. Calendar
// days are taken in now's location. custom is only read for PeriodCustom; a
// nil range there falls back to PeriodLast7.
func BuildBuckets(period Period, samples []Sample, now time.Time, custom *DateRange) []Bucket {
	loc := now.Location()
	today := startOfDay(now, loc)

	switch period {
	case PeriodToday:
		return []Bucket{dayBucket(today, "Mon, Jan 2")}

	case PeriodWeek:
		first, ok := earliest(samples)
		if !ok {
			return []Bucket{dayBucket(today, "Mon 2")}
		}
		anchor := startOfDay(first, loc)
		out := make([]Bucket, 0, weekBuckets)
		for i := 0; i < weekBuckets; i++ {
			out = append(out, dayBucket(anchor.AddDate(0, 0, i), "Mon 2"))
		}
		return out

	case PeriodMonth:
		first, ok := earliest(samples)
		if !ok {
			return []Bucket{monthBucket(startOfMonth(now, loc))}
		}
		anchor := startOfMonth(first, loc)
		out := make([]Bucket, 0, monthBuckets)
		for i := 0; i < monthBuckets; i++ {
			out = append(out, monthBucket(anchor.AddDate(0, i, 0)))
		}
		return out

	case PeriodAll:
		seen := map[string]time.Time{}
		for _, s := range samples {
			day := startOfDay(s.Timestamp, loc)
			seen[day.Format(dayKeyLayout)] = day
		}
		days := make([]time.Time, 0, len(seen))
		for _, day := range seen {
			days = append(days, day)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
		out := make([]Bucket, 0, len(days))
		for _, day := range days {
			out = append(out, dayBucket(day, "Jan 2"))
		}
		return out

	case PeriodCustom:
		if custom != nil {
			r := custom.Ordered()
			start := startOfDay(r.Start, loc)
			end := startOfDay(r.End, loc)
			out := []Bucket{}
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				out = append(out, dayBucket(day, "Jan 2"))
			}
			return out
		}
	}

	out := make([]Bucket, 0, lastNDays)
	for i := lastNDays - 1; i >= 0; i-- {
		out = append(out, dayBucket(today.AddDate(0, 0, -i), "Mon"))
	}
	return out
}
