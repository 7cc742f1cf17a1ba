package domain

import (
	"math"
	"time"
)

// Sample is the stats module's read-only view of a recorded session.
type Sample struct {
	ID        string
	Category  string
	Total     int
	Correct   int
	Skipped   int
	TotalTime float64
	Timestamp time.Time
}

// Metrics are rounded aggregates. Accuracy is a percentage and is not
// clamped, so it can exceed 100 when correct answers exceed questions.
type Metrics struct {
	Accuracy       int
	AvgTimePerCard int
	CardsReviewed  int
	CardsSkipped   int
}

// Aggregate returns zero Metrics for empty input or zero questions.
func Aggregate(samples []Sample) Metrics {
	var total, correct, skipped int
	var spent float64
	for _, s := range samples {
		total += s.Total
		correct += s.Correct
		skipped += s.Skipped
		spent += s.TotalTime
	}
	m := Metrics{CardsReviewed: total, CardsSkipped: skipped}
	if total > 0 {
		m.Accuracy = int(math.Round(float64(correct) / float64(total) * 100))
		m.AvgTimePerCard = int(math.Round(spent / float64(total)))
	}
	return m
}

// GroupByBucket assigns each sample to the first bucket containing it.
// The result is parallel to buckets; samples outside every bucket are dropped.
func GroupByBucket(samples []Sample, buckets []Bucket) [][]Sample {
	groups := make([][]Sample, len(buckets))
	for _, s := range samples {
		for i, b := range buckets {
			if b.Contains(s.Timestamp) {
				groups[i] = append(groups[i], s)
				break
			}
		}
	}
	return groups
}

// FilterByPeriod keeps samples inside the span of the period's buckets.
// PeriodAll is unfiltered.
func FilterByPeriod(samples []Sample, period Period, now time.Time, custom *DateRange) []Sample {
	if period == PeriodAll {
		return append([]Sample{}, samples...)
	}
	buckets := BuildBuckets(period, samples, now, custom)
	if len(buckets) == 0 {
		return []Sample{}
	}
	span := Bucket{Start: buckets[0].Start, End: buckets[len(buckets)-1].End}
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if span.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out
}

// ByCategory splits samples by canonical category. Every category is present.
func ByCategory(samples []Sample) map[Category][]Sample {
	out := make(map[Category][]Sample, len(Categories()))
	for _, c := range Categories() {
		out[c] = []Sample{}
	}
	for _, s := range samples {
		c := Classify(s.Category)
		out[c] = append(out[c], s)
	}
	return out
}

// Breakdown is the per-category, per-bucket metric matrix. Each series has
// one entry per bucket; empty buckets are zero Metrics.
func Breakdown(samples []Sample, buckets []Bucket) map[Category][]Metrics {
	out := make(map[Category][]Metrics, len(Categories()))
	for c, group := range ByCategory(samples) {
		series := make([]Metrics, len(buckets))
		for i, inBucket := range GroupByBucket(group, buckets) {
			series[i] = Aggregate(inBucket)
		}
		out[c] = series
	}
	return out
}
