package usecase

import (
	"fmt"
	"strings"
	"time"

	"recall/internal/modules/stats/domain"
	statsdto "recall/internal/modules/stats/dto"
	apperrors "recall/internal/platform/errors"
)

// parsePeriod resolves a period input. A custom period with no dates at all
// yields a nil range, which buckets as the default last seven days.
func parsePeriod(input statsdto.PeriodInput) (domain.Period, *domain.DateRange, error) {
	period := domain.ParsePeriod(input.Period)
	if period != domain.PeriodCustom {
		return period, nil, nil
	}
	start, end := input.Start, input.End
	switch {
	case start.IsZero() && end.IsZero():
		return period, nil, nil
	case start.IsZero():
		start = end
	case end.IsZero():
		end = start
	}
	r := domain.DateRange{Start: start, End: end}.Ordered()
	if days := r.Days(start.Location()); days > domain.MaxCustomDays {
		return "", nil, fmt.Errorf("%w: custom range spans %d days, limit %d", apperrors.ErrInvalidInput, days, domain.MaxCustomDays)
	}
	return period, &r, nil
}

func validateRecord(input statsdto.RecordInput) error {
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", apperrors.ErrInvalidInput)
	}
	if input.TotalQuestions < 0 || input.CorrectAnswers < 0 || input.Skipped < 0 || input.TotalTime < 0 {
		return fmt.Errorf("%w: counts and time must be non-negative", apperrors.ErrInvalidInput)
	}
	if input.CorrectAnswers > input.TotalQuestions {
		return fmt.Errorf("%w: correct answers exceed total questions", apperrors.ErrInvalidInput)
	}
	return nil
}

func toOutput(view domain.View, userID string) statsdto.StatsOutput {
	out := statsdto.StatsOutput{
		UserID:         userID,
		Period:         string(view.Period),
		Overall:        toMetrics(view.Overall),
		PerCategory:    make(map[string]statsdto.Metrics, len(view.PerCategory)),
		Series:         make(map[string][]int, len(view.Series)),
		CategorySeries: make(map[string][]statsdto.Metrics, len(view.Series)),
		Buckets:        make([]statsdto.Bucket, 0, len(view.Buckets)),
		DataSource:     view.Source.Label,
		Connected:      view.Source.Connected,
		NoData:         view.NoData,
		RecordCount:    view.RecordCount,
		ComputedAt:     view.ComputedAt,
	}
	for c, m := range view.PerCategory {
		out.PerCategory[string(c)] = toMetrics(m)
	}
	for c, series := range view.Series {
		accuracy := make([]int, len(series))
		full := make([]statsdto.Metrics, len(series))
		for i, m := range series {
			accuracy[i] = m.Accuracy
			full[i] = toMetrics(m)
		}
		out.Series[string(c)] = accuracy
		out.CategorySeries[string(c)] = full
	}
	for _, b := range view.Buckets {
		out.Buckets = append(out.Buckets, statsdto.Bucket{Key: b.Key, Label: b.Label, Start: b.Start, End: b.End})
	}
	return out
}

func toMetrics(m domain.Metrics) statsdto.Metrics {
	return statsdto.Metrics{
		Accuracy:       m.Accuracy,
		AvgTimePerCard: m.AvgTimePerCard,
		CardsReviewed:  m.CardsReviewed,
		CardsSkipped:   m.CardsSkipped,
	}
}

func liveSnapshot(snap domain.Snapshot) domain.Snapshot {
	snap.Tier = "live"
	snap.Label = "Live"
	snap.Connected = true
	return snap
}

func emptyFallback() domain.Snapshot {
	return domain.Snapshot{Samples: []domain.Sample{}, Tier: "fallback", Label: "Fallback"}
}

func truncateMillis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}
