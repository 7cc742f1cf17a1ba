package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"recall/internal/modules/stats/domain"
	statsdto "recall/internal/modules/stats/dto"
	"recall/internal/modules/stats/service"
	"recall/internal/modules/stats/usecase"
	apperrors "recall/internal/platform/errors"
)

type staticSource struct {
	snap   domain.Snapshot
	err    error
	period string
}

func (s *staticSource) Fetch(_ context.Context, period string) (domain.Snapshot, error) {
	s.period = period
	return s.snap, s.err
}

func (s *staticSource) Subscribe(context.Context, func(domain.Snapshot)) (func(), error) {
	return func() {}, nil
}

func (s *staticSource) Record(context.Context, domain.Sample) (bool, error) { return true, nil }

func TestComputeCustomRange(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	src := &staticSource{snap: domain.Snapshot{Tier: "cached", Label: "Cached", Samples: []domain.Sample{
		{Category: "objects", Total: 4, Correct: 3, TotalTime: 8, Timestamp: time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC)},
		{Category: "objects", Total: 4, Correct: 1, TotalTime: 8, Timestamp: time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)},
	}}}
	uc := usecase.NewInteractor(service.NewStatsService(nil), src, &fakeClock{now: now}, "u1")

	out, err := uc.Compute(context.Background(), statsdto.PeriodInput{
		Period: "custom",
		Start:  time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if src.period != "custom" || out.Period != "custom" || out.UserID != "u1" {
		t.Fatalf("unexpected period plumbing: %q %+v", src.period, out)
	}
	if len(out.Buckets) != 3 || out.Buckets[0].Key != "2025-03-03" {
		t.Fatalf("unexpected buckets: %+v", out.Buckets)
	}
	if out.RecordCount != 1 || out.Overall.Accuracy != 75 || out.DataSource != "Cached" || out.Connected {
		t.Fatalf("unexpected output: %+v", out)
	}
	if got := out.Series["objects"]; len(got) != 3 || got[1] != 75 {
		t.Fatalf("unexpected objects series: %v", got)
	}
}

func TestComputeRejectsOversizedCustomRange(t *testing.T) {
	t.Parallel()
	uc := usecase.NewInteractor(service.NewStatsService(nil), &staticSource{}, &fakeClock{now: time.Now()}, "u1")
	_, err := uc.Compute(context.Background(), statsdto.PeriodInput{
		Period: "custom",
		Start:  time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestComputePropagatesSourceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	uc := usecase.NewInteractor(service.NewStatsService(nil), &staticSource{err: boom}, &fakeClock{now: time.Now()}, "u1")
	if _, err := uc.Compute(context.Background(), statsdto.PeriodInput{Period: "week"}); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}
