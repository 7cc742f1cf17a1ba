package service

import (
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"recall/internal/modules/stats/domain"
	"recall/internal/platform/logging"
)

// StatsService turns a snapshot into a view. It holds no state between calls.
type StatsService struct {
	log hclog.Logger
}

func NewStatsService(log hclog.Logger) *StatsService {
	return &StatsService{log: logging.OrNull(log).Named("stats")}
}

// Build buckets the whole snapshot, then aggregates only the samples that fall
// inside the period.
func (s *StatsService) Build(snap domain.Snapshot, period domain.Period, custom *domain.DateRange, now time.Time) domain.View {
	buckets := domain.BuildBuckets(period, snap.Samples, now, custom)
	inPeriod := domain.FilterByPeriod(snap.Samples, period, now, custom)

	perCategory := make(map[domain.Category]domain.Metrics, len(domain.Categories()))
	for c, group := range domain.ByCategory(inPeriod) {
		perCategory[c] = domain.Aggregate(group)
	}

	view := domain.View{
		Period:      period,
		Buckets:     buckets,
		Overall:     domain.Aggregate(inPeriod),
		PerCategory: perCategory,
		Series:      domain.Breakdown(inPeriod, buckets),
		RecordCount: len(inPeriod),
		NoData:      len(inPeriod) == 0,
		Source:      snap,
		ComputedAt:  now,
	}
	s.log.Trace("built view", "period", period, "tier", snap.Tier, "samples", len(snap.Samples), "in_period", len(inPeriod), "buckets", len(buckets))
	return view
}
