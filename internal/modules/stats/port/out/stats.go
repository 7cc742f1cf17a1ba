package out

import (
	"context"

	"recall/internal/modules/stats/domain"
	"recall/internal/modules/stats/dto"
)

// SessionSource feeds samples into the stats module.
type SessionSource interface {
	Fetch(ctx context.Context, periodHint string) (domain.Snapshot, error)
	Subscribe(ctx context.Context, fn func(domain.Snapshot)) (func(), error)
	// Record persists a sample whose ID and Timestamp are already set and
	// reports whether the remote accepted it.
	Record(ctx context.Context, sample domain.Sample) (bool, error)
}

// StatsSink receives every published view.
type StatsSink interface {
	OnStatsUpdated(ctx context.Context, out dto.StatsOutput) error
}
