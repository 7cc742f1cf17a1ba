package in

import (
	"context"

	"recall/internal/modules/stats/dto"
)

// Usecase computes a view once, without keeping any state.
type Usecase interface {
	Compute(ctx context.Context, input dto.PeriodInput) (dto.StatsOutput, error)
}

// Coordinator keeps a view live and republishes it on every change.
type Coordinator interface {
	Start(ctx context.Context) error
	SetPeriod(ctx context.Context, input dto.PeriodInput) error
	RecordNewSession(ctx context.Context, input dto.RecordInput) (dto.RecordOutput, error)
	Current() (dto.StatsOutput, bool)
	Dispose()
}
