package in

import (
	"context"

	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
)

// TUIHandler is the dashboard's handle on a running coordinator.
type TUIHandler struct {
	coord statsin.Coordinator
}

func NewTUIHandler(coord statsin.Coordinator) TUIHandler {
	return TUIHandler{coord: coord}
}

func (h TUIHandler) Start(ctx context.Context) error {
	return h.coord.Start(ctx)
}

func (h TUIHandler) SetPeriod(ctx context.Context, period string) error {
	return h.coord.SetPeriod(ctx, statsdto.PeriodInput{Period: period})
}

func (h TUIHandler) Record(ctx context.Context, input statsdto.RecordInput) (statsdto.RecordOutput, error) {
	return h.coord.RecordNewSession(ctx, input)
}

func (h TUIHandler) Current() (statsdto.StatsOutput, bool) {
	return h.coord.Current()
}

func (h TUIHandler) Close() {
	h.coord.Dispose()
}
