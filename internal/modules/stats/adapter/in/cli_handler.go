package in

import (
	"context"
	"time"

	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
)

type CLIHandler struct {
	usecase statsin.Usecase
}

func NewCLIHandler(usecase statsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Show(ctx context.Context, period string, start, end time.Time) (statsdto.StatsOutput, error) {
	return h.usecase.Compute(ctx, statsdto.PeriodInput{Period: period, Start: start, End: end})
}

// Watch starts coord and blocks until ctx is done, then disposes it.
func (h CLIHandler) Watch(ctx context.Context, coord statsin.Coordinator) error {
	if err := coord.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	coord.Dispose()
	return nil
}
