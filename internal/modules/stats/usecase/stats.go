package usecase

import (
	"context"

	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
	statsout "recall/internal/modules/stats/port/out"
	"recall/internal/modules/stats/service"
	"recall/internal/platform/clock"
)

type Interactor struct {
	svc    *service.StatsService
	source statsout.SessionSource
	clock  clock.Clock
	userID string
}

func NewInteractor(svc *service.StatsService, source statsout.SessionSource, clk clock.Clock, userID string) statsin.Usecase {
	return &Interactor{svc: svc, source: source, clock: clk, userID: userID}
}

func (i *Interactor) Compute(ctx context.Context, input statsdto.PeriodInput) (statsdto.StatsOutput, error) {
	period, custom, err := parsePeriod(input)
	if err != nil {
		return statsdto.StatsOutput{}, err
	}
	snap, err := i.source.Fetch(ctx, string(period))
	if err != nil {
		return statsdto.StatsOutput{}, err
	}
	view := i.svc.Build(snap, period, custom, i.clock.Now())
	return toOutput(view, i.userID), nil
}
