package out

import (
	"context"
	"errors"

	statsdto "recall/internal/modules/stats/dto"
	statsout "recall/internal/modules/stats/port/out"
)

// FuncSink adapts a plain function to StatsSink.
type FuncSink func(ctx context.Context, out statsdto.StatsOutput) error

func (f FuncSink) OnStatsUpdated(ctx context.Context, out statsdto.StatsOutput) error {
	return f(ctx, out)
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []statsout.StatsSink

func NewMultiSink(sinks ...statsout.StatsSink) statsout.StatsSink {
	out := MultiSink{}
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiSink) OnStatsUpdated(ctx context.Context, out statsdto.StatsOutput) error {
	var errs []error
	for _, s := range m {
		if err := s.OnStatsUpdated(ctx, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
