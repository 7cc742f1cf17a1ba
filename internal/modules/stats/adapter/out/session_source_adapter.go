package out

import (
	"context"

	sessiondto "recall/internal/modules/session/dto"
	sessionin "recall/internal/modules/session/port/in"
	"recall/internal/modules/stats/domain"
	statsout "recall/internal/modules/stats/port/out"
)

// SessionSourceAdapter reads records through the session module.
type SessionSourceAdapter struct {
	sessions sessionin.Usecase
}

func NewSessionSourceAdapter(sessions sessionin.Usecase) statsout.SessionSource {
	return &SessionSourceAdapter{sessions: sessions}
}

func (a *SessionSourceAdapter) Fetch(ctx context.Context, periodHint string) (domain.Snapshot, error) {
	out, err := a.sessions.Fetch(ctx, sessiondto.FetchInput{PeriodHint: periodHint})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return toSnapshot(out), nil
}

func (a *SessionSourceAdapter) Subscribe(ctx context.Context, fn func(domain.Snapshot)) (func(), error) {
	return a.sessions.Subscribe(ctx, func(out sessiondto.FetchOutput) {
		fn(toSnapshot(out))
	})
}

func (a *SessionSourceAdapter) Record(ctx context.Context, sample domain.Sample) (bool, error) {
	out, err := a.sessions.Append(ctx, sessiondto.Record{
		ID:             sample.ID,
		Category:       sample.Category,
		TotalQuestions: sample.Total,
		CorrectAnswers: sample.Correct,
		Skipped:        sample.Skipped,
		TotalTime:      sample.TotalTime,
		Timestamp:      sample.Timestamp,
	})
	return out.RemoteAccepted, err
}

func toSnapshot(out sessiondto.FetchOutput) domain.Snapshot {
	samples := make([]domain.Sample, 0, len(out.Records))
	for _, r := range out.Records {
		samples = append(samples, domain.Sample{
			ID:        r.ID,
			Category:  r.Category,
			Total:     r.TotalQuestions,
			Correct:   r.CorrectAnswers,
			Skipped:   r.Skipped,
			TotalTime: r.TotalTime,
			Timestamp: r.Timestamp,
		})
	}
	return domain.Snapshot{Samples: samples, Tier: out.Tier, Label: out.Label, Connected: out.Connected}
}
