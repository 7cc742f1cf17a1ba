package in

import (
	"context"
	"time"

	sessiondto "recall/internal/modules/session/dto"
	sessionin "recall/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Record(ctx context.Context, category string, total, correct, skipped int, seconds float64, at time.Time) (sessiondto.RecordOutput, error) {
	return h.usecase.Record(ctx, sessiondto.RecordInput{
		Category:       category,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Skipped:        skipped,
		TotalTime:      seconds,
		Timestamp:      at,
	})
}

func (h CLIHandler) List(ctx context.Context) (sessiondto.FetchOutput, error) {
	return h.usecase.Fetch(ctx, sessiondto.FetchInput{})
}

func (h CLIHandler) Seed(ctx context.Context, payload []byte) (sessiondto.SeedOutput, error) {
	return h.usecase.Seed(ctx, sessiondto.SeedInput{Payload: payload})
}
