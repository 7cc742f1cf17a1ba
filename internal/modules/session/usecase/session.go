package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"recall/internal/modules/session/domain"
	sessiondto "recall/internal/modules/session/dto"
	sessionin "recall/internal/modules/session/port/in"
	"recall/internal/modules/session/service"
	"recall/internal/platform/clock"
	apperrors "recall/internal/platform/errors"
	"recall/internal/platform/id"
)

type Interactor struct {
	store *service.TieredStore
	clock clock.Clock
	ids   id.Generator
}

func NewInteractor(store *service.TieredStore, clk clock.Clock, ids id.Generator) sessionin.Usecase {
	return &Interactor{store: store, clock: clk, ids: ids}
}

func (i *Interactor) Fetch(ctx context.Context, input sessiondto.FetchInput) (sessiondto.FetchOutput, error) {
	if err := i.store.User().Validate(); err != nil {
		return sessiondto.FetchOutput{}, err
	}
	records, tier := i.store.Fetch(ctx, input.PeriodHint)
	return toFetchOutput(records, tier), nil
}

func (i *Interactor) Record(ctx context.Context, input sessiondto.RecordInput) (sessiondto.RecordOutput, error) {
	if strings.TrimSpace(input.Category) == "" {
		return sessiondto.RecordOutput{}, fmt.Errorf("%w: category is required", apperrors.ErrInvalidInput)
	}
	if input.TotalQuestions < 0 || input.CorrectAnswers < 0 || input.Skipped < 0 || input.TotalTime < 0 {
		return sessiondto.RecordOutput{}, fmt.Errorf("%w: counts and time must be non-negative", apperrors.ErrInvalidInput)
	}
	if input.CorrectAnswers > input.TotalQuestions {
		return sessiondto.RecordOutput{}, fmt.Errorf("%w: correct answers exceed total questions", apperrors.ErrInvalidInput)
	}
	ts := input.Timestamp
	if ts.IsZero() {
		ts = i.clock.Now()
	}
	return i.Append(ctx, sessiondto.Record{
		Category:       input.Category,
		TotalQuestions: input.TotalQuestions,
		CorrectAnswers: input.CorrectAnswers,
		Skipped:        input.Skipped,
		TotalTime:      input.TotalTime,
		Timestamp:      ts,
	})
}

func (i *Interactor) Append(ctx context.Context, record sessiondto.Record) (sessiondto.RecordOutput, error) {
	user := i.store.User()
	if err := user.Validate(); err != nil {
		return sessiondto.RecordOutput{}, err
	}
	if record.ID == "" {
		record.ID = i.ids.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = i.clock.Now()
	}
	entity := fromDTO(record, user.UserID)
	remoteOK, err := i.store.Append(ctx, entity)
	out := sessiondto.RecordOutput{Record: toDTO(entity), RemoteAccepted: remoteOK}
	if err != nil {
		return out, err
	}
	return out, nil
}

func (i *Interactor) Subscribe(ctx context.Context, fn func(sessiondto.FetchOutput)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: subscriber is required", apperrors.ErrInvalidInput)
	}
	return i.store.Subscribe(ctx, func(records []domain.Record) {
		fn(toFetchOutput(records, domain.TierLive))
	})
}

func (i *Interactor) Seed(ctx context.Context, input sessiondto.SeedInput) (sessiondto.SeedOutput, error) {
	var raws []domain.RawRecord
	if err := json.Unmarshal(input.Payload, &raws); err != nil {
		return sessiondto.SeedOutput{}, fmt.Errorf("%w: decode seed payload: %v", apperrors.ErrInvalidInput, err)
	}
	records, dropped := domain.NormalizeAll(raws, i.clock.Now().Location())
	user := i.store.User().UserID
	for idx := range records {
		if records[idx].ID == "" {
			records[idx].ID = i.ids.New()
		}
		if records[idx].UserID == "" {
			records[idx].UserID = user
		}
	}
	imported, err := i.store.Seed(ctx, records)
	if err != nil {
		return sessiondto.SeedOutput{Imported: imported, Dropped: dropped}, err
	}
	return sessiondto.SeedOutput{Imported: imported, Dropped: dropped}, nil
}

func toFetchOutput(records []domain.Record, tier domain.Tier) sessiondto.FetchOutput {
	out := make([]sessiondto.Record, 0, len(records))
	for _, record := range records {
		out = append(out, toDTO(record))
	}
	return sessiondto.FetchOutput{
		Records:   out,
		Tier:      string(tier),
		Label:     tier.Label(),
		Connected: tier.Connected(),
	}
}

func toDTO(record domain.Record) sessiondto.Record {
	return sessiondto.Record{
		ID:             record.ID,
		Category:       record.Category,
		TotalQuestions: record.TotalQuestions,
		CorrectAnswers: record.CorrectAnswers,
		Skipped:        record.Skipped,
		TotalTime:      record.TotalTime,
		Timestamp:      record.Timestamp,
	}
}

func fromDTO(record sessiondto.Record, userID string) domain.Record {
	return domain.Record{
		ID:             record.ID,
		UserID:         userID,
		Category:       record.Category,
		TotalQuestions: record.TotalQuestions,
		CorrectAnswers: record.CorrectAnswers,
		Skipped:        record.Skipped,
		TotalTime:      record.TotalTime,
		Timestamp:      record.Timestamp,
	}
}
