package in

import (
	"context"

	"recall/internal/modules/session/dto"
)

type Usecase interface {
	Fetch(ctx context.Context, input dto.FetchInput) (dto.FetchOutput, error)
	Record(ctx context.Context, input dto.RecordInput) (dto.RecordOutput, error)
	Append(ctx context.Context, record dto.Record) (dto.RecordOutput, error)
	Subscribe(ctx context.Context, fn func(dto.FetchOutput)) (func(), error)
	Seed(ctx context.Context, input dto.SeedInput) (dto.SeedOutput, error)
}
