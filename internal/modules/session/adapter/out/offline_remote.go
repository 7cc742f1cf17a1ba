package out

import (
	"context"

	"recall/internal/modules/session/domain"
	apperrors "recall/internal/platform/errors"
)

// OfflineRemote stands in for the remote when none is configured. Every call
// fails, so reads degrade to the cache and fallback tiers.
type OfflineRemote struct{}

func (OfflineRemote) Fetch(context.Context, string) ([]domain.Record, error) {
	return nil, apperrors.ErrSourceUnavailable
}

func (OfflineRemote) Subscribe(context.Context, string, func([]domain.Record)) (func(), error) {
	return nil, apperrors.ErrSourceUnavailable
}

func (OfflineRemote) Append(context.Context, domain.Record) error {
	return apperrors.ErrSourceUnavailable
}
