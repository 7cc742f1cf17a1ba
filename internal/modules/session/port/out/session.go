package out

import (
	"context"

	"recall/internal/modules/session/domain"
)

// RemoteSource is the live tier. Subscribe delivers full snapshots until the
// returned unsubscribe func is called; unsubscribe must be idempotent and
// must not return before delivery has stopped.
type RemoteSource interface {
	Fetch(ctx context.Context, userID string) ([]domain.Record, error)
	Subscribe(ctx context.Context, userID string, fn func([]domain.Record)) (func(), error)
	Append(ctx context.Context, record domain.Record) error
}

// Cache is the process-local tier.
type Cache interface {
	Get(key string) ([]domain.Record, bool)
	Set(key string, records []domain.Record)
}

// DurableStore is the on-device fallback tier, addressed by namespaced key.
type DurableStore interface {
	Load(ctx context.Context, key string) ([]domain.Record, error)
	Save(ctx context.Context, key string, records []domain.Record) error
}
