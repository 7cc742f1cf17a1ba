package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"recall/internal/modules/session/domain"
	sessionout "recall/internal/modules/session/port/out"
	apperrors "recall/internal/platform/errors"
	"recall/internal/platform/logging"
)

// TieredStore resolves a user's records from the remote, the process-local
// cache, then the durable fallback. Failures degrade to the next tier and
// never escape Fetch. Appends are serialized so the cache and durable
// read-modify-write never interleave.
type TieredStore struct {
	user    domain.UserContext
	remote  sessionout.RemoteSource
	cache   sessionout.Cache
	durable sessionout.DurableStore
	log     hclog.Logger

	mu sync.Mutex
}

func NewTieredStore(user domain.UserContext, remote sessionout.RemoteSource, cache sessionout.Cache, durable sessionout.DurableStore, log hclog.Logger) *TieredStore {
	return &TieredStore{
		user:    user,
		remote:  remote,
		cache:   cache,
		durable: durable,
		log:     logging.OrNull(log).Named("tiered-store"),
	}
}

func (s *TieredStore) User() domain.UserContext {
	return s.user
}

func (s *TieredStore) Fetch(ctx context.Context, periodHint string) ([]domain.Record, domain.Tier) {
	records, err := s.fetchRemote(ctx)
	if err == nil {
		s.setCache(records)
		s.log.Debug("fetched live records", "user", s.user.UserID, "count", len(records), "period", periodHint)
		return records, domain.TierLive
	}
	s.log.Warn("remote fetch failed, degrading", "user", s.user.UserID, "error", err)

	if s.cache != nil {
		if cached, ok := s.cache.Get(s.user.CacheKey()); ok && len(cached) > 0 {
			return cached, domain.TierCached
		}
	}

	return s.loadDurable(ctx), domain.TierFallback
}

func (s *TieredStore) fetchRemote(ctx context.Context) ([]domain.Record, error) {
	if s.remote == nil {
		return nil, apperrors.ErrSourceUnavailable
	}
	records, err := s.remote.Fetch(ctx, s.user.UserID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

func (s *TieredStore) setCache(records []domain.Record) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(s.user.CacheKey(), records)
}

func (s *TieredStore) loadDurable(ctx context.Context) []domain.Record {
	if s.durable == nil {
		return []domain.Record{}
	}
	records, err := s.durable.Load(ctx, s.user.NamespacedKey())
	if err != nil {
		s.log.Warn("durable fallback unreadable, treating as empty", "user", s.user.UserID, "error", err)
		return []domain.Record{}
	}
	if records == nil {
		return []domain.Record{}
	}
	return records
}

// Append writes to the remote best-effort and always to the durable store.
// The returned bool reports whether the remote accepted the record; only a
// durable failure is returned as an error.
func (s *TieredStore) Append(ctx context.Context, record domain.Record) (bool, error) {
	if err := record.Validate(); err != nil {
		return false, err
	}
	remoteOK := false
	if s.remote != nil {
		if err := s.remote.Append(ctx, record); err != nil {
			s.log.Warn("remote append failed, keeping local copy", "user", s.user.UserID, "record", record.ID, "error", err)
		} else {
			remoteOK = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		if cached, ok := s.cache.Get(s.user.CacheKey()); ok {
			s.cache.Set(s.user.CacheKey(), append([]domain.Record{record}, cached...))
		}
	}

	if s.durable == nil {
		return remoteOK, nil
	}
	// A failed read is never saved over.
	existing, err := s.durable.Load(ctx, s.user.NamespacedKey())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("durable fallback unreadable, record not stored locally", "user", s.user.UserID, "record", record.ID, "error", err)
		return remoteOK, fmt.Errorf("load durable fallback: %w", err)
	}
	next := make([]domain.Record, 0, len(existing)+1)
	next = append(next, existing...)
	next = append(next, record)
	if err := s.durable.Save(ctx, s.user.NamespacedKey(), next); err != nil {
		if errors.Is(err, apperrors.ErrStorageQuotaExceeded) {
			s.log.Error("durable fallback quota exceeded", "user", s.user.UserID, "records", len(next))
		}
		return remoteOK, fmt.Errorf("save durable fallback: %w", err)
	}
	return remoteOK, nil
}

// Subscribe forwards remote snapshots to fn, writing each through to the
// process-local cache first.
func (s *TieredStore) Subscribe(ctx context.Context, fn func([]domain.Record)) (func(), error) {
	if s.remote == nil {
		return nil, apperrors.ErrSourceUnavailable
	}
	return s.remote.Subscribe(ctx, s.user.UserID, func(records []domain.Record) {
		if records == nil {
			records = []domain.Record{}
		}
		s.setCache(records)
		fn(records)
	})
}

// Seed pushes already-normalized records to the remote only.
func (s *TieredStore) Seed(ctx context.Context, records []domain.Record) (int, error) {
	if s.remote == nil {
		return 0, apperrors.ErrSourceUnavailable
	}
	for i, record := range records {
		if err := s.remote.Append(ctx, record); err != nil {
			return i, fmt.Errorf("seed remote: %w", err)
		}
	}
	return len(records), nil
}
