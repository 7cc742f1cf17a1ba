package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	sessionoutadapter "recall/internal/modules/session/adapter/out"
	"recall/internal/modules/session/domain"
	"recall/internal/modules/session/service"
	apperrors "recall/internal/platform/errors"
)

type fakeRemote struct {
	mu        sync.Mutex
	records   []domain.Record
	fetchErr  error
	appendErr error
	appended  []domain.Record
	push      func([]domain.Record)
}

func (f *fakeRemote) Fetch(context.Context, string) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]domain.Record(nil), f.records...), nil
}

func (f *fakeRemote) Subscribe(_ context.Context, _ string, fn func([]domain.Record)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push = fn
	return func() {}, nil
}

func (f *fakeRemote) Append(_ context.Context, record domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, record)
	return nil
}

type mapCache map[string][]domain.Record

func (m mapCache) Get(key string) ([]domain.Record, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) Set(key string, records []domain.Record) { m[key] = records }

type fakeDurable struct {
	data    map[string][]domain.Record
	loadErr error
	saveErr error
	// flakyErr fails the next flakyLoads loads, then loads recover.
	flakyErr   error
	flakyLoads int
}

func (f *fakeDurable) Load(_ context.Context, key string) ([]domain.Record, error) {
	if f.flakyLoads > 0 {
		f.flakyLoads--
		return nil, f.flakyErr
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.data[key], nil
}

func (f *fakeDurable) Save(_ context.Context, key string, records []domain.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data[key] = records
	return nil
}

var user = domain.UserContext{UserID: "u1"}

func record(id string) domain.Record {
	return domain.Record{ID: id, UserID: "u1", Category: "Math", TotalQuestions: 10, CorrectAnswers: 5, TotalTime: 20, Timestamp: time.UnixMilli(1740996000000)}
}

func TestFetchPrefersLiveAndWritesThrough(t *testing.T) {
	t.Parallel()
	remote := &fakeRemote{records: []domain.Record{record("a")}}
	cache := mapCache{}
	store := service.NewTieredStore(user, remote, cache, &fakeDurable{data: map[string][]domain.Record{}}, nil)

	records, tier := store.Fetch(context.Background(), "week")
	if tier != domain.TierLive || len(records) != 1 {
		t.Fatalf("expected one live record, got %s %d", tier, len(records))
	}
	if cached := cache[user.CacheKey()]; len(cached) != 1 {
		t.Fatalf("expected cache write-through, got %+v", cached)
	}
}

func TestFetchEmptyLiveIsStillLive(t *testing.T) {
	t.Parallel()
	store := service.NewTieredStore(user, &fakeRemote{}, mapCache{}, nil, nil)
	records, tier := store.Fetch(context.Background(), "")
	if tier != domain.TierLive || records == nil || len(records) != 0 {
		t.Fatalf("expected empty live result, got %s %v", tier, records)
	}
}

func TestFetchDegradesToCacheThenFallback(t *testing.T) {
	t.Parallel()
	remote := &fakeRemote{fetchErr: errors.New("offline")}
	cache := mapCache{user.CacheKey(): {record("cached")}}
	durable := &fakeDurable{data: map[string][]domain.Record{user.NamespacedKey(): {record("durable")}}}
	store := service.NewTieredStore(user, remote, cache, durable, nil)

	records, tier := store.Fetch(context.Background(), "")
	if tier != domain.TierCached || records[0].ID != "cached" {
		t.Fatalf("expected cached tier, got %s %+v", tier, records)
	}

	delete(cache, user.CacheKey())
	records, tier = store.Fetch(context.Background(), "")
	if tier != domain.TierFallback || len(records) != 1 || records[0].ID != "durable" {
		t.Fatalf("expected fallback tier, got %s %+v", tier, records)
	}
}

func TestFetchEmptyCacheFallsThrough(t *testing.T) {
	t.Parallel()
	cache := mapCache{user.CacheKey(): {}}
	store := service.NewTieredStore(user, nil, cache, &fakeDurable{data: map[string][]domain.Record{}}, nil)
	records, tier := store.Fetch(context.Background(), "")
	if tier != domain.TierFallback || len(records) != 0 {
		t.Fatalf("expected empty fallback, got %s %+v", tier, records)
	}
}

func TestFetchUnreadableDurableIsEmptyFallback(t *testing.T) {
	t.Parallel()
	durable := &fakeDurable{loadErr: errors.New("decode fallback file: bad json")}
	store := service.NewTieredStore(user, &fakeRemote{fetchErr: errors.New("down")}, mapCache{}, durable, nil)
	records, tier := store.Fetch(context.Background(), "")
	if tier != domain.TierFallback || records == nil || len(records) != 0 {
		t.Fatalf("expected empty fallback, got %s %v", tier, records)
	}
}

func TestAppendWritesDurableEvenWhenRemoteFails(t *testing.T) {
	t.Parallel()
	remote := &fakeRemote{appendErr: errors.New("offline")}
	durable := &fakeDurable{data: map[string][]domain.Record{user.NamespacedKey(): {record("old")}}}
	store := service.NewTieredStore(user, remote, mapCache{}, durable, nil)

	ok, err := store.Append(context.Background(), record("new"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ok {
		t.Fatalf("expected remote rejection to be reported")
	}
	saved := durable.data[user.NamespacedKey()]
	if len(saved) != 2 || saved[1].ID != "new" {
		t.Fatalf("expected durable append, got %+v", saved)
	}
}

func TestAppendSurfacesQuotaError(t *testing.T) {
	t.Parallel()
	remote := &fakeRemote{}
	durable := &fakeDurable{data: map[string][]domain.Record{}, saveErr: apperrors.ErrStorageQuotaExceeded}
	store := service.NewTieredStore(user, remote, mapCache{}, durable, nil)

	ok, err := store.Append(context.Background(), record("new"))
	if !errors.Is(err, apperrors.ErrStorageQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if !ok || len(remote.appended) != 1 {
		t.Fatalf("expected remote write to succeed before quota failure")
	}
}

func TestAppendRefusesToOverwriteAfterLoadFailure(t *testing.T) {
	t.Parallel()
	key := user.NamespacedKey()
	durable := &fakeDurable{
		data:       map[string][]domain.Record{key: {record("r1"), record("r2"), record("r3")}},
		flakyErr:   fmt.Errorf("read fallback file: %w", syscall.EIO),
		flakyLoads: 1,
	}
	store := service.NewTieredStore(user, &fakeRemote{appendErr: errors.New("offline")}, mapCache{}, durable, nil)

	if _, err := store.Append(context.Background(), record("r4")); !errors.Is(err, syscall.EIO) {
		t.Fatalf("expected load error to surface, got %v", err)
	}
	if saved := durable.data[key]; len(saved) != 3 {
		t.Fatalf("expected history untouched after failed read, got %d records", len(saved))
	}

	if _, err := store.Append(context.Background(), record("r4")); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	if saved := durable.data[key]; len(saved) != 4 || saved[3].ID != "r4" {
		t.Fatalf("expected 4 records after recovery, got %+v", saved)
	}
}

func TestAppendConcurrentKeepsEveryRecord(t *testing.T) {
	t.Parallel()
	durable := sessionoutadapter.NewFileDurableStore(filepath.Join(t.TempDir(), "fallback"), 0, time.UTC)
	cache := mapCache{user.CacheKey(): {}}
	store := service.NewTieredStore(user, &fakeRemote{appendErr: errors.New("offline")}, cache, durable, nil)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Append(context.Background(), record(fmt.Sprintf("c%02d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append: %v", err)
	}

	saved, err := durable.Load(context.Background(), user.NamespacedKey())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved) != writers {
		t.Fatalf("expected %d durable records, got %d", writers, len(saved))
	}
	seen := map[string]bool{}
	for _, r := range saved {
		seen[r.ID] = true
	}
	if len(seen) != writers {
		t.Fatalf("expected %d distinct records, got %d", writers, len(seen))
	}
	if cached := cache[user.CacheKey()]; len(cached) != writers {
		t.Fatalf("expected %d cached records, got %d", writers, len(cached))
	}
}

func TestAppendRejectsMalformedRecord(t *testing.T) {
	t.Parallel()
	store := service.NewTieredStore(user, &fakeRemote{}, mapCache{}, &fakeDurable{data: map[string][]domain.Record{}}, nil)
	bad := record("bad")
	bad.Timestamp = time.Time{}
	if _, err := store.Append(context.Background(), bad); !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Fatalf("expected malformed record, got %v", err)
	}
}

func TestSubscribeWritesThroughToCache(t *testing.T) {
	t.Parallel()
	remote := &fakeRemote{}
	cache := mapCache{}
	store := service.NewTieredStore(user, remote, cache, nil, nil)

	var got []domain.Record
	if _, err := store.Subscribe(context.Background(), func(records []domain.Record) { got = records }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	remote.push([]domain.Record{record("pushed")})
	if len(got) != 1 || len(cache[user.CacheKey()]) != 1 {
		t.Fatalf("expected push delivered and cached, got %+v / %+v", got, cache)
	}
}

func TestSubscribeWithoutRemoteFails(t *testing.T) {
	t.Parallel()
	store := service.NewTieredStore(user, nil, mapCache{}, nil, nil)
	if _, err := store.Subscribe(context.Background(), func([]domain.Record) {}); !errors.Is(err, apperrors.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}
