package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"recall/internal/modules/session/domain"
	sessionout "recall/internal/modules/session/port/out"
	apperrors "recall/internal/platform/errors"
)

type fallbackFile struct {
	SchemaVersion int                `json:"schema_version"`
	Records       []domain.RawRecord `json:"records"`
}

// FileDurableStore keeps one JSON document per namespaced key under dir.
// A quota of zero or less disables the size check. Entries that do not
// normalize are hidden from Load but carried over by Save.
type FileDurableStore struct {
	dir        string
	quotaBytes int64
	loc        *time.Location
	now        func() time.Time

	mu sync.Mutex
}

func NewFileDurableStore(dir string, quotaBytes int64, loc *time.Location) sessionout.DurableStore {
	return &FileDurableStore{dir: dir, quotaBytes: quotaBytes, loc: loc, now: time.Now}
}

func (s *FileDurableStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: bad fallback key %q", apperrors.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, clean+".json"), nil
}

// Load returns an empty slice for a missing key. An undecodable file is moved
// aside to <key>.json.corrupt-<unix> and reads as empty; read errors are
// returned as is.
func (s *FileDurableStore) Load(_ context.Context, key string) ([]domain.Record, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, _, err := s.read(path)
	return records, err
}

func (s *FileDurableStore) read(path string) ([]domain.Record, []domain.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Record{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read fallback file: %w", err)
	}
	var file fallbackFile
	if err := json.Unmarshal(data, &file); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", path, s.now().Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, nil, fmt.Errorf("decode fallback file: %w (move aside: %v)", err, rerr)
		}
		return []domain.Record{}, nil, nil
	}
	records := make([]domain.Record, 0, len(file.Records))
	var unreadable []domain.RawRecord
	for _, raw := range file.Records {
		record, err := domain.Normalize(raw, s.loc)
		if err != nil {
			unreadable = append(unreadable, raw)
			continue
		}
		records = append(records, record)
	}
	return records, unreadable, nil
}

// Save replaces the key's records. Entries already on disk that do not
// normalize are written back ahead of records.
func (s *FileDurableStore) Save(_ context.Context, key string, records []domain.Record) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, unreadable, err := s.read(path)
	if err != nil {
		return err
	}
	file := fallbackFile{SchemaVersion: domain.SchemaVersion, Records: make([]domain.RawRecord, 0, len(unreadable)+len(records))}
	file.Records = append(file.Records, unreadable...)
	for _, record := range records {
		file.Records = append(file.Records, domain.ToRaw(record))
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fallback file: %w", err)
	}
	if s.quotaBytes > 0 && int64(len(data)) > s.quotaBytes {
		return fmt.Errorf("%w: %d bytes over limit %d", apperrors.ErrStorageQuotaExceeded, len(data), s.quotaBytes)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create fallback temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		if errors.Is(err, syscall.ENOSPC) {
			return fmt.Errorf("%w: %v", apperrors.ErrStorageQuotaExceeded, err)
		}
		return fmt.Errorf("write fallback file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close fallback temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod fallback file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace fallback file: %w", err)
	}
	return nil
}
