package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"recall/internal/modules/session/domain"
	"recall/internal/platform/clock"
	"recall/internal/platform/logging"

	_ "modernc.org/sqlite"
)

// SQLiteRemote is the live tier backed by a shared SQLite file. Rows keep the
// raw wire form, so timestamps and missing fields are normalized on read.
// Zone-less timestamps are read in loc.
type SQLiteRemote struct {
	db        *sql.DB
	interval  time.Duration
	newTicker clock.TickerFactory
	loc       *time.Location
	log       hclog.Logger
}

func NewSQLiteRemote(dbPath string, pollInterval time.Duration, newTicker clock.TickerFactory, loc *time.Location, log hclog.Logger) (*SQLiteRemote, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create remote db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open remote sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if newTicker == nil {
		newTicker = clock.NewSystemTicker
	}
	remote := &SQLiteRemote{
		db:        db,
		interval:  pollInterval,
		newTicker: newTicker,
		loc:       loc,
		log:       logging.OrNull(log).Named("sqlite-remote"),
	}
	if err := remote.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return remote, nil
}

func (s *SQLiteRemote) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS quiz_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  total_questions INTEGER,
  correct_answers INTEGER,
  skipped INTEGER,
  total_time REAL,
  timestamp TEXT NOT NULL,
  revision INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_quiz_sessions_user ON quiz_sessions(user_id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create quiz_sessions table: %w", err)
	}
	return s.ensureRevisionColumn(ctx)
}

// ensureRevisionColumn upgrades tables created before rows carried a write
// counter.
func (s *SQLiteRemote) ensureRevisionColumn(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(quiz_sessions)`)
	if err != nil {
		return fmt.Errorf("inspect quiz_sessions: %w", err)
	}
	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan quiz_sessions column: %w", err)
		}
		if name == "revision" {
			found = true
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("inspect quiz_sessions: %w", err)
	}
	if found {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE quiz_sessions ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add revision column: %w", err)
	}
	return nil
}

func (s *SQLiteRemote) Close() error {
	return s.db.Close()
}

func (s *SQLiteRemote) Fetch(ctx context.Context, userID string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, category, total_questions, correct_answers, skipped, total_time, timestamp
FROM quiz_sessions
WHERE user_id = ?
ORDER BY rowid
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query quiz sessions: %w", err)
	}
	defer rows.Close()

	raws := []domain.RawRecord{}
	for rows.Next() {
		var (
			raw                     domain.RawRecord
			total, correct, skipped sql.NullInt64
			spent                   sql.NullFloat64
			ts                      string
		)
		if err := rows.Scan(&raw.ID, &raw.UserID, &raw.Category, &total, &correct, &skipped, &spent, &ts); err != nil {
			return nil, fmt.Errorf("scan quiz session: %w", err)
		}
		raw.TotalQuestions = nullInt(total)
		raw.CorrectAnswers = nullInt(correct)
		raw.Skipped = nullInt(skipped)
		if spent.Valid {
			v := spent.Float64
			raw.TotalTime = &v
		}
		raw.Timestamp = json.RawMessage(ts)
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz sessions: %w", err)
	}

	records, dropped := domain.NormalizeAll(raws, s.loc)
	if dropped > 0 {
		s.log.Warn("dropped malformed remote records", "user", userID, "dropped", dropped)
	}
	return records, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func (s *SQLiteRemote) Append(ctx context.Context, record domain.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.InsertRaw(ctx, domain.ToRaw(record))
}

// InsertRaw stores a record exactly as given, including absent fields.
func (s *SQLiteRemote) InsertRaw(ctx context.Context, raw domain.RawRecord) error {
	ts := string(raw.Timestamp)
	if ts == "" {
		ts = "null"
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO quiz_sessions (id, user_id, category, total_questions, correct_answers, skipped, total_time, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  user_id=excluded.user_id,
  category=excluded.category,
  total_questions=excluded.total_questions,
  correct_answers=excluded.correct_answers,
  skipped=excluded.skipped,
  total_time=excluded.total_time,
  timestamp=excluded.timestamp,
  revision=quiz_sessions.revision + 1;
`,
		raw.ID,
		raw.UserID,
		raw.Category,
		intOrNil(raw.TotalQuestions),
		intOrNil(raw.CorrectAnswers),
		intOrNil(raw.Skipped),
		floatOrNil(raw.TotalTime),
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert quiz session: %w", err)
	}
	return nil
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// changeMark moves on inserts, deletes and in-place upserts of a user's rows.
type changeMark struct {
	count     int64
	lastID    int64
	revisions int64
}

func (s *SQLiteRemote) mark(ctx context.Context, userID string) (changeMark, error) {
	var m changeMark
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(MAX(rowid), 0), COALESCE(SUM(revision), 0)
FROM quiz_sessions
WHERE user_id = ?
`, userID).Scan(&m.count, &m.lastID, &m.revisions)
	if err != nil {
		return changeMark{}, fmt.Errorf("read change mark: %w", err)
	}
	return m, nil
}

// Subscribe delivers the current snapshot, then a fresh snapshot whenever
// the user's rows change. Poll errors are logged and retried on the next tick.
func (s *SQLiteRemote) Subscribe(ctx context.Context, userID string, fn func([]domain.Record)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe: nil callback")
	}
	initial, err := s.mark(ctx, userID)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := s.newTicker(s.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		last := initial
		if records, err := s.Fetch(pollCtx, userID); err == nil {
			fn(records)
		} else if pollCtx.Err() == nil {
			s.log.Warn("initial snapshot failed", "user", userID, "error", err)
			last = changeMark{count: -1}
		}

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C():
			}
			current, err := s.mark(pollCtx, userID)
			if err != nil {
				if pollCtx.Err() == nil {
					s.log.Warn("poll change mark failed", "user", userID, "error", err)
				}
				continue
			}
			if current == last {
				continue
			}
			records, err := s.Fetch(pollCtx, userID)
			if err != nil {
				if pollCtx.Err() == nil {
					s.log.Warn("poll snapshot failed", "user", userID, "error", err)
				}
				continue
			}
			last = current
			if pollCtx.Err() != nil {
				return
			}
			fn(records)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
