package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	statsdto "recall/internal/modules/stats/dto"
	apperrors "recall/internal/platform/errors"

	_ "modernc.org/sqlite"
)

// SQLiteSnapshotSink keeps the latest published view per user and period.
type SQLiteSnapshotSink struct {
	db *sql.DB
}

func NewSQLiteSnapshotSink(dbPath string) (*SQLiteSnapshotSink, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	sink := &SQLiteSnapshotSink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *SQLiteSnapshotSink) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS stats_snapshots (
  user_id TEXT NOT NULL,
  period TEXT NOT NULL,
  data_source TEXT NOT NULL,
  connected INTEGER NOT NULL,
  record_count INTEGER NOT NULL,
  accuracy INTEGER NOT NULL,
  cards_reviewed INTEGER NOT NULL,
  payload TEXT NOT NULL,
  computed_at TEXT NOT NULL,
  PRIMARY KEY (user_id, period)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create stats_snapshots table: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSnapshotSink) OnStatsUpdated(ctx context.Context, out statsdto.StatsOutput) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode stats snapshot: %w", err)
	}
	const stmt = `
INSERT INTO stats_snapshots (user_id, period, data_source, connected, record_count, accuracy, cards_reviewed, payload, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, period) DO UPDATE SET
  data_source=excluded.data_source,
  connected=excluded.connected,
  record_count=excluded.record_count,
  accuracy=excluded.accuracy,
  cards_reviewed=excluded.cards_reviewed,
  payload=excluded.payload,
  computed_at=excluded.computed_at;
`
	connected := 0
	if out.Connected {
		connected = 1
	}
	_, err = s.db.ExecContext(ctx, stmt,
		out.UserID,
		out.Period,
		out.DataSource,
		connected,
		out.RecordCount,
		out.Overall.Accuracy,
		out.Overall.CardsReviewed,
		string(payload),
		out.ComputedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert stats snapshot: %w", err)
	}
	return nil
}

// Latest returns the last persisted view for the user and period.
func (s *SQLiteSnapshotSink) Latest(ctx context.Context, userID, period string) (statsdto.StatsOutput, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM stats_snapshots WHERE user_id = ? AND period = ?`, userID, period).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return statsdto.StatsOutput{}, apperrors.ErrNotFound
		}
		return statsdto.StatsOutput{}, fmt.Errorf("query stats snapshot: %w", err)
	}
	var out statsdto.StatsOutput
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return statsdto.StatsOutput{}, fmt.Errorf("decode stats snapshot: %w", err)
	}
	return out, nil
}
