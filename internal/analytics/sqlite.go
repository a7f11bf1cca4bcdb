package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/playhead-dev/playhead/internal/clock"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	org_id  TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	surface TEXT NOT NULL DEFAULT '',
	time_ms INTEGER NOT NULL,
	fields  TEXT
);
CREATE INDEX IF NOT EXISTS idx_analytics_events_time ON analytics_events (time_ms);
`

// SQLiteSink stores events locally so the dashboard can show history.
// Inserts are best-effort; failures are logged and dropped.
type SQLiteSink struct {
	mu    sync.Mutex
	sqlDB *sql.DB
	clk   clock.Clock
}

// OpenSQLite opens (creating if needed) the events database at path.
func OpenSQLite(path string, clk clock.Clock) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("analytics db path is required")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create analytics schema: %w", err)
	}

	return &SQLiteSink{sqlDB: sqlDB, clk: clk}, nil
}

func (s *SQLiteSink) Emit(e Event) {
	e = fill(e, s.clk.Now())

	var fields []byte
	if len(e.Fields) > 0 {
		var err error
		fields, err = json.Marshal(e.Fields)
		if err != nil {
			log.Printf("analytics encode error: %v", err)
			fields = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.sqlDB.Exec(
		`INSERT INTO analytics_events (id, name, org_id, user_id, surface, time_ms, fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.OrgID, e.UserID, e.Surface, e.Time.UTC().UnixMilli(), nullable(fields),
	)
	if err != nil {
		log.Printf("analytics insert error: %v", err)
	}
}

// Recent returns up to limit events, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, org_id, user_id, surface, time_ms, fields
		 FROM analytics_events ORDER BY time_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analytics events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			timeMs int64
			fields sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.OrgID, &e.UserID, &e.Surface, &timeMs, &fields); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.Time = time.UnixMilli(timeMs).UTC()
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("decode analytics fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLiteSink) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
