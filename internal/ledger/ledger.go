// Package ledger records runs and their per-task outcomes in SQL, either
// PostgreSQL or a local SQLite file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/park285/pgn2gif/internal/dispatch"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

var ErrDSNRequired = errors.New("ledger dsn is required")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pgn2gif_runs (
        id            TEXT PRIMARY KEY,
        started_at    BIGINT NOT NULL,
        finished_at   BIGINT,
        input         TEXT NOT NULL,
        output_dir    TEXT NOT NULL,
        target        TEXT NOT NULL,
        mode          TEXT NOT NULL,
        workers       INTEGER NOT NULL,
        read_count    INTEGER NOT NULL DEFAULT 0,
        selected      INTEGER NOT NULL DEFAULT 0,
        skipped       INTEGER NOT NULL DEFAULT 0,
        parse_errors  INTEGER NOT NULL DEFAULT 0,
        succeeded     INTEGER NOT NULL DEFAULT 0,
        failed        INTEGER NOT NULL DEFAULT 0,
        bytes_written BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS pgn2gif_tasks (
        run_id      TEXT NOT NULL,
        idx         INTEGER NOT NULL,
        path        TEXT NOT NULL,
        white       TEXT NOT NULL,
        black       TEXT NOT NULL,
        status      TEXT NOT NULL,
        stage       TEXT NOT NULL,
        error       TEXT NOT NULL,
        frames      INTEGER NOT NULL,
        bytes       INTEGER NOT NULL,
        duration_ms BIGINT NOT NULL,
        PRIMARY KEY (run_id, idx)
    )`,
}

// RunInfo describes a run at the moment it starts.
type RunInfo struct {
	Input   string
	Output  string
	Target  string
	Mode    string
	Workers int
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is open
	RunInfo
	Read         int
	Selected     int
	Skipped      int
	ParseErrors  int
	Succeeded    int
	Failed       int
	BytesWritten int64
}

type Task struct {
	RunID    string
	Index    int
	Path     string
	White    string
	Black    string
	Status   string
	Stage    string
	Error    string
	Frames   int
	Bytes    int
	Duration time.Duration
}

type Ledger struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to dsn. postgres:// and postgresql:// URLs use lib/pq;
// anything else is taken as a SQLite file path.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Ledger, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}

	switch driver {
	case driverPostgres:
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	case driverSQLite:
		// one writer at a time; workers record tasks concurrently
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
			}
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	l := &Ledger{db: db, driver: driver, logger: logger}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	return l, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// rebind turns ? placeholders into $N for postgres.
func (l *Ledger) rebind(q string) string {
	if l.driver != driverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *Ledger) BeginRun(ctx context.Context, info RunInfo) (string, error) {
	id := uuid.NewString()
	q := l.rebind(`INSERT INTO pgn2gif_runs (id, started_at, input, output_dir, target, mode, workers)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := l.db.ExecContext(ctx, q,
		id, time.Now().UnixMilli(),
		info.Input, info.Output, info.Target, info.Mode, info.Workers,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordTask upserts the outcome of one task.
func (l *Ledger) RecordTask(ctx context.Context, runID string, res dispatch.TaskResult) error {
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	q := l.rebind(`INSERT INTO pgn2gif_tasks (
        run_id, idx, path, white, black, status, stage, error, frames, bytes, duration_ms
      ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
      ON CONFLICT (run_id, idx) DO UPDATE SET
        path=EXCLUDED.path,
        white=EXCLUDED.white,
        black=EXCLUDED.black,
        status=EXCLUDED.status,
        stage=EXCLUDED.stage,
        error=EXCLUDED.error,
        frames=EXCLUDED.frames,
        bytes=EXCLUDED.bytes,
        duration_ms=EXCLUDED.duration_ms`)
	_, err := l.db.ExecContext(ctx, q,
		runID, res.Index, res.Path, res.White, res.Black,
		string(res.Status), string(res.Stage), errText,
		res.Frames, res.Bytes, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert task %d: %w", res.Index, err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, sum dispatch.Summary) error {
	q := l.rebind(`UPDATE pgn2gif_runs SET
        finished_at=?, read_count=?, selected=?, skipped=?, parse_errors=?,
        succeeded=?, failed=?, bytes_written=?
      WHERE id=?`)
	res, err := l.db.ExecContext(ctx, q,
		time.Now().UnixMilli(), sum.Read, sum.Selected, sum.Skipped, sum.ParseErrors,
		sum.Succeeded, sum.Failed, sum.BytesWritten,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// RecentRuns lists the newest runs first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := l.rebind(`SELECT id, started_at, finished_at, input, output_dir, target, mode, workers,
        read_count, selected, skipped, parse_errors, succeeded, failed, bytes_written
      FROM pgn2gif_runs ORDER BY started_at DESC, id LIMIT ?`)
	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &finished,
			&r.Input, &r.Output, &r.Target, &r.Mode, &r.Workers,
			&r.Read, &r.Selected, &r.Skipped, &r.ParseErrors,
			&r.Succeeded, &r.Failed, &r.BytesWritten,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunTasks returns a run's tasks ordered by output index.
func (l *Ledger) RunTasks(ctx context.Context, runID string) ([]Task, error) {
	q := l.rebind(`SELECT run_id, idx, path, white, black, status, stage, error, frames, bytes, duration_ms
      FROM pgn2gif_tasks WHERE run_id=? ORDER BY idx`)
	rows, err := l.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t  Task
			ms int64
		)
		if err := rows.Scan(&t.RunID, &t.Index, &t.Path, &t.White, &t.Black,
			&t.Status, &t.Stage, &t.Error, &t.Frames, &t.Bytes, &ms,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}
