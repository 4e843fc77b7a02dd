// Package store keeps the history of batch runs and what happened to every
// record in them.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"blogposter/internal/post"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Config selects a local sqlite file or a remote libsql database.
type Config struct {
	File      string `json:"file"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and applies Schema.
func (c Config) OpenDB() (*sql.DB, error) {
	var db *sql.DB
	var err error
	switch {
	case c.URL != "":
		dsn := c.URL
		if c.AuthToken != "" {
			u, err := url.Parse(c.URL)
			if err != nil {
				return nil, fmt.Errorf("database url: %w", err)
			}
			q := u.Query()
			q.Set("authToken", c.AuthToken)
			u.RawQuery = q.Encode()
			dsn = u.String()
		}
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	case c.File != "":
		db, err = OpenFile(c.File)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("a database file or url was not specified")
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// OpenFile opens a local sqlite database, ":memory:" included.
func OpenFile(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

// Finished reports whether the run got to its end, a crashed run never does.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

type OutcomeRow struct {
	RunID       string
	Index       int
	Title       string
	Status      post.Status
	FailedStage post.Stage
	Diagnostic  string
	PostURL     string
	Error       string
	Attempts    int
	SessionLost bool
	RecordedAt  time.Time
}

func (s Store) BeginRun(ctx context.Context, runID string, startedAt time.Time, total int) error {
	_, err := s.db.ExecContext(
		ctx,
		"insert into runs(id, started_at, total) values (?, ?, ?)",
		runID, startedAt.Unix(), total,
	)
	return err
}

func (s Store) RecordOutcome(ctx context.Context, runID string, index int, outcome post.Outcome, at time.Time) error {
	errText := ""
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	failedStage := ""
	if outcome.FailedStage != post.StageNone {
		failedStage = outcome.FailedStage.String()
	}
	_, err := s.db.ExecContext(
		ctx,
		`insert or replace into outcomes(
			run_id, idx, title, status, failed_stage, diagnostic, post_url, error, attempts, session_lost, recorded_at
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, index, outcome.Record.Title, outcome.Status.String(), failedStage,
		outcome.Diagnostic, outcome.PostURL, errText, outcome.Attempts, outcome.SessionLost, at.Unix(),
	)
	return err
}

// EndRun marks a run finished and tallies its outcomes.
func (s Store) EndRun(ctx context.Context, runID string, finishedAt time.Time, runErr error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	counts := map[string]int{}
	rows, err := tx.QueryContext(ctx, "select status, count(*) from outcomes where run_id = ? group by status", runID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var status string
		var n int
		err = rows.Scan(&status, &n)
		if err != nil {
			rows.Close()
			return err
		}
		counts[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := tx.ExecContext(
		ctx,
		`update runs set finished_at = ?, succeeded = ?, failed = ?, skipped = ?, error = ? where id = ?`,
		finishedAt.Unix(),
		counts[post.StatusSucceeded.String()],
		counts[post.StatusFailed.String()],
		counts[post.StatusSkipped.String()],
		errText,
		runID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s does not exist", runID)
	}
	return tx.Commit()
}

// Runs returns the most recent runs first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select id, started_at, finished_at, total, succeeded, failed, skipped, error
		from runs order by started_at desc, id limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		err := rows.Scan(&r.ID, &started, &finished, &r.Total, &r.Succeeded, &r.Failed, &r.Skipped, &r.Error)
		if err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ErrUnknownRun is returned by Outcomes for a run that was never begun.
var ErrUnknownRun = errors.New("unknown run")

func (s Store) Outcomes(ctx context.Context, runID string) ([]OutcomeRow, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "select count(*) from runs where id = ?", runID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`select run_id, idx, title, status, failed_stage, diagnostic, post_url, error, attempts, session_lost, recorded_at
		from outcomes where run_id = ? order by idx`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutcomeRow
	for rows.Next() {
		var o OutcomeRow
		var status, stage string
		var recorded int64
		err := rows.Scan(
			&o.RunID, &o.Index, &o.Title, &status, &stage, &o.Diagnostic,
			&o.PostURL, &o.Error, &o.Attempts, &o.SessionLost, &recorded,
		)
		if err != nil {
			return nil, err
		}
		o.Status = post.ParseStatus(status)
		o.FailedStage = post.ParseStage(stage)
		o.RecordedAt = time.Unix(recorded, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}
