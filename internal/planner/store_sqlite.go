package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// sqliteTimeLayout is fixed-width so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is a file-backed Store used for local roadmap history.
type SQLiteStore struct {
	db  *sql.DB
	ids *idSource
}

// NewSQLiteStore opens or creates a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, ids: newIDSource()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS roadmaps (
		id              TEXT PRIMARY KEY,
		input_digest    TEXT NOT NULL,
		course_id       TEXT,
		weeks_to_exam   INTEGER NOT NULL,
		hours_per_week  REAL NOT NULL,
		hours_mode      TEXT NOT NULL,
		roadmap_count   INTEGER NOT NULL,
		policy_feasible INTEGER NOT NULL,
		result          TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_roadmaps_created ON roadmaps(created_at DESC);
	`)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) (string, error) {
	if rec.Result == nil {
		return "", fmt.Errorf("result is required")
	}
	data, err := json.Marshal(rec.Result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	id := s.ids.next(createdAt)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roadmaps (id, input_digest, course_id, weeks_to_exam, hours_per_week,
		                       hours_mode, roadmap_count, policy_feasible, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		rec.InputDigest,
		nullIfEmpty(rec.CourseID),
		rec.WeeksToExam,
		rec.HoursPerWeek,
		rec.HoursMode,
		len(rec.Result.Roadmaps),
		rec.Feasible,
		string(data),
		createdAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert roadmap: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	var courseID sql.NullString
	var data, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_digest, course_id, weeks_to_exam, hours_per_week,
		        hours_mode, policy_feasible, result, created_at
		 FROM roadmaps WHERE id = ?`,
		id,
	).Scan(
		&rec.ID,
		&rec.InputDigest,
		&courseID,
		&rec.WeeksToExam,
		&rec.HoursPerWeek,
		&rec.HoursMode,
		&rec.Feasible,
		&data,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get roadmap: %w", err)
	}
	rec.CourseID = courseID.String
	rec.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)

	var res roadmap.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode roadmap result: %w", err)
	}
	rec.Result = &res
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]RecordSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, weeks_to_exam, hours_per_week, hours_mode,
		        roadmap_count, policy_feasible, created_at
		 FROM roadmaps
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query roadmaps: %w", err)
	}
	defer rows.Close()

	out := []RecordSummary{}
	for rows.Next() {
		var sum RecordSummary
		var courseID sql.NullString
		var createdAt string
		if err := rows.Scan(
			&sum.ID,
			&courseID,
			&sum.WeeksToExam,
			&sum.HoursPerWeek,
			&sum.HoursMode,
			&sum.RoadmapCount,
			&sum.Feasible,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		sum.CourseID = courseID.String
		sum.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roadmaps: %w", err)
	}
	return out, nil
}
