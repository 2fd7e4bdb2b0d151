package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-roadmap/internal/platform/database"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

const dbTimeout = 5 * time.Second

// PostgresMigrations create the roadmap and event tables.
var PostgresMigrations = []database.Migration{
	{
		Version: 1,
		Name:    "create roadmaps",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS roadmaps (
				id              TEXT PRIMARY KEY,
				input_digest    TEXT NOT NULL,
				course_id       TEXT,
				weeks_to_exam   INTEGER NOT NULL,
				hours_per_week  DOUBLE PRECISION NOT NULL,
				hours_mode      TEXT NOT NULL,
				roadmap_count   INTEGER NOT NULL,
				policy_feasible BOOLEAN NOT NULL,
				result          JSONB NOT NULL,
				created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_roadmaps_created ON roadmaps (created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_roadmaps_digest ON roadmaps (input_digest)`,
		},
	},
	{
		Version: 2,
		Name:    "create roadmap_events",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS roadmap_events (
				id         BIGSERIAL PRIMARY KEY,
				roadmap_id TEXT,
				event_type TEXT NOT NULL,
				data       JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_roadmap_events_roadmap ON roadmap_events (roadmap_id)`,
		},
	},
}

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
	ids  *idSource
}

// NewPostgresStore migrates the schema and returns a store on db's pool.
func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	if db == nil || db.Pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if err := db.Migrate(ctx, PostgresMigrations...); err != nil {
		return nil, fmt.Errorf("migrate roadmap schema: %w", err)
	}
	return &PostgresStore{pool: db.Pool, ids: newIDSource()}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO roadmaps (id, input_digest, course_id, weeks_to_exam, hours_per_week,
		                       hours_mode, roadmap_count, policy_feasible, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)`,
		id,
		rec.InputDigest,
		nullIfEmpty(rec.CourseID),
		rec.WeeksToExam,
		rec.HoursPerWeek,
		rec.HoursMode,
		len(rec.Result.Roadmaps),
		rec.Feasible,
		string(data),
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert roadmap: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := &Record{}
	var courseID *string
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, input_digest, course_id, weeks_to_exam, hours_per_week,
		        hours_mode, policy_feasible, result, created_at
		 FROM roadmaps
		 WHERE id = $1`,
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
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get roadmap: %w", err)
	}
	if courseID != nil {
		rec.CourseID = *courseID
	}

	var res roadmap.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode roadmap result: %w", err)
	}
	rec.Result = &res
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]RecordSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, weeks_to_exam, hours_per_week, hours_mode,
		        roadmap_count, policy_feasible, created_at
		 FROM roadmaps
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query roadmaps: %w", err)
	}
	defer rows.Close()

	out := []RecordSummary{}
	for rows.Next() {
		var sum RecordSummary
		var courseID *string
		if err := rows.Scan(
			&sum.ID,
			&courseID,
			&sum.WeeksToExam,
			&sum.HoursPerWeek,
			&sum.HoursMode,
			&sum.RoadmapCount,
			&sum.Feasible,
			&sum.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		if courseID != nil {
			sum.CourseID = *courseID
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roadmaps: %w", err)
	}
	return out, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
