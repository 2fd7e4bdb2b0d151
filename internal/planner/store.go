// Package planner wraps the roadmap engine as a service: request
// validation, result caching, persistence and generation events.
package planner

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// ErrNotFound is returned when a roadmap record does not exist.
var ErrNotFound = errors.New("roadmap not found")

// Record is one persisted generation.
type Record struct {
	ID           string          `json:"id"`
	InputDigest  string          `json:"input_digest"`
	CourseID     string          `json:"course_id,omitempty"`
	WeeksToExam  int             `json:"weeks_to_exam"`
	HoursPerWeek float64         `json:"hours_per_week"`
	HoursMode    string          `json:"hours_mode"`
	Feasible     bool            `json:"policy_feasible"`
	Cached       bool            `json:"cached"`
	Result       *roadmap.Result `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RecordSummary is the listing view of a Record.
type RecordSummary struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id,omitempty"`
	WeeksToExam  int       `json:"weeks_to_exam"`
	HoursPerWeek float64   `json:"hours_per_week"`
	HoursMode    string    `json:"hours_mode"`
	RoadmapCount int       `json:"roadmap_count"`
	Feasible     bool      `json:"policy_feasible"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists generated roadmaps.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]RecordSummary, error)
}

// newRecord fills the denormalized columns of a record from its result. The
// first roadmap is the full-coverage one and drives the summary fields.
func newRecord(digest, courseID string, res *roadmap.Result) Record {
	rec := Record{InputDigest: digest, CourseID: courseID, Result: res}
	if res != nil && len(res.Roadmaps) > 0 {
		md := res.Roadmaps[0].Metadata
		rec.WeeksToExam = md.WeeksToExam
		rec.HoursPerWeek = md.HoursPerWeekUsed
		rec.HoursMode = string(md.HoursMode)
		rec.Feasible = md.PolicyFeasible
	}
	return rec
}

func (r Record) summary() RecordSummary {
	count := 0
	if r.Result != nil {
		count = len(r.Result.Roadmaps)
	}
	return RecordSummary{
		ID:           r.ID,
		CourseID:     r.CourseID,
		WeeksToExam:  r.WeeksToExam,
		HoursPerWeek: r.HoursPerWeek,
		HoursMode:    r.HoursMode,
		RoadmapCount: count,
		Feasible:     r.Feasible,
		CreatedAt:    r.CreatedAt,
	}
}

// idSource hands out monotonic ULIDs; safe for concurrent use.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDSource() *idSource {
	return &idSource{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *idSource) next(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]Record
	ids     *idSource
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory roadmap store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		ids:     newIDSource(),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = s.ids.next(rec.CreatedAt)
	s.records[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// List returns the newest records first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]RecordSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RecordSummary, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.summary())
	}
	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
