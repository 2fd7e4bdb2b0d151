package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// ServiceConfig holds dependencies for the planner service.
type ServiceConfig struct {
	Store      Store
	Events     EventLogger
	Cache      ResultCache         // optional
	Curriculum curriculum.Provider // optional; resolves course_id requests
	Overrides  map[string]any      // engine overrides applied beneath each request's own
}

// Service validates, generates, caches and persists roadmaps.
type Service struct {
	store      Store
	events     EventLogger
	cache      ResultCache
	curriculum curriculum.Provider
	overrides  map[string]any
	validator  *SchemaValidator
}

// NewService creates a planner service. A nil store defaults to memory and a
// nil event logger discards events.
func NewService(cfg ServiceConfig) (*Service, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Service{
		store:      store,
		events:     events,
		cache:      cfg.Cache,
		curriculum: cfg.Curriculum,
		overrides:  cfg.Overrides,
		validator:  validator,
	}, nil
}

// request carries the service-only fields of a generation request.
type request struct {
	CourseID string `json:"course_id"`
}

// Generate validates raw, generates the roadmaps (or reuses a cached result
// for an identical input) and persists the outcome. observer, when non-nil,
// receives every hours-solver pass of a fresh generation.
func (s *Service) Generate(ctx context.Context, raw []byte, observer roadmap.Observer) (*Record, error) {
	start := time.Now()

	in, courseID, err := s.prepare(raw)
	if err != nil {
		s.logEvent(Event{EventType: EventRejected, Data: map[string]any{"error": err.Error()}})
		return nil, err
	}

	digest, err := inputDigest(in)
	if err != nil {
		return nil, err
	}

	res, cached := s.cached(ctx, digest)
	if !cached {
		opts := []roadmap.Option{roadmap.WithObserver(func(step roadmap.SolverStep) {
			slog.Debug("solver step",
				"mode", step.Mode,
				"iteration", step.Iteration,
				"hours_per_week", step.HoursPerWeek,
				"remaining_backlog_minutes", step.RemainingBacklogMinutes,
			)
			if observer != nil {
				observer(step)
			}
		})}
		res, err = roadmap.Generate(in, opts...)
		if err != nil {
			s.logEvent(Event{EventType: EventFailed, Data: map[string]any{"error": err.Error(), "input_digest": digest}})
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, digest, res); err != nil {
				slog.Warn("failed to cache roadmap", "input_digest", digest, "error", err)
			}
		}
	}

	rec := newRecord(digest, courseID, res)
	rec.Cached = cached
	id, err := s.store.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("save roadmap: %w", err)
	}
	rec.ID = id

	eventType := EventGenerated
	if cached {
		eventType = EventCacheHit
	}
	s.logEvent(Event{
		RoadmapID: id,
		EventType: eventType,
		Data: map[string]any{
			"input_digest":    digest,
			"roadmaps":        len(res.Roadmaps),
			"hours_per_week":  rec.HoursPerWeek,
			"hours_mode":      rec.HoursMode,
			"policy_feasible": rec.Feasible,
		},
	})

	slog.Info("roadmap generated",
		"roadmap_id", id,
		"course_id", courseID,
		"weeks_to_exam", rec.WeeksToExam,
		"hours_per_week", rec.HoursPerWeek,
		"hours_mode", rec.HoursMode,
		"roadmaps", len(res.Roadmaps),
		"cached", cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &rec, nil
}

// Get returns a stored roadmap.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// List returns summaries of the newest stored roadmaps.
func (s *Service) List(ctx context.Context, limit int) ([]RecordSummary, error) {
	return s.store.List(ctx, limit)
}

// EffectiveDefaults returns the engine config after service-level overrides.
func (s *Service) EffectiveDefaults() (roadmap.Config, []string, error) {
	return roadmap.ResolveConfig(s.overrides)
}

// prepare validates raw against the schema, decodes it, resolves a course_id
// to its overview and layers the service overrides beneath the request's.
func (s *Service) prepare(raw []byte) (roadmap.Input, string, error) {
	if err := s.validator.Validate(raw); err != nil {
		return roadmap.Input{}, "", err
	}
	in, err := roadmap.DecodeInput(raw)
	if err != nil {
		return roadmap.Input{}, "", err
	}
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return roadmap.Input{}, "", &roadmap.ValidationError{Problems: []string{fmt.Sprintf("decode input: %v", err)}}
	}

	if req.CourseID != "" && in.CourseModularOverview.Sections == nil {
		if s.curriculum == nil {
			return roadmap.Input{}, "", &roadmap.ValidationError{Problems: []string{"course_id given but no curriculum is loaded"}}
		}
		course, ok := s.curriculum.Course(req.CourseID)
		if !ok {
			return roadmap.Input{}, "", &roadmap.ValidationError{Problems: []string{fmt.Sprintf("course_id %q not found", req.CourseID)}}
		}
		in.CourseModularOverview = course.Overview
	}

	if len(s.overrides) > 0 {
		in.ConfigOverrides = roadmap.MergeOverrides(s.overrides, in.ConfigOverrides)
	}
	return in, req.CourseID, nil
}

func (s *Service) cached(ctx context.Context, digest string) (*roadmap.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	res, ok, err := s.cache.Get(ctx, digest)
	if err != nil {
		slog.Warn("roadmap cache lookup failed", "input_digest", digest, "error", err)
		return nil, false
	}
	return res, ok
}

func (s *Service) logEvent(e Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log event", "type", e.EventType, "error", err)
	}
}

// IsValidation reports whether err is a caller-side input problem.
func IsValidation(err error) bool {
	var ve *roadmap.ValidationError
	return errors.As(err, &ve)
}
