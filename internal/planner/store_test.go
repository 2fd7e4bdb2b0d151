package planner_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

func sampleResult(t *testing.T) *roadmap.Result {
	t.Helper()
	res, err := roadmap.GenerateJSON([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	return res
}

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s planner.Store) {
	t.Helper()
	ctx := context.Background()
	res := sampleResult(t)
	md := res.Roadmaps[0].Metadata

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Save(ctx, planner.Record{
			InputDigest:  "digest",
			CourseID:     "arch-2027",
			WeeksToExam:  md.WeeksToExam,
			HoursPerWeek: md.HoursPerWeekUsed,
			HoursMode:    string(md.HoursMode),
			Feasible:     md.PolicyFeasible,
			Result:       res,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if id == "" {
			t.Fatal("Save() returned empty ID")
		}
		ids = append(ids, id)
	}

	got, err := s.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CourseID != "arch-2027" {
		t.Errorf("CourseID = %q, want arch-2027", got.CourseID)
	}
	if got.HoursPerWeek != md.HoursPerWeekUsed {
		t.Errorf("HoursPerWeek = %v, want %v", got.HoursPerWeek, md.HoursPerWeekUsed)
	}
	if len(got.Result.Roadmaps) != len(res.Roadmaps) {
		t.Errorf("roadmaps = %d, want %d", len(got.Result.Roadmaps), len(res.Roadmaps))
	}
	if got.Result.Roadmaps[0].Metadata.SprintCount != md.SprintCount {
		t.Errorf("SprintCount = %d, want %d", got.Result.Roadmaps[0].Metadata.SprintCount, md.SprintCount)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	if list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Errorf("List() order = [%s %s], want newest first [%s %s]", list[0].ID, list[1].ID, ids[2], ids[1])
	}
	if list[0].RoadmapCount != len(res.Roadmaps) {
		t.Errorf("RoadmapCount = %d, want %d", list[0].RoadmapCount, len(res.Roadmaps))
	}

	if _, err := s.Get(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, planner.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := planner.NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "roadmaps.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmaps.db")
	ctx := context.Background()

	s, err := planner.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	id, err := s.Save(ctx, planner.Record{InputDigest: "d", HoursMode: "auto", Result: sampleResult(t)})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	s, err = planner.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, id); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}

func TestSQLiteStore_SaveRequiresResult(t *testing.T) {
	s, err := planner.NewSQLiteStore(filepath.Join(t.TempDir(), "roadmaps.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Save(context.Background(), planner.Record{}); err == nil {
		t.Error("expected error for record without result")
	}
}
