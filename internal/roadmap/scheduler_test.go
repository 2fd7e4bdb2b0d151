package roadmap_test

import (
	"testing"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// smallModulesInput is one Logic section of six 40-minute lessons.
func smallModulesInput(weeks int, h float64) roadmap.Input {
	var subs []curriculum.Submodule
	for _, name := range []string{"Truth tables", "Implication", "Quantifiers", "Sets", "Sequences", "Puzzles"} {
		subs = append(subs, sub(name, 40, 0, 0, 0))
	}
	return roadmap.Input{
		WeeksToExam:           weeks,
		HoursPerWeek:          hours(h),
		LevelsBySection:       map[string]int{"Logic": 3},
		CourseModularOverview: curriculum.CourseOverview{Sections: []curriculum.Section{section("Logic", subs...)}},
	}
}

type firstCore struct {
	item   roadmap.SprintItem
	final  bool
	sprint int
	total  float64
}

// firstCoreItems returns each submodule's first core item and its total core minutes.
func firstCoreItems(rm roadmap.Roadmap) map[string]*firstCore {
	out := map[string]*firstCore{}
	for i, sp := range rm.Sprints {
		for _, it := range sp.Items {
			if !isCore(it) {
				continue
			}
			key := it.SectionTitle + "/" + it.SubmoduleName
			fc, ok := out[key]
			if !ok {
				fc = &firstCore{item: it, final: i == len(rm.Sprints)-1, sprint: sp.SprintNumber}
				out[key] = fc
			}
			fc.total += it.PlannedTotalMinutes
		}
	}
	return out
}

func TestGenerate_SmallModuleProtection(t *testing.T) {
	tests := []struct {
		name        string
		in          roadmap.Input
		wantPartial bool
	}{
		{name: "auto 4 weeks", in: baseInput(4)},
		{name: "auto 10 weeks", in: baseInput(10)},
		{name: "auto 20 weeks", in: baseInput(20)},
		{name: "tight manual hours", in: smallModulesInput(12, 1)},
		{
			name: "protection off",
			in: func() roadmap.Input {
				in := smallModulesInput(12, 1)
				in.ConfigOverrides = map[string]any{"UNSPLIT_MODULE_MAX_MIN": 0}
				return in
			}(),
			wantPartial: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := roadmap.Generate(tt.in)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			limit := res.EffectiveConfig.UnsplitModuleMaxMin
			partial := false
			for key, fc := range firstCoreItems(res.Roadmaps[0]) {
				if !fc.item.IsPartial || fc.final {
					continue
				}
				partial = true
				if !tt.wantPartial && fc.total <= limit {
					t.Errorf("%s (%.0f min) started partially in sprint %d", key, fc.total, fc.sprint)
				}
			}
			if tt.wantPartial && !partial {
				t.Error("expected a small submodule to be started partially without protection")
			}
		})
	}

	t.Run("deferred modules still complete", func(t *testing.T) {
		res, err := roadmap.Generate(smallModulesInput(12, 1))
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got := totalBacklog(res.Roadmaps[0]); got != 0 {
			t.Errorf("remaining backlog = %v, want 0", got)
		}
	})
}

func TestGenerate_FillToPlan(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		wantFill bool
	}{
		{name: "enabled", enabled: true, wantFill: true},
		{name: "disabled", enabled: false, wantFill: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(20)
			in.HoursPerWeek = hours(20)
			in.ConfigOverrides = map[string]any{"ENABLE_FILL_TO_PLAN": tt.enabled}
			res, err := roadmap.Generate(in)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			rm := res.Roadmaps[0]
			if got := totalBacklog(rm); got != 0 {
				t.Fatalf("remaining backlog = %v, want 0", got)
			}

			fill := 0
			for _, sp := range rm.Sprints {
				for _, it := range sp.Items {
					if it.Phase != roadmap.PhaseFill {
						continue
					}
					fill++
					if !sprintEndsCore(rm, sp.SprintNumber) {
						t.Errorf("sprint %d: fill item %q while core work remains", sp.SprintNumber, it.SubmoduleName)
					}
					if it.PlannedPracticeQuestionsRetake == 0 || isCore(it) {
						t.Errorf("sprint %d: fill item %+v should hold retakes only", sp.SprintNumber, it)
					}
				}
			}
			if (fill > 0) != tt.wantFill {
				t.Errorf("fill items = %d, want present = %v", fill, tt.wantFill)
			}
		})
	}
}

// sprintEndsCore reports whether no core work remains after sprint n.
func sprintEndsCore(rm roadmap.Roadmap, n int) bool {
	for _, sp := range rm.Sprints {
		if sp.SprintNumber <= n {
			continue
		}
		for _, it := range sp.Items {
			if isCore(it) {
				return false
			}
		}
	}
	return true
}

func TestGenerate_CapInfeasibleParts(t *testing.T) {
	tests := []struct {
		name     string
		in       roadmap.Input
		strategy roadmap.Strategy
		want     []roadmap.ExamPart
	}{
		{
			name:     "single part under balanced, manual hours",
			in:       smallModulesInput(4, 1),
			strategy: roadmap.StrategyBalanced,
			want:     []roadmap.ExamPart{roadmap.PartLogic},
		},
		{
			name:     "single part under high_level",
			in:       smallModulesInput(4, 1),
			strategy: roadmap.StrategyHighLevel,
			want:     nil,
		},
		{
			name: "auto hours sized for the cap",
			in: func() roadmap.Input {
				in := smallModulesInput(4, 1)
				in.HoursPerWeek = nil
				return in
			}(),
			strategy: roadmap.StrategyBalanced,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.ConfigOverrides = map[string]any{"STRATEGY": string(tt.strategy)}
			res, err := roadmap.Generate(in)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			meta := res.Roadmaps[0].Metadata
			if len(meta.CapInfeasibleParts) != len(tt.want) {
				t.Fatalf("CapInfeasibleParts = %v, want %v", meta.CapInfeasibleParts, tt.want)
			}
			for i, part := range tt.want {
				if meta.CapInfeasibleParts[i] != part {
					t.Errorf("CapInfeasibleParts[%d] = %q, want %q", i, meta.CapInfeasibleParts[i], part)
				}
			}
			if meta.CapFeasible != (len(tt.want) == 0) {
				t.Errorf("CapFeasible = %v with %d infeasible parts", meta.CapFeasible, len(tt.want))
			}
		})
	}
}
