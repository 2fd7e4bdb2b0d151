package roadmap_test

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

func TestGenerate_DefaultScenario(t *testing.T) {
	res, err := roadmap.Generate(baseInput(20))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Roadmaps) != 1 {
		t.Fatalf("Roadmaps = %d, want 1", len(res.Roadmaps))
	}
	rm := res.Roadmaps[0]
	meta := rm.Metadata

	if meta.GeneratedMode != roadmap.ModeFull {
		t.Errorf("GeneratedMode = %q, want full", meta.GeneratedMode)
	}
	if meta.HoursMode != roadmap.HoursAuto {
		t.Errorf("HoursMode = %q, want auto", meta.HoursMode)
	}
	if meta.OptimalHoursPerWeek == nil || *meta.OptimalHoursPerWeek <= 0 {
		t.Fatalf("OptimalHoursPerWeek = %v, want > 0", meta.OptimalHoursPerWeek)
	}
	if got := totalBacklog(rm); got != 0 {
		t.Errorf("remaining backlog = %v, want 0", got)
	}
	if !meta.PolicyFeasible || !meta.TimeFeasible {
		t.Errorf("PolicyFeasible = %v, TimeFeasible = %v, want both true", meta.PolicyFeasible, meta.TimeFeasible)
	}
	if meta.SprintCount != 10 || len(rm.Sprints) != 10 {
		t.Errorf("SprintCount = %d, sprints = %d, want 10", meta.SprintCount, len(rm.Sprints))
	}
	if len(rm.ExamPartsSummary) != 5 {
		t.Errorf("ExamPartsSummary = %d entries, want 5", len(rm.ExamPartsSummary))
	}
	if len(rm.EndState.RemainingBacklogMinutesByExamPart) != 5 {
		t.Errorf("end state has %d parts, want 5", len(rm.EndState.RemainingBacklogMinutesByExamPart))
	}
	if meta.Solver.Iterations != len(meta.Solver.Trace) {
		t.Errorf("Solver.Iterations = %d, trace length %d", meta.Solver.Iterations, len(meta.Solver.Trace))
	}
	if meta.Warnings == nil {
		t.Error("Warnings should be an empty list, not nil")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	first, err := roadmap.Generate(baseInput(12))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := roadmap.Generate(baseInput(12))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("identical inputs produced different output")
	}
}

func TestGenerate_SprintBudgetRespected(t *testing.T) {
	for _, weeks := range []int{1, 3, 8, 20} {
		res, err := roadmap.Generate(baseInput(weeks))
		if err != nil {
			t.Fatalf("weeks=%d: Generate() error = %v", weeks, err)
		}
		for _, sp := range res.Roadmaps[0].Sprints {
			var sum float64
			for _, it := range sp.Items {
				if it.PlannedTotalMinutes < 0 || it.PlannedLearningMinutes < 0 || it.PlannedPracticeMinutes < 0 {
					t.Errorf("weeks=%d sprint %d: negative minutes in %+v", weeks, sp.SprintNumber, it)
				}
				sum += it.PlannedTotalMinutes
			}
			if sum > float64(sp.PlanningMinutes)+0.05 {
				t.Errorf("weeks=%d sprint %d: items sum %.2f > planning %d", weeks, sp.SprintNumber, sum, sp.PlanningMinutes)
			}
		}
	}
}

func TestGenerate_StrictCurriculumOrder(t *testing.T) {
	res, err := roadmap.Generate(baseInput(20))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	last := map[string]int{}
	for _, sp := range res.Roadmaps[0].Sprints {
		for _, it := range sp.Items {
			if !isCore(it) {
				continue
			}
			prev, seen := last[it.SectionTitle]
			if !seen {
				prev = 0
				if it.SubmoduleIndex != 0 {
					t.Errorf("section %q starts at index %d", it.SectionTitle, it.SubmoduleIndex)
				}
			}
			if it.SubmoduleIndex < prev || it.SubmoduleIndex > prev+1 {
				t.Errorf("sprint %d section %q: index %d after %d", sp.SprintNumber, it.SectionTitle, it.SubmoduleIndex, prev)
			}
			last[it.SectionTitle] = it.SubmoduleIndex
		}
	}
}

func TestGenerate_RetakesOnlyAfterExhaustion(t *testing.T) {
	in := baseInput(6)
	in.HoursPerWeek = hours(40)

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	retakes := 0
	for _, sp := range res.Roadmaps[0].Sprints {
		for _, it := range sp.Items {
			if it.PlannedPracticeQuestionsRetake == 0 {
				continue
			}
			retakes += it.PlannedPracticeQuestionsRetake
			if it.QuestionsRemainingUnique != 0 {
				t.Errorf("sprint %d %q: retakes with %d unique questions left", sp.SprintNumber, it.SubmoduleName, it.QuestionsRemainingUnique)
			}
			if it.PlannedPracticeQuestionsUnique != 0 {
				t.Errorf("sprint %d %q: retakes share a sprint with unique questions", sp.SprintNumber, it.SubmoduleName)
			}
		}
	}
	if retakes == 0 {
		t.Error("expected fill-to-plan retakes once core work is done")
	}
}

func TestGenerate_NoRetakesWhenDisabled(t *testing.T) {
	in := baseInput(6)
	in.HoursPerWeek = hours(40)
	in.ConfigOverrides = map[string]any{"ENABLE_RETAKES": false}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, sp := range res.Roadmaps[0].Sprints {
		if sp.Totals.PlannedRetakeQuestions != 0 {
			t.Errorf("sprint %d: %d retakes with retakes disabled", sp.SprintNumber, sp.Totals.PlannedRetakeQuestions)
		}
	}
}

func TestGenerate_ChunkLabels(t *testing.T) {
	res, err := roadmap.Generate(baseInput(20))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	cfg := res.EffectiveConfig
	re := regexp.MustCompile(`^part (\d+)/(\d+)$`)

	labels := 0
	for _, sp := range res.Roadmaps[0].Sprints {
		for _, it := range sp.Items {
			if it.ModuleChunkLabel == "" {
				continue
			}
			labels++
			m := re.FindStringSubmatch(it.ModuleChunkLabel)
			if m == nil {
				t.Errorf("label %q does not match part k/n", it.ModuleChunkLabel)
				continue
			}
			k, _ := strconv.Atoi(m[1])
			n, _ := strconv.Atoi(m[2])
			if k < 1 || k > n || n > cfg.MaxModuleChunks {
				t.Errorf("label %q out of range (max %d)", it.ModuleChunkLabel, cfg.MaxModuleChunks)
			}
		}
	}
	if labels == 0 {
		t.Error("expected the large submodule to be chunked across sprints")
	}
}

func TestGenerate_CheckpointConfidence(t *testing.T) {
	res, err := roadmap.Generate(baseInput(20))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	minQ := res.EffectiveConfig.CheckpointMinQuestionsPerPart
	target := res.EffectiveConfig.CheckpointTargetQuestionsPerPart

	for _, sp := range res.Roadmaps[0].Sprints {
		for part, cp := range sp.Checkpoint.ByExamPart {
			if cp.CheckpointQuestions < minQ && cp.Confidence != roadmap.ConfidenceLowSample {
				t.Errorf("sprint %d %s: %d questions with confidence %q", sp.SprintNumber, part, cp.CheckpointQuestions, cp.Confidence)
			}
			if cp.CheckpointQuestions > target {
				t.Errorf("sprint %d %s: %d questions over target %d", sp.SprintNumber, part, cp.CheckpointQuestions, target)
			}
			switch cp.Type {
			case roadmap.CheckpointSingleSource:
				if len(cp.Sources) != 1 {
					t.Errorf("single_source checkpoint has %d sources", len(cp.Sources))
				}
			case roadmap.CheckpointMixed:
				sum := 0
				for _, s := range cp.Sources {
					sum += s.Questions
				}
				if sum != cp.CheckpointQuestions || len(cp.Sources) > res.EffectiveConfig.CheckpointMaxSources {
					t.Errorf("mixed checkpoint sources %+v do not add up to %d", cp.Sources, cp.CheckpointQuestions)
				}
			case roadmap.CheckpointTimeDrill:
			default:
				t.Errorf("unknown checkpoint type %q", cp.Type)
			}
		}
	}
}

func TestGenerate_WeakGeneralKnowledgeFirst(t *testing.T) {
	in := baseInput(20)
	in.LevelsBySection["General Knowledge"] = 1
	in.LevelsBySection["Math & Physics"] = 5

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	first := res.Roadmaps[0].Sprints[0]
	if len(first.FocusExamPartsRanked) == 0 || first.FocusExamPartsRanked[0] != roadmap.PartGeneralKnowledge {
		t.Fatalf("FocusExamPartsRanked = %v, want GENERAL_KNOWLEDGE first", first.FocusExamPartsRanked)
	}
	gk := first.ExecutedMinutesByExamPart[roadmap.PartGeneralKnowledge]
	mp := first.ExecutedMinutesByExamPart[roadmap.PartMathPhysics]
	if gk < mp {
		t.Errorf("sprint 1 GENERAL_KNOWLEDGE minutes = %v, want >= MATH_PHYSICS %v", gk, mp)
	}
}

func TestGenerate_HistoryOfArtLock(t *testing.T) {
	in := historyInput(10)
	in.ConfigOverrides = map[string]any{
		"HISTORY_ART_UNLOCK_HISTORY_PROGRESS_PCT": 1,
		"HISTORY_ART_INTRO_CARVEOUT":              false,
	}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	rm := res.Roadmaps[0]

	// Sprint by which each History submodule finished its core work.
	doneAt := map[string]int{}
	for _, sp := range rm.Sprints {
		for _, it := range sp.Items {
			if it.SectionTitle == "History" && isCore(it) && !it.IsPartial {
				doneAt[it.SubmoduleName] = sp.SprintNumber
			}
		}
	}
	if len(doneAt) != 2 {
		t.Fatalf("History completion = %v, want both submodules done", doneAt)
	}
	historyDone := 0
	for _, s := range doneAt {
		historyDone = max(historyDone, s)
	}

	artScheduled := false
	for _, sp := range rm.Sprints {
		for _, it := range sp.Items {
			if it.SectionTitle != "History of Art & Architecture" || !isCore(it) {
				continue
			}
			artScheduled = true
			if sp.SprintNumber < historyDone {
				t.Errorf("sprint %d: %q scheduled before History completed in sprint %d", sp.SprintNumber, it.SubmoduleName, historyDone)
			}
		}
	}
	if !artScheduled {
		t.Error("History of Art was never scheduled")
	}
	if got := totalBacklog(rm); got != 0 {
		t.Errorf("remaining backlog = %v, want 0", got)
	}
}

func TestGenerate_ManualHoursMinimalFallback(t *testing.T) {
	in := baseInput(4)
	in.HoursPerWeek = hours(2)

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Roadmaps) != 2 {
		t.Fatalf("Roadmaps = %d, want full + minimal", len(res.Roadmaps))
	}
	full, minimal := res.Roadmaps[0].Metadata, res.Roadmaps[1].Metadata
	if full.GeneratedMode != roadmap.ModeFull || minimal.GeneratedMode != roadmap.ModeMinimal {
		t.Errorf("modes = %q, %q, want full, minimal", full.GeneratedMode, minimal.GeneratedMode)
	}
	if full.PolicyFeasible {
		t.Error("full roadmap should not be policy feasible at 2 h/week")
	}
	if full.HoursMode != roadmap.HoursManual || full.HoursPerWeekUsed != 2 {
		t.Errorf("hours = %q %v, want manual 2", full.HoursMode, full.HoursPerWeekUsed)
	}
	if full.OptimalHoursPerWeek != nil {
		t.Errorf("OptimalHoursPerWeek = %v, want nil in manual mode", *full.OptimalHoursPerWeek)
	}
	if minimal.RequiredMinutesInScope >= full.RequiredMinutesInScope {
		t.Errorf("minimal scope %v should be smaller than full %v", minimal.RequiredMinutesInScope, full.RequiredMinutesInScope)
	}
}

func TestGenerate_ManualHoursNoFallback(t *testing.T) {
	in := baseInput(4)
	in.HoursPerWeek = hours(2)
	in.ConfigOverrides = map[string]any{"ENABLE_MINIMAL_FALLBACK": false}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Roadmaps) != 1 {
		t.Errorf("Roadmaps = %d, want 1", len(res.Roadmaps))
	}
}

func TestGenerate_ManualHoursDisabled(t *testing.T) {
	in := baseInput(20)
	in.HoursPerWeek = hours(2)
	in.ConfigOverrides = map[string]any{"ENABLE_MANUAL_HOURS": false}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	meta := res.Roadmaps[0].Metadata
	if meta.HoursMode != roadmap.HoursAuto {
		t.Errorf("HoursMode = %q, want auto", meta.HoursMode)
	}
	if !containsWarning(meta.Warnings, "ENABLE_MANUAL_HOURS") {
		t.Errorf("Warnings = %v, want a manual-hours warning", meta.Warnings)
	}
}

func TestGenerate_HoursCeiling(t *testing.T) {
	in := baseInput(1)
	in.ConfigOverrides = map[string]any{"MAX_OPTIMAL_HOURS_PER_WEEK": 2}

	_, err := roadmap.Generate(in)
	if !errors.Is(err, roadmap.ErrHoursCeiling) {
		t.Fatalf("Generate() error = %v, want ErrHoursCeiling", err)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*roadmap.Input)
		want   string
	}{
		{
			name:   "zero weeks",
			modify: func(in *roadmap.Input) { in.WeeksToExam = 0 },
			want:   "weeks_to_exam",
		},
		{
			name:   "missing sections",
			modify: func(in *roadmap.Input) { in.CourseModularOverview.Sections = nil },
			want:   "must be an array",
		},
		{
			name:   "missing stats",
			modify: func(in *roadmap.Input) { in.CourseModularOverview.Sections[0].Submodules[0].Stats = nil },
			want:   "stats is required",
		},
		{
			name:   "negative questions",
			modify: func(in *roadmap.Input) { in.CourseModularOverview.Sections[1].Submodules[0].Stats.QuestionsTotal = -1 },
			want:   "questions_total",
		},
		{
			name:   "level out of range",
			modify: func(in *roadmap.Input) { in.LevelsBySection["Logic"] = 7 },
			want:   "levels_by_section",
		},
		{
			name:   "negative hours",
			modify: func(in *roadmap.Input) { in.HoursPerWeek = hours(-1) },
			want:   "hours_per_week",
		},
		{
			name:   "config out of range",
			modify: func(in *roadmap.Input) { in.ConfigOverrides = map[string]any{"MAX_PART_SHARE": 2.0} },
			want:   "MAX_PART_SHARE",
		},
		{
			name:   "config type mismatch",
			modify: func(in *roadmap.Input) { in.ConfigOverrides = map[string]any{"SPRINT_WEEKS": "two"} },
			want:   "config_overrides",
		},
		{
			name: "unknown level key when strict",
			modify: func(in *roadmap.Input) {
				in.LevelsBySection["Chemistry"] = 2
				in.ConfigOverrides = map[string]any{"IGNORE_UNKNOWN_LEVEL_KEYS": false}
			},
			want: "Chemistry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(10)
			tt.modify(&in)

			_, err := roadmap.Generate(in)
			var verr *roadmap.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Generate() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestGenerate_AggregatesProblems(t *testing.T) {
	in := baseInput(0)
	in.LevelsBySection["Logic"] = 9

	_, err := roadmap.Generate(in)
	var verr *roadmap.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Generate() error = %v, want *ValidationError", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("Problems = %v, want 2", verr.Problems)
	}
}

func TestGenerate_Warnings(t *testing.T) {
	in := baseInput(20)
	in.CourseModularOverview.Sections = append(in.CourseModularOverview.Sections,
		section("Astrology", sub("Horoscopes", 10, 0, 0, 5)),
		section("Physics", sub("Mechanics", 30, 0, 0, 10)),
	)
	in.LevelsBySection["Chemistry"] = 2
	in.ConfigOverrides = map[string]any{"NOT_A_KEY": 1}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	warnings := res.Roadmaps[0].Metadata.Warnings
	for _, want := range []string{"NOT_A_KEY", "Chemistry", "Astrology", `no level for section "Physics"`} {
		if !containsWarning(warnings, want) {
			t.Errorf("Warnings = %v, want one mentioning %q", warnings, want)
		}
	}
}

func TestGenerate_EmptySectionKept(t *testing.T) {
	in := baseInput(20)
	in.CourseModularOverview.Sections = append(in.CourseModularOverview.Sections,
		section("Culture", sub("Museum visits", 0, 0, 0, 0)),
	)

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	rm := res.Roadmaps[0]
	if !containsWarning(rm.Metadata.Warnings, "zero workload") {
		t.Errorf("Warnings = %v, want a zero-workload warning", rm.Metadata.Warnings)
	}
	for _, s := range rm.ExamPartsSummary {
		if s.ExamPart != roadmap.PartGeneralKnowledge {
			continue
		}
		if !contains(s.MappedSections, "Culture") {
			t.Errorf("MappedSections = %v, want Culture kept", s.MappedSections)
		}
	}
}

func TestGenerate_TimeDrillPlaceholder(t *testing.T) {
	in := baseInput(2)
	in.HoursPerWeek = hours(10)
	in.CourseModularOverview.Sections[2] = section("Drawing",
		sub("Sketching warm-ups", 60, 0, 0, 0),
		sub("Line weight", 60, 0, 0, 0),
	)

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	cp, ok := res.Roadmaps[0].Sprints[0].Checkpoint.ByExamPart[roadmap.PartDrawing]
	if !ok {
		t.Fatal("no DRAWING checkpoint in sprint 1")
	}
	if cp.Type != roadmap.CheckpointTimeDrill {
		t.Errorf("Type = %q, want time_drill", cp.Type)
	}
	if cp.CheckpointQuestions != 0 || cp.Confidence != roadmap.ConfidenceLowSample {
		t.Errorf("checkpoint = %+v, want 0 questions, low_sample", cp)
	}
	if cp.TimeLimitMinutes != res.EffectiveConfig.CheckpointTimeDrillMinutes {
		t.Errorf("TimeLimitMinutes = %v, want %v", cp.TimeLimitMinutes, res.EffectiveConfig.CheckpointTimeDrillMinutes)
	}
}

func TestGenerate_AdaptationOptIn(t *testing.T) {
	history := []roadmap.CheckpointRecord{
		{SprintNumber: 1, ResultsByPart: map[roadmap.ExamPart]roadmap.PartResult{
			roadmap.PartReading: {Accuracy: 0.2, CompletionRate: 1},
		}},
		{SprintNumber: 2, ResultsByPart: map[roadmap.ExamPart]roadmap.PartResult{
			roadmap.PartReading: {Accuracy: 0.3, CompletionRate: 1},
		}},
	}

	tests := []struct {
		name      string
		overrides map[string]any
		wantNudge bool
	}{
		{name: "disabled by default", wantNudge: false},
		{name: "enabled", overrides: map[string]any{"ENABLE_CHECKPOINT_ADAPTATION": true}, wantNudge: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(20)
			in.CheckpointHistory = history
			in.ConfigOverrides = tt.overrides

			res, err := roadmap.Generate(in)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			reading := res.Roadmaps[0].ExamPartsSummary[0]
			got := containsWarning(reading.FocusReasons, "adaptation nudge")
			if got != tt.wantNudge {
				t.Errorf("FocusReasons = %v, nudge present = %v, want %v", reading.FocusReasons, got, tt.wantNudge)
			}
		})
	}
}

func TestGenerate_Observer(t *testing.T) {
	var steps []roadmap.SolverStep
	res, err := roadmap.Generate(baseInput(20), roadmap.WithObserver(func(s roadmap.SolverStep) {
		steps = append(steps, s)
	}))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	solver := res.Roadmaps[0].Metadata.Solver
	if len(steps) != solver.Iterations {
		t.Errorf("observer saw %d steps, solver ran %d", len(steps), solver.Iterations)
	}
	if len(steps) == 0 || steps[0].HoursPerWeek != solver.StartHours {
		t.Errorf("first step = %+v, want start hours %v", steps, solver.StartHours)
	}
}

func TestGenerate_HighLevelStrategy(t *testing.T) {
	in := baseInput(20)
	in.ConfigOverrides = map[string]any{"STRATEGY": "high_level"}

	res, err := roadmap.Generate(in)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	meta := res.Roadmaps[0].Metadata
	if !meta.CapFeasible || len(meta.CapInfeasibleParts) != 0 {
		t.Errorf("high_level should not report cap infeasibility, got %v", meta.CapInfeasibleParts)
	}
	if got := totalBacklog(res.Roadmaps[0]); got != 0 {
		t.Errorf("remaining backlog = %v, want 0", got)
	}
}

func TestGenerateJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw, err := json.Marshal(baseInput(8))
		if err != nil {
			t.Fatal(err)
		}
		res, err := roadmap.GenerateJSON(raw)
		if err != nil {
			t.Fatalf("GenerateJSON() error = %v", err)
		}
		if len(res.Roadmaps) != 1 {
			t.Errorf("Roadmaps = %d, want 1", len(res.Roadmaps))
		}
	})

	t.Run("sections not an array", func(t *testing.T) {
		raw := []byte(`{"weeks_to_exam": 4, "levels_by_section": {}, "course_modular_overview": {"sections": {"title": "Reading"}}}`)
		_, err := roadmap.GenerateJSON(raw)
		var verr *roadmap.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("GenerateJSON() error = %v, want *ValidationError", err)
		}
	})
}

func containsWarning(list []string, substr string) bool {
	for _, w := range list {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
