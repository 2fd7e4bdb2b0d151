package roadmap

import (
	"fmt"
	"math"
)

// Result is the outcome of one generation call.
type Result struct {
	Roadmaps        []Roadmap `json:"roadmaps"`
	EffectiveConfig Config    `json:"effective_config"`
}

// Roadmap is one complete sprint plan.
type Roadmap struct {
	Metadata         Metadata      `json:"metadata"`
	ExamPartsSummary []PartSummary `json:"exam_parts_summary"`
	Sprints          []Sprint      `json:"sprints"`
	EndState         EndState      `json:"end_state"`
}

// HoursMode tells whether hours/week came from the solver or the caller.
type HoursMode string

const (
	HoursAuto   HoursMode = "auto"
	HoursManual HoursMode = "manual"
)

type Metadata struct {
	GeneratedMode               Mode       `json:"generated_mode"`
	WeeksToExam                 int        `json:"weeks_to_exam"`
	SprintCount                 int        `json:"sprint_count"`
	HoursMode                   HoursMode  `json:"hours_mode"`
	HoursPerWeekUsed            float64    `json:"hours_per_week_used"`
	OptimalHoursPerWeek         *float64   `json:"optimal_hours_per_week"`
	EstimatedHoursPerWeek       float64    `json:"estimated_hours_per_week"`
	RequiredMinutesFullCoverage float64    `json:"required_minutes_full_coverage"`
	RequiredMinutesInScope      float64    `json:"required_minutes_in_scope"`
	TotalAvailableMinutes       int        `json:"total_available_minutes"`
	TotalPlanningMinutes        int        `json:"total_planning_minutes"`
	TimeFeasible                bool       `json:"time_feasible"`
	CapFeasible                 bool       `json:"cap_feasible"`
	CapInfeasibleParts          []ExamPart `json:"cap_infeasible_parts"`
	PolicyFeasible              bool       `json:"policy_feasible"`
	Solver                      SolverInfo `json:"solver"`
	Warnings                    []string   `json:"warnings"`
	ConfigUsed                  Config     `json:"config_used"`
}

// SolverInfo describes how hours/week was found.
type SolverInfo struct {
	StartHours       float64      `json:"start_hours"`
	Iterations       int          `json:"iterations"`
	DownshiftApplied bool         `json:"downshift_applied"`
	Trace            []SolverStep `json:"trace"`
}

// SolverStep is one scheduling pass tried by the hours solver.
type SolverStep struct {
	Mode                    Mode    `json:"mode"`
	Iteration               int     `json:"iteration"`
	HoursPerWeek            float64 `json:"hours_per_week"`
	RemainingBacklogMinutes float64 `json:"remaining_backlog_minutes"`
}

type PartSummary struct {
	ExamPart         ExamPart `json:"exam_part"`
	DisplayName      string   `json:"display_name"`
	MappedSections   []string `json:"mapped_sections"`
	Level            float64  `json:"level"`
	RequiredMinutes  float64  `json:"required_minutes"`
	AllocatedMinutes float64  `json:"allocated_minutes"`
	FocusReasons     []string `json:"focus_reasons"`
}

type Sprint struct {
	SprintNumber              int                  `json:"sprint_number"`
	WeekStartIndex            int                  `json:"week_start_index"`
	WeekEndIndex              int                  `json:"week_end_index"`
	Weeks                     int                  `json:"weeks"`
	AvailableMinutes          int                  `json:"available_minutes"`
	PlanningMinutes           int                  `json:"planning_minutes"`
	FocusExamPartsRanked      []ExamPart           `json:"focus_exam_parts_ranked"`
	PartBudgetsMinutes        map[ExamPart]int     `json:"part_budgets_minutes"`
	ExecutedMinutesByExamPart map[ExamPart]float64 `json:"executed_minutes_by_exam_part"`
	Items                     []SprintItem         `json:"items"`
	Checkpoint                Checkpoint           `json:"checkpoint"`
	PracticeBlocks            []PracticeBlock      `json:"practice_blocks"`
	Totals                    SprintTotals         `json:"totals"`
}

// SprintItem is the work planned for one submodule in one sprint.
type SprintItem struct {
	ExamPart                       ExamPart `json:"exam_part"`
	SectionTitle                   string   `json:"section_title"`
	SubmoduleName                  string   `json:"submodule_name"`
	SubmoduleIndex                 int      `json:"submodule_index"`
	ContentCategory                Category `json:"content_category"`
	PlannedLearningMinutes         float64  `json:"planned_learning_minutes"`
	PlannedUntimedItems            int      `json:"planned_untimed_items"`
	PlannedPracticeQuestionsUnique int      `json:"planned_practice_questions_unique"`
	PlannedPracticeQuestionsRetake int      `json:"planned_practice_questions_retake"`
	PlannedPracticeMinutes         float64  `json:"planned_practice_minutes"`
	PlannedTotalMinutes            float64  `json:"planned_total_minutes"`
	IsPartial                      bool     `json:"is_partial"`
	LearningMinutesRemainingAfter  float64  `json:"learning_minutes_remaining_after"`
	QuestionsRemainingUnique       int      `json:"questions_remaining_unique"`
	RetakeQuestionsRemaining       int      `json:"retake_questions_remaining"`
	ModuleChunkLabel               string   `json:"module_chunk_label,omitempty"`
	Phase                          Phase    `json:"phase"`
}

type SprintTotals struct {
	PlannedLearningMinutes float64 `json:"planned_learning_minutes"`
	PlannedPracticeMinutes float64 `json:"planned_practice_minutes"`
	PlannedTotalMinutes    float64 `json:"planned_total_minutes"`
	PlannedUntimedItems    int     `json:"planned_untimed_items"`
	PlannedUniqueQuestions int     `json:"planned_unique_questions"`
	PlannedRetakeQuestions int     `json:"planned_retake_questions"`
	UnusedMinutes          float64 `json:"unused_minutes"`
	UtilizationPct         float64 `json:"utilization_pct"`
}

type EndState struct {
	RemainingBacklogMinutesByExamPart map[ExamPart]float64 `json:"remaining_backlog_minutes_by_exam_part"`
}

// runMeta carries what the solver knows about a pass into assembly.
type runMeta struct {
	weeks        int
	hoursMode    HoursMode
	hours        float64
	optimal      *float64
	estimated    float64
	requiredFull float64
	solver       SolverInfo
	warnings     []string
}

// assemble renders a finished pass into the public roadmap shape.
func (p *pass) assemble(rm runMeta) Roadmap {
	required, requiredByPart := requiredMinutes(p.m, p.sel)
	available, planning := skeletonTotals(p.frames)

	var allocated [partCount]float64
	sprints := make([]Sprint, 0, len(p.sprints))
	for _, sc := range p.sprints {
		s := p.renderSprint(sc)
		for pi := range AllParts {
			allocated[pi] += sc.usedByPart[pi]
		}
		sprints = append(sprints, s)
	}

	capInfeasible := []ExamPart{}
	if p.cfg.capStrict() {
		limit := p.cfg.MaxPartShare * float64(planning)
		for pi, part := range AllParts {
			if requiredByPart[pi] > limit+eps {
				capInfeasible = append(capInfeasible, part)
			}
		}
	}

	backlog := p.backlogByPart()
	end := EndState{RemainingBacklogMinutesByExamPart: make(map[ExamPart]float64, partCount)}
	var totalBacklog float64
	for pi, part := range AllParts {
		end.RemainingBacklogMinutesByExamPart[part] = round2(backlog[pi])
		totalBacklog += backlog[pi]
	}

	warnings := append([]string{}, rm.warnings...)
	if totalBacklog > eps {
		warnings = append(warnings, fmt.Sprintf("%.2f core minutes remain unscheduled at the end of the horizon", round2(totalBacklog)))
	}

	meta := Metadata{
		GeneratedMode:               p.mode,
		WeeksToExam:                 rm.weeks,
		SprintCount:                 len(p.frames),
		HoursMode:                   rm.hoursMode,
		HoursPerWeekUsed:            round2(rm.hours),
		OptimalHoursPerWeek:         rm.optimal,
		EstimatedHoursPerWeek:       round2(rm.estimated),
		RequiredMinutesFullCoverage: round2(rm.requiredFull),
		RequiredMinutesInScope:      round2(required),
		TotalAvailableMinutes:       available,
		TotalPlanningMinutes:        planning,
		TimeFeasible:                float64(planning)+eps >= required,
		CapFeasible:                 len(capInfeasible) == 0,
		CapInfeasibleParts:          capInfeasible,
		PolicyFeasible:              totalBacklog <= eps,
		Solver:                      rm.solver,
		Warnings:                    warnings,
		ConfigUsed:                  p.cfg,
	}

	return Roadmap{
		Metadata:         meta,
		ExamPartsSummary: p.partSummaries(requiredByPart, allocated, capInfeasible),
		Sprints:          sprints,
		EndState:         end,
	}
}

func (p *pass) renderSprint(sc *sprintCtx) Sprint {
	s := Sprint{
		SprintNumber:              sc.frame.number,
		WeekStartIndex:            sc.frame.weekStart,
		WeekEndIndex:              sc.frame.weekEnd,
		Weeks:                     sc.frame.weeks,
		AvailableMinutes:          sc.frame.available,
		PlanningMinutes:           sc.frame.planning,
		FocusExamPartsRanked:      append([]ExamPart{}, sc.ranked...),
		PartBudgetsMinutes:        make(map[ExamPart]int, partCount),
		ExecutedMinutesByExamPart: make(map[ExamPart]float64, partCount),
		Items:                     make([]SprintItem, 0, len(sc.order)),
	}
	for pi, part := range AllParts {
		s.PartBudgetsMinutes[part] = sc.partBudgets[pi]
		s.ExecutedMinutesByExamPart[part] = round2(sc.usedByPart[pi])
	}

	var t SprintTotals
	for _, id := range sc.order {
		item := p.renderItem(sc.items[id])
		t.PlannedLearningMinutes += item.PlannedLearningMinutes
		t.PlannedPracticeMinutes += item.PlannedPracticeMinutes
		t.PlannedUntimedItems += item.PlannedUntimedItems
		t.PlannedUniqueQuestions += item.PlannedPracticeQuestionsUnique
		t.PlannedRetakeQuestions += item.PlannedPracticeQuestionsRetake
		s.Items = append(s.Items, item)
	}
	t.PlannedLearningMinutes = round2(t.PlannedLearningMinutes)
	t.PlannedPracticeMinutes = round2(t.PlannedPracticeMinutes)
	t.PlannedTotalMinutes = round2(sc.used)
	t.UnusedMinutes = round2(math.Max(0, sc.slack()))
	if sc.frame.planning > 0 {
		t.UtilizationPct = round2(100 * sc.used / float64(sc.frame.planning))
	}
	s.Totals = t

	s.Checkpoint = p.checkpoint(sc)
	s.PracticeBlocks = p.practiceBlocks(sc)
	return s
}

func (p *pass) renderItem(it *itemAcc) SprintItem {
	sub := p.m.subs[it.subID]
	sec := p.m.sections[sub.sectionID]
	practice := float64(it.unique+it.retake) * sub.cpq
	return SprintItem{
		ExamPart:                       sec.part,
		SectionTitle:                   sec.title,
		SubmoduleName:                  sub.name,
		SubmoduleIndex:                 sub.index,
		ContentCategory:                sub.category,
		PlannedLearningMinutes:         round2(it.learn),
		PlannedUntimedItems:            it.untimed,
		PlannedPracticeQuestionsUnique: it.unique,
		PlannedPracticeQuestionsRetake: it.retake,
		PlannedPracticeMinutes:         round2(practice),
		PlannedTotalMinutes:            round2(it.learn + practice),
		IsPartial:                      it.partialAfter,
		LearningMinutesRemainingAfter:  it.learnAfter,
		QuestionsRemainingUnique:       it.uniqueAfter,
		RetakeQuestionsRemaining:       it.retakeAfter,
		ModuleChunkLabel:               it.chunkLabel,
		Phase:                          it.phase,
	}
}

func (p *pass) partSummaries(required, allocated [partCount]float64, capInfeasible []ExamPart) []PartSummary {
	var first *sprintCtx
	if len(p.sprints) > 0 {
		first = p.sprints[0]
	}
	out := make([]PartSummary, 0, partCount)
	for pi, part := range AllParts {
		info := p.m.parts[pi]
		mapped := make([]string, 0, len(info.sectionIDs))
		for _, id := range info.sectionIDs {
			mapped = append(mapped, p.m.sections[id].title)
		}
		out = append(out, PartSummary{
			ExamPart:         part,
			DisplayName:      part.DisplayName(),
			MappedSections:   mapped,
			Level:            round2(info.level),
			RequiredMinutes:  round2(required[pi]),
			AllocatedMinutes: round2(allocated[pi]),
			FocusReasons:     p.focusReasons(pi, first, required, capInfeasible),
		})
	}
	return out
}

// focusReasons explains in plain words why a part got the weight it got.
func (p *pass) focusReasons(pi int, first *sprintCtx, required [partCount]float64, capInfeasible []ExamPart) []string {
	info := p.m.parts[pi]
	reasons := []string{}
	if len(info.sectionIDs) == 0 {
		return append(reasons, "no curriculum sections mapped to this part")
	}
	if required[pi] <= eps {
		return append(reasons, "no in-scope workload")
	}

	gap := p.proficiencyGap(info.level)
	switch {
	case gap >= 0.5:
		reasons = append(reasons, fmt.Sprintf("large proficiency gap: level %.2f against target %d", info.level, p.cfg.TargetLevel))
	case gap > 0:
		reasons = append(reasons, fmt.Sprintf("moderate proficiency gap: level %.2f against target %d", info.level, p.cfg.TargetLevel))
	default:
		reasons = append(reasons, fmt.Sprintf("at target level %d", p.cfg.TargetLevel))
	}

	var total float64
	for _, r := range required {
		total += r
	}
	if share := required[pi] / total; share >= 0.25 {
		reasons = append(reasons, fmt.Sprintf("carries %.0f%% of the required workload", share*100))
	}
	if first != nil {
		if len(first.ranked) > 0 && first.ranked[0].Index() == pi {
			reasons = append(reasons, "top priority in the first sprint")
		}
		if first.damped[pi] {
			reasons = append(reasons, "damped while weaker parts still have core work")
		}
	}
	if n := p.nudges[pi]; math.Abs(n) > eps {
		reasons = append(reasons, fmt.Sprintf("checkpoint adaptation nudge %+.0f%%", n*100))
	}
	for _, part := range capInfeasible {
		if part.Index() == pi {
			reasons = append(reasons, "required minutes exceed the part cap over the horizon")
		}
	}
	return reasons
}
