package roadmap

import (
	"fmt"
	"math"
	"sort"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
)

// Input is the generation request.
type Input struct {
	WeeksToExam           int                       `json:"weeks_to_exam"`
	HoursPerWeek          *float64                  `json:"hours_per_week,omitempty"`
	LevelsBySection       map[string]int            `json:"levels_by_section"`
	CourseModularOverview curriculum.CourseOverview `json:"course_modular_overview"`
	CheckpointHistory     []CheckpointRecord        `json:"checkpoint_history,omitempty"`
	ConfigOverrides       map[string]any            `json:"config_overrides,omitempty"`
}

// CheckpointRecord is one past checkpoint outcome, keyed by exam part.
type CheckpointRecord struct {
	SprintNumber  int                     `json:"sprint_number"`
	ResultsByPart map[ExamPart]PartResult `json:"results_by_part"`
}

// PartResult is the measured checkpoint result of one exam part.
type PartResult struct {
	Accuracy              float64 `json:"accuracy"`
	AvgTimePerQuestionMin float64 `json:"avg_time_per_question_min"`
	CompletionRate        float64 `json:"completion_rate"`
	Confidence            string  `json:"confidence,omitempty"`
	CheckpointQuestions   int     `json:"checkpoint_questions,omitempty"`
}

// validateInput checks the structural shape and numeric ranges of in.
// Problems are aggregated so one error reports all of them.
func validateInput(in Input) error {
	var p problems

	if in.WeeksToExam < 1 {
		p.addf("weeks_to_exam must be >= 1, got %d", in.WeeksToExam)
	}
	if in.HoursPerWeek != nil {
		if h := *in.HoursPerWeek; h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
			p.addf("hours_per_week must be > 0, got %v", h)
		}
	}

	for _, title := range sortedStringKeys(in.LevelsBySection) {
		if lvl := in.LevelsBySection[title]; lvl < 1 || lvl > 5 {
			p.addf("levels_by_section[%q] must be in [1,5], got %d", title, lvl)
		}
	}

	if in.CourseModularOverview.Sections == nil {
		p.addf("course_modular_overview.sections must be an array")
	}
	for i, sec := range in.CourseModularOverview.Sections {
		if sec.Submodules == nil {
			p.addf("sections[%d] (%q): submodules must be an array", i, sec.Title)
		}
		for j, sub := range sec.Submodules {
			where := fmt.Sprintf("sections[%d].submodules[%d]", i, j)
			if sub.Stats == nil {
				p.addf("%s (%q): stats is required", where, sub.Name)
				continue
			}
			st := sub.Stats
			if st.LessonsVideoMinutes < 0 || math.IsNaN(st.LessonsVideoMinutes) {
				p.addf("%s: lessons_video_minutes must be >= 0, got %v", where, st.LessonsVideoMinutes)
			}
			if st.TimedTextMinutes < 0 || math.IsNaN(st.TimedTextMinutes) {
				p.addf("%s: timed_text_minutes must be >= 0, got %v", where, st.TimedTextMinutes)
			}
			if st.UntimedTextItems < 0 {
				p.addf("%s: untimed_text_items must be >= 0, got %d", where, st.UntimedTextItems)
			}
			if st.QuestionsTotal < 0 {
				p.addf("%s: questions_total must be >= 0, got %d", where, st.QuestionsTotal)
			}
		}
	}

	for i, rec := range in.CheckpointHistory {
		if rec.SprintNumber < 1 {
			p.addf("checkpoint_history[%d].sprint_number must be >= 1, got %d", i, rec.SprintNumber)
		}
		for _, part := range sortedResultKeys(rec.ResultsByPart) {
			res := rec.ResultsByPart[part]
			if !part.Valid() {
				p.addf("checkpoint_history[%d] has unknown exam part %q", i, part)
				continue
			}
			if res.Accuracy < 0 || res.Accuracy > 1 {
				p.addf("checkpoint_history[%d][%s].accuracy must be in [0,1], got %v", i, part, res.Accuracy)
			}
			if res.CompletionRate < 0 || res.CompletionRate > 1 {
				p.addf("checkpoint_history[%d][%s].completion_rate must be in [0,1], got %v", i, part, res.CompletionRate)
			}
			if res.AvgTimePerQuestionMin < 0 {
				p.addf("checkpoint_history[%d][%s].avg_time_per_question_min must be >= 0, got %v", i, part, res.AvgTimePerQuestionMin)
			}
		}
	}

	return p.err()
}

func sortedResultKeys(m map[ExamPart]PartResult) []ExamPart {
	keys := make([]ExamPart, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortParts(keys)
	return keys
}

// sortParts orders known parts by their fixed index, unknown ones after, alphabetically.
func sortParts(parts []ExamPart) {
	sort.Slice(parts, func(i, j int) bool { return partLess(parts[i], parts[j]) })
}

func partLess(a, b ExamPart) bool {
	ia, ib := a.Index(), b.Index()
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	}
	return a < b
}
