// Package roadmap generates deterministic sprint-by-sprint study roadmaps
// from a hierarchical exam curriculum, per-section proficiency levels and a
// time horizon. The package is pure: no I/O, no logging, no shared state.
package roadmap

// ExamPart is one of the five fixed top-level exam parts.
type ExamPart string

const (
	PartReading          ExamPart = "READING"
	PartLogic            ExamPart = "LOGIC"
	PartDrawing          ExamPart = "DRAWING"
	PartMathPhysics      ExamPart = "MATH_PHYSICS"
	PartGeneralKnowledge ExamPart = "GENERAL_KNOWLEDGE"
)

const partCount = 5

// AllParts lists the exam parts in their fixed tie-break order.
var AllParts = [partCount]ExamPart{
	PartReading,
	PartLogic,
	PartDrawing,
	PartMathPhysics,
	PartGeneralKnowledge,
}

// Index returns the fixed order index of the part, or -1 if unknown.
func (p ExamPart) Index() int {
	for i, q := range AllParts {
		if q == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the five exam parts.
func (p ExamPart) Valid() bool {
	return p.Index() >= 0
}

// DisplayName returns the human-readable part name.
func (p ExamPart) DisplayName() string {
	switch p {
	case PartReading:
		return "Reading"
	case PartLogic:
		return "Logic"
	case PartDrawing:
		return "Drawing"
	case PartMathPhysics:
		return "Math-Physics"
	case PartGeneralKnowledge:
		return "General Knowledge"
	}
	return string(p)
}

// Category is the content category of a submodule, classified from its name.
type Category string

const (
	CategoryIntro        Category = "intro"
	CategoryCore         Category = "core"
	CategoryAdvanced     Category = "advanced"
	CategoryRevision     Category = "revision"
	CategoryExamPractice Category = "exam_practice"
	CategoryMisc         Category = "misc"
)

func (c Category) valid() bool {
	switch c {
	case CategoryIntro, CategoryCore, CategoryAdvanced, CategoryRevision, CategoryExamPractice, CategoryMisc:
		return true
	}
	return false
}

// Strategy selects the cap discipline of the scheduler.
type Strategy string

const (
	// StrategyBalanced enforces MAX_PART_SHARE in every phase.
	StrategyBalanced Strategy = "balanced"
	// StrategyHighLevel lets core-coverage redistribution bypass the part cap.
	StrategyHighLevel Strategy = "high_level"
)

// Mode is the selection mode of a generated roadmap.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeMinimal Mode = "minimal"
)
