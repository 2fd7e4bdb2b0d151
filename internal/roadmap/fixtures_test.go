package roadmap_test

import (
	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

func sub(name string, video, timed float64, items, questions int) curriculum.Submodule {
	return curriculum.Submodule{
		Name: name,
		Stats: &curriculum.Stats{
			LessonsVideoMinutes: video,
			TimedTextMinutes:    timed,
			UntimedTextItems:    items,
			QuestionsTotal:      questions,
		},
	}
}

func section(title string, subs ...curriculum.Submodule) curriculum.Section {
	return curriculum.Section{Title: title, Submodules: subs}
}

func fiveSections() []curriculum.Section {
	return []curriculum.Section{
		section("Reading",
			sub("Introduction to reading", 30, 15, 2, 10),
			sub("Argument structure", 90, 30, 4, 40),
			sub("Exam practice: reading", 0, 0, 0, 30),
		),
		section("Logic",
			sub("Logic basics", 40, 10, 0, 20),
			sub("Syllogisms", 60, 20, 2, 40),
			sub("Advanced puzzles", 45, 0, 0, 30),
		),
		section("Drawing",
			sub("Drawing fundamentals", 60, 0, 0, 8),
			sub("Perspective", 120, 0, 3, 16),
			sub("Composition review", 30, 0, 0, 8),
		),
		section("Math & Physics",
			sub("Algebra", 90, 30, 0, 40),
			sub("Kinematics", 60, 30, 0, 30),
			sub("Optics", 40, 20, 0, 20),
		),
		section("General Knowledge",
			sub("Art movements survey", 480, 60, 6, 40),
			sub("Architecture timeline", 60, 30, 0, 30),
			sub("Culture recap", 20, 10, 0, 20),
		),
	}
}

func uniformLevels(level int) map[string]int {
	return map[string]int{
		"Reading":           level,
		"Logic":             level,
		"Drawing":           level,
		"Math & Physics":    level,
		"General Knowledge": level,
	}
}

func baseInput(weeks int) roadmap.Input {
	return roadmap.Input{
		WeeksToExam:           weeks,
		LevelsBySection:       uniformLevels(3),
		CourseModularOverview: curriculum.CourseOverview{Sections: fiveSections()},
	}
}

func historyInput(weeks int) roadmap.Input {
	return roadmap.Input{
		WeeksToExam: weeks,
		LevelsBySection: map[string]int{
			"Reading":                       3,
			"History":                       2,
			"History of Art & Architecture": 2,
		},
		CourseModularOverview: curriculum.CourseOverview{Sections: []curriculum.Section{
			section("Reading",
				sub("Close reading", 60, 0, 0, 20),
			),
			section("History of Art & Architecture",
				sub("Introduction to art history", 30, 0, 0, 5),
				sub("Gothic cathedrals", 40, 0, 0, 10),
				sub("Modernism", 40, 0, 0, 10),
			),
			section("History",
				sub("Ancient history", 60, 0, 0, 20),
				sub("Modern history", 60, 0, 0, 20),
			),
		}},
	}
}

func hours(h float64) *float64 { return &h }

func totalBacklog(rm roadmap.Roadmap) float64 {
	var total float64
	for _, v := range rm.EndState.RemainingBacklogMinutesByExamPart {
		total += v
	}
	return total
}

func isCore(it roadmap.SprintItem) bool {
	return it.PlannedLearningMinutes > 0 || it.PlannedPracticeQuestionsUnique > 0
}
