package curriculum

// Course is a named course overview loaded from the curriculum directory.
type Course struct {
	ID       string         `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Overview CourseOverview `yaml:"course_modular_overview" json:"course_modular_overview"`
}

// CourseOverview is the modular overview of an exam-prep course.
type CourseOverview struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

// Section is one curriculum section. Submodule order is the curriculum sequence.
type Section struct {
	Title      string      `yaml:"title" json:"title"`
	Submodules []Submodule `yaml:"submodules" json:"submodules"`
}

// Submodule is a single unit of learning content with its practice questions.
type Submodule struct {
	Name  string `yaml:"name" json:"name"`
	Stats *Stats `yaml:"stats" json:"stats"`
}

// Stats holds the raw workload figures of a submodule.
type Stats struct {
	LessonsVideoMinutes float64 `yaml:"lessons_video_minutes" json:"lessons_video_minutes"`
	TimedTextMinutes    float64 `yaml:"timed_text_minutes" json:"timed_text_minutes"`
	UntimedTextItems    int     `yaml:"untimed_text_items" json:"untimed_text_items"`
	QuestionsTotal      int     `yaml:"questions_total" json:"questions_total"`
}

// LevelMap maps section titles to a proficiency level (1-5).
type LevelMap map[string]int
