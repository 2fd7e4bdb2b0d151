package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// CategoryPattern classifies submodule names. Patterns are tried in order;
// the first match wins.
type CategoryPattern struct {
	Category Category `json:"category"`
	Pattern  string   `json:"pattern"`
}

// Config is the engine parameter table. A Config is built once per run by
// ResolveConfig and is never mutated afterwards.
type Config struct {
	SprintWeeks            int     `json:"SPRINT_WEEKS"`
	SprintBufferPct        float64 `json:"SPRINT_BUFFER_PCT"`
	HoursRoundingStep      float64 `json:"HOURS_ROUNDING_STEP"`
	MinHoursPerWeek        float64 `json:"MIN_HOURS_PER_WEEK"`
	MaxOptimalHoursPerWeek float64 `json:"MAX_OPTIMAL_HOURS_PER_WEEK"`
	SolverHeadroomPct      float64 `json:"SOLVER_HEADROOM_PCT"`
	SolverMaxIterations    int     `json:"SOLVER_MAX_ITERATIONS"`
	EnableManualHours      bool    `json:"ENABLE_MANUAL_HOURS"`
	EnableHoursDownshift   bool    `json:"ENABLE_HOURS_DOWNSHIFT"`
	DownshiftEarlySprints  int     `json:"DOWNSHIFT_EARLY_SPRINTS"`
	DownshiftUnusedPct     float64 `json:"DOWNSHIFT_UNUSED_PCT"`
	EnableMinimalFallback  bool    `json:"ENABLE_MINIMAL_FALLBACK"`
	MinimalQuestionShare   float64 `json:"MINIMAL_QUESTION_SHARE"`

	BaseMinutesPerQuestion    float64              `json:"BASE_MINUTES_PER_QUESTION"`
	PracticeReviewOverheadPct float64              `json:"PRACTICE_REVIEW_OVERHEAD_PCT"`
	UntimedMinutesPerItem     float64              `json:"UNTIMED_MINUTES_PER_ITEM"`
	SubjectMultipliers        map[ExamPart]float64 `json:"SUBJECT_MULTIPLIERS"`
	LevelTimeMultipliers      map[int]float64      `json:"LEVEL_TIME_MULTIPLIERS"`
	LevelLearnShare           map[int]float64      `json:"LEVEL_LEARN_SHARE"`
	LevelWrongRate            map[int]float64      `json:"LEVEL_WRONG_RATE"`
	CategoryWrongRateDelta    map[Category]float64 `json:"CATEGORY_WRONG_RATE_DELTA"`
	TargetLevel               int                  `json:"TARGET_LEVEL"`
	DefaultLevel              int                  `json:"DEFAULT_LEVEL"`
	IgnoreUnknownLevelKeys    bool                 `json:"IGNORE_UNKNOWN_LEVEL_KEYS"`
	SectionToPart             map[string]ExamPart  `json:"SECTION_TO_PART"`
	SectionPartOverrides      map[string]ExamPart  `json:"SECTION_PART_OVERRIDES"`
	ContentCategoryPatterns   []CategoryPattern    `json:"CONTENT_CATEGORY_PATTERNS"`

	PriorityGapWeight     float64  `json:"PRIORITY_GAP_WEIGHT"`
	PriorityBacklogWeight float64  `json:"PRIORITY_BACKLOG_WEIGHT"`
	WeakPartProtection    bool     `json:"WEAK_PART_PROTECTION"`
	StrongLevelThreshold  int      `json:"STRONG_LEVEL_THRESHOLD"`
	StrongPartDamping     float64  `json:"STRONG_PART_DAMPING"`
	MinPartShare          float64  `json:"MIN_PART_SHARE"`
	MaxPartShare          float64  `json:"MAX_PART_SHARE"`
	MinSectionShare       float64  `json:"MIN_SECTION_SHARE"`
	Strategy              Strategy `json:"STRATEGY"`
	EnableFillToPlan      bool     `json:"ENABLE_FILL_TO_PLAN"`

	UnsplitModuleMaxMin float64 `json:"UNSPLIT_MODULE_MAX_MIN"`
	MinChunkMin         float64 `json:"MIN_CHUNK_MIN"`
	MaxModuleChunks     int     `json:"MAX_MODULE_CHUNKS"`

	EnableRetakes           bool    `json:"ENABLE_RETAKES"`
	RetakeMinSprintGap      int     `json:"RETAKE_MIN_SPRINT_GAP"`
	RetakeFinalPhaseSprints int     `json:"RETAKE_FINAL_PHASE_SPRINTS"`
	RetakeCoreProgressPct   float64 `json:"RETAKE_CORE_PROGRESS_PCT"`
	RetakePrimaryShareCap   float64 `json:"RETAKE_PRIMARY_SHARE_CAP"`

	HistorySectionTitle                string  `json:"HISTORY_SECTION_TITLE"`
	HistoryArtSectionTitle             string  `json:"HISTORY_ART_SECTION_TITLE"`
	HistoryArtUnlockHistoryProgressPct float64 `json:"HISTORY_ART_UNLOCK_HISTORY_PROGRESS_PCT"`
	HistoryArtIntroCarveout            bool    `json:"HISTORY_ART_INTRO_CARVEOUT"`

	CheckpointMinQuestionsPerPart    int     `json:"CHECKPOINT_MIN_QUESTIONS_PER_PART"`
	CheckpointTargetQuestionsPerPart int     `json:"CHECKPOINT_TARGET_QUESTIONS_PER_PART"`
	CheckpointMaxSources             int     `json:"CHECKPOINT_MAX_SOURCES"`
	CheckpointTimeDrillMinBudget     float64 `json:"CHECKPOINT_TIME_DRILL_MIN_BUDGET"`
	CheckpointTimeDrillMinutes       float64 `json:"CHECKPOINT_TIME_DRILL_MINUTES"`

	EnableCheckpointAdaptation bool    `json:"ENABLE_CHECKPOINT_ADAPTATION"`
	AdaptationEMAAlpha         float64 `json:"ADAPTATION_EMA_ALPHA"`
	AdaptationTargetAccuracy   float64 `json:"ADAPTATION_TARGET_ACCURACY"`
	AdaptationMaxNudge         float64 `json:"ADAPTATION_MAX_NUDGE"`
}

// DefaultConfig returns a fresh copy of the default parameter table.
func DefaultConfig() Config {
	return Config{
		SprintWeeks:            2,
		SprintBufferPct:        0.10,
		HoursRoundingStep:      0.5,
		MinHoursPerWeek:        1,
		MaxOptimalHoursPerWeek: 60,
		SolverHeadroomPct:      0,
		SolverMaxIterations:    400,
		EnableManualHours:      true,
		EnableHoursDownshift:   true,
		DownshiftEarlySprints:  2,
		DownshiftUnusedPct:     0.15,
		EnableMinimalFallback:  true,
		MinimalQuestionShare:   0.5,

		BaseMinutesPerQuestion:    2.0,
		PracticeReviewOverheadPct: 0.25,
		UntimedMinutesPerItem:     5,
		SubjectMultipliers: map[ExamPart]float64{
			PartReading:          1.0,
			PartLogic:            1.1,
			PartDrawing:          1.5,
			PartMathPhysics:      1.3,
			PartGeneralKnowledge: 0.9,
		},
		LevelTimeMultipliers: map[int]float64{1: 1.4, 2: 1.2, 3: 1.0, 4: 0.9, 5: 0.8},
		LevelLearnShare:      map[int]float64{1: 0.7, 2: 0.6, 3: 0.5, 4: 0.4, 5: 0.3},
		LevelWrongRate:       map[int]float64{1: 0.5, 2: 0.4, 3: 0.3, 4: 0.2, 5: 0.1},
		CategoryWrongRateDelta: map[Category]float64{
			CategoryIntro:        -0.05,
			CategoryAdvanced:     0.05,
			CategoryExamPractice: 0.05,
		},
		TargetLevel:            5,
		DefaultLevel:           3,
		IgnoreUnknownLevelKeys: true,
		SectionToPart: map[string]ExamPart{
			"Reading":                       PartReading,
			"Reading Comprehension":         PartReading,
			"Text Comprehension":            PartReading,
			"Logic":                         PartLogic,
			"Logical Reasoning":             PartLogic,
			"Logical Thinking":              PartLogic,
			"Drawing":                       PartDrawing,
			"Architectural Drawing":         PartDrawing,
			"Freehand Drawing":              PartDrawing,
			"Spatial Imagination":           PartDrawing,
			"Math-Physics":                  PartMathPhysics,
			"Math & Physics":                PartMathPhysics,
			"Mathematics & Physics":         PartMathPhysics,
			"Mathematics":                   PartMathPhysics,
			"Math":                          PartMathPhysics,
			"Physics":                       PartMathPhysics,
			"General Knowledge":             PartGeneralKnowledge,
			"History":                       PartGeneralKnowledge,
			"History of Art & Architecture": PartGeneralKnowledge,
			"Art History":                   PartGeneralKnowledge,
			"Culture":                       PartGeneralKnowledge,
		},
		SectionPartOverrides: map[string]ExamPart{},
		ContentCategoryPatterns: []CategoryPattern{
			{Category: CategoryExamPractice, Pattern: `(?i)\b(exam|mock|past papers?|practice tests?|simulation)\b`},
			{Category: CategoryRevision, Pattern: `(?i)\b(revision|review|recap|summary)\b`},
			{Category: CategoryIntro, Pattern: `(?i)\b(intro|introduction|basics|fundamentals|overview|getting started)\b`},
			{Category: CategoryAdvanced, Pattern: `(?i)\b(advanced|extension|challenge)\b`},
			{Category: CategoryMisc, Pattern: `(?i)\b(misc|miscellaneous|bonus|extra|appendix)\b`},
		},

		PriorityGapWeight:     0.6,
		PriorityBacklogWeight: 0.4,
		WeakPartProtection:    true,
		StrongLevelThreshold:  4,
		StrongPartDamping:     0.5,
		MinPartShare:          0.05,
		MaxPartShare:          0.45,
		MinSectionShare:       0.10,
		Strategy:              StrategyBalanced,
		EnableFillToPlan:      true,

		UnsplitModuleMaxMin: 45,
		MinChunkMin:         30,
		MaxModuleChunks:     6,

		EnableRetakes:           true,
		RetakeMinSprintGap:      1,
		RetakeFinalPhaseSprints: 2,
		RetakeCoreProgressPct:   0.8,
		RetakePrimaryShareCap:   0.5,

		HistorySectionTitle:                "History",
		HistoryArtSectionTitle:             "History of Art & Architecture",
		HistoryArtUnlockHistoryProgressPct: 0.5,
		HistoryArtIntroCarveout:            true,

		CheckpointMinQuestionsPerPart:    10,
		CheckpointTargetQuestionsPerPart: 20,
		CheckpointMaxSources:             3,
		CheckpointTimeDrillMinBudget:     30,
		CheckpointTimeDrillMinutes:       15,

		EnableCheckpointAdaptation: false,
		AdaptationEMAAlpha:         0.3,
		AdaptationTargetAccuracy:   0.75,
		AdaptationMaxNudge:         0.15,
	}
}

// ResolveConfig deep-merges overrides onto the defaults and validates the
// result. Unknown top-level keys are reported as warnings and ignored.
func ResolveConfig(overrides map[string]any) (Config, []string, error) {
	base, err := configToMap(DefaultConfig())
	if err != nil {
		return Config{}, nil, fmt.Errorf("encode default config: %w", err)
	}

	var warnings []string
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	known := make(map[string]any, len(overrides))
	for _, k := range keys {
		if _, ok := base[k]; !ok {
			warnings = append(warnings, fmt.Sprintf("unknown config key %q ignored", k))
			continue
		}
		known[k] = overrides[k]
	}

	merged := deepMerge(base, known)
	data, err := json.Marshal(merged)
	if err != nil {
		return Config{}, warnings, &ValidationError{Problems: []string{fmt.Sprintf("config_overrides: %v", err)}}
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, warnings, &ValidationError{Problems: []string{fmt.Sprintf("config_overrides: %v", err)}}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, err
	}
	return cfg, warnings, nil
}

// Validate checks every numeric range and enum of the table.
func (c Config) Validate() error {
	var p problems

	if c.SprintWeeks < 1 || c.SprintWeeks > 4 {
		p.addf("SPRINT_WEEKS must be in [1,4], got %d", c.SprintWeeks)
	}
	checkRange(&p, "SPRINT_BUFFER_PCT", c.SprintBufferPct, 0, 0.9)
	if c.HoursRoundingStep <= 0 || c.HoursRoundingStep > 10 {
		p.addf("HOURS_ROUNDING_STEP must be in (0,10], got %v", c.HoursRoundingStep)
	}
	if c.MinHoursPerWeek <= 0 {
		p.addf("MIN_HOURS_PER_WEEK must be > 0, got %v", c.MinHoursPerWeek)
	}
	if c.MaxOptimalHoursPerWeek < c.MinHoursPerWeek {
		p.addf("MAX_OPTIMAL_HOURS_PER_WEEK must be >= MIN_HOURS_PER_WEEK, got %v", c.MaxOptimalHoursPerWeek)
	}
	checkRange(&p, "SOLVER_HEADROOM_PCT", c.SolverHeadroomPct, 0, 1)
	if c.SolverMaxIterations < 1 {
		p.addf("SOLVER_MAX_ITERATIONS must be >= 1, got %d", c.SolverMaxIterations)
	}
	if c.DownshiftEarlySprints < 1 {
		p.addf("DOWNSHIFT_EARLY_SPRINTS must be >= 1, got %d", c.DownshiftEarlySprints)
	}
	checkRange(&p, "DOWNSHIFT_UNUSED_PCT", c.DownshiftUnusedPct, 0, 1)
	if c.MinimalQuestionShare <= 0 || c.MinimalQuestionShare > 1 {
		p.addf("MINIMAL_QUESTION_SHARE must be in (0,1], got %v", c.MinimalQuestionShare)
	}

	if c.BaseMinutesPerQuestion <= 0 {
		p.addf("BASE_MINUTES_PER_QUESTION must be > 0, got %v", c.BaseMinutesPerQuestion)
	}
	checkRange(&p, "PRACTICE_REVIEW_OVERHEAD_PCT", c.PracticeReviewOverheadPct, 0, 2)
	if c.UntimedMinutesPerItem < 0 {
		p.addf("UNTIMED_MINUTES_PER_ITEM must be >= 0, got %v", c.UntimedMinutesPerItem)
	}
	for _, part := range AllParts {
		if m, ok := c.SubjectMultipliers[part]; !ok || m <= 0 {
			p.addf("SUBJECT_MULTIPLIERS[%s] must be > 0", part)
		}
	}
	for _, part := range sortedPartKeys(c.SubjectMultipliers) {
		if !part.Valid() {
			p.addf("SUBJECT_MULTIPLIERS has unknown exam part %q", part)
		}
	}
	for level := 1; level <= 5; level++ {
		if m, ok := c.LevelTimeMultipliers[level]; !ok || m <= 0 {
			p.addf("LEVEL_TIME_MULTIPLIERS[%d] must be > 0", level)
		}
		if s, ok := c.LevelLearnShare[level]; !ok || s < 0.05 || s > 0.95 {
			p.addf("LEVEL_LEARN_SHARE[%d] must be in [0.05,0.95]", level)
		}
		if r, ok := c.LevelWrongRate[level]; !ok || r < 0 || r > 1 {
			p.addf("LEVEL_WRONG_RATE[%d] must be in [0,1]", level)
		}
	}
	for _, cat := range sortedCategoryKeys(c.CategoryWrongRateDelta) {
		if !cat.valid() {
			p.addf("CATEGORY_WRONG_RATE_DELTA has unknown category %q", cat)
		}
		checkRange(&p, "CATEGORY_WRONG_RATE_DELTA["+string(cat)+"]", c.CategoryWrongRateDelta[cat], -1, 1)
	}
	if c.TargetLevel < 2 || c.TargetLevel > 5 {
		p.addf("TARGET_LEVEL must be in [2,5], got %d", c.TargetLevel)
	}
	if c.DefaultLevel < 1 || c.DefaultLevel > 5 {
		p.addf("DEFAULT_LEVEL must be in [1,5], got %d", c.DefaultLevel)
	}
	for _, title := range sortedStringKeys(c.SectionToPart) {
		if !c.SectionToPart[title].Valid() {
			p.addf("SECTION_TO_PART[%q] has unknown exam part %q", title, c.SectionToPart[title])
		}
	}
	for _, title := range sortedStringKeys(c.SectionPartOverrides) {
		if !c.SectionPartOverrides[title].Valid() {
			p.addf("SECTION_PART_OVERRIDES[%q] has unknown exam part %q", title, c.SectionPartOverrides[title])
		}
	}
	for i, cp := range c.ContentCategoryPatterns {
		if !cp.Category.valid() {
			p.addf("CONTENT_CATEGORY_PATTERNS[%d] has unknown category %q", i, cp.Category)
		}
		if _, err := regexp.Compile(cp.Pattern); err != nil {
			p.addf("CONTENT_CATEGORY_PATTERNS[%d] pattern: %v", i, err)
		}
	}

	if c.PriorityGapWeight < 0 || c.PriorityBacklogWeight < 0 || c.PriorityGapWeight+c.PriorityBacklogWeight <= 0 {
		p.addf("PRIORITY_GAP_WEIGHT and PRIORITY_BACKLOG_WEIGHT must be >= 0 with a positive sum")
	}
	if c.StrongLevelThreshold < 1 || c.StrongLevelThreshold > 5 {
		p.addf("STRONG_LEVEL_THRESHOLD must be in [1,5], got %d", c.StrongLevelThreshold)
	}
	checkRange(&p, "STRONG_PART_DAMPING", c.StrongPartDamping, 0, 1)
	checkRange(&p, "MIN_PART_SHARE", c.MinPartShare, 0, 1)
	checkRange(&p, "MAX_PART_SHARE", c.MaxPartShare, 0, 1)
	if c.MaxPartShare <= 0 || c.MinPartShare > c.MaxPartShare {
		p.addf("MIN_PART_SHARE must be <= MAX_PART_SHARE and MAX_PART_SHARE > 0")
	}
	if c.MinPartShare*partCount > 1 {
		p.addf("MIN_PART_SHARE x 5 must not exceed 1, got %v", c.MinPartShare)
	}
	checkRange(&p, "MIN_SECTION_SHARE", c.MinSectionShare, 0, 1)
	if c.Strategy != StrategyBalanced && c.Strategy != StrategyHighLevel {
		p.addf("STRATEGY must be %q or %q, got %q", StrategyBalanced, StrategyHighLevel, c.Strategy)
	}

	if c.UnsplitModuleMaxMin < 0 {
		p.addf("UNSPLIT_MODULE_MAX_MIN must be >= 0, got %v", c.UnsplitModuleMaxMin)
	}
	if c.MinChunkMin <= 0 {
		p.addf("MIN_CHUNK_MIN must be > 0, got %v", c.MinChunkMin)
	}
	if c.MaxModuleChunks < 2 {
		p.addf("MAX_MODULE_CHUNKS must be >= 2, got %d", c.MaxModuleChunks)
	}

	if c.RetakeMinSprintGap < 0 {
		p.addf("RETAKE_MIN_SPRINT_GAP must be >= 0, got %d", c.RetakeMinSprintGap)
	}
	if c.RetakeFinalPhaseSprints < 0 {
		p.addf("RETAKE_FINAL_PHASE_SPRINTS must be >= 0, got %d", c.RetakeFinalPhaseSprints)
	}
	checkRange(&p, "RETAKE_CORE_PROGRESS_PCT", c.RetakeCoreProgressPct, 0, 1)
	checkRange(&p, "RETAKE_PRIMARY_SHARE_CAP", c.RetakePrimaryShareCap, 0, 1)

	if c.HistorySectionTitle == "" || c.HistoryArtSectionTitle == "" {
		p.addf("HISTORY_SECTION_TITLE and HISTORY_ART_SECTION_TITLE must be non-empty")
	}
	checkRange(&p, "HISTORY_ART_UNLOCK_HISTORY_PROGRESS_PCT", c.HistoryArtUnlockHistoryProgressPct, 0, 1)

	if c.CheckpointMinQuestionsPerPart < 1 {
		p.addf("CHECKPOINT_MIN_QUESTIONS_PER_PART must be >= 1, got %d", c.CheckpointMinQuestionsPerPart)
	}
	if c.CheckpointTargetQuestionsPerPart < c.CheckpointMinQuestionsPerPart {
		p.addf("CHECKPOINT_TARGET_QUESTIONS_PER_PART must be >= CHECKPOINT_MIN_QUESTIONS_PER_PART, got %d", c.CheckpointTargetQuestionsPerPart)
	}
	if c.CheckpointMaxSources < 1 {
		p.addf("CHECKPOINT_MAX_SOURCES must be >= 1, got %d", c.CheckpointMaxSources)
	}
	if c.CheckpointTimeDrillMinBudget < 0 {
		p.addf("CHECKPOINT_TIME_DRILL_MIN_BUDGET must be >= 0, got %v", c.CheckpointTimeDrillMinBudget)
	}
	if c.CheckpointTimeDrillMinutes < 1 {
		p.addf("CHECKPOINT_TIME_DRILL_MINUTES must be >= 1, got %v", c.CheckpointTimeDrillMinutes)
	}

	if c.AdaptationEMAAlpha <= 0 || c.AdaptationEMAAlpha > 1 {
		p.addf("ADAPTATION_EMA_ALPHA must be in (0,1], got %v", c.AdaptationEMAAlpha)
	}
	checkRange(&p, "ADAPTATION_TARGET_ACCURACY", c.AdaptationTargetAccuracy, 0, 1)
	checkRange(&p, "ADAPTATION_MAX_NUDGE", c.AdaptationMaxNudge, 0, 1)

	return p.err()
}

// capStrict reports whether MAX_PART_SHARE binds in every phase.
func (c Config) capStrict() bool {
	return c.Strategy != StrategyHighLevel
}

func checkRange(p *problems, key string, v, lo, hi float64) {
	if v < lo || v > hi {
		p.addf("%s must be in [%v,%v], got %v", key, lo, hi, v)
	}
}

func configToMap(c Config) (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeOverrides layers override on top of base. Nested objects merge key by
// key, so a partial SUBJECT_MULTIPLIERS override keeps the other parts.
func MergeOverrides(base, override map[string]any) map[string]any {
	return deepMerge(base, override)
}

// deepMerge returns base with override applied. Nested objects merge key by
// key; any other override value replaces the base value.
func deepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = deepMerge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

func sortedPartKeys(m map[ExamPart]float64) []ExamPart {
	keys := make([]ExamPart, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedCategoryKeys(m map[Category]float64) []Category {
	keys := make([]Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
