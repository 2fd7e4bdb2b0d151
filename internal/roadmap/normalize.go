package roadmap

import (
	"fmt"
	"math"
	"regexp"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
)

// model is the normalized, read-only curriculum of one generation run.
// Sections and submodules live in flat arenas addressed by index.
type model struct {
	sections []sectionInfo
	subs     []subInfo
	parts    [partCount]partInfo
	warnings []string

	historyID    int // -1 when absent
	historyArtID int // -1 when absent
}

type sectionInfo struct {
	id         int
	title      string
	part       ExamPart
	level      int
	learnShare float64
	subIDs     []int
	workload   float64
}

type subInfo struct {
	id        int
	sectionID int
	index     int
	name      string
	category  Category

	learnMinutes float64
	untimedItems int
	questions    int
	cpq          float64
	wrongRate    float64
}

type partInfo struct {
	part       ExamPart
	sectionIDs []int
	level      float64
	workload   float64
}

func (m *model) partOf(subID int) ExamPart {
	return m.sections[m.subs[subID].sectionID].part
}

// fullMinutes is the complete core workload of a submodule.
func (s subInfo) fullMinutes() float64 {
	return s.learnMinutes + float64(s.questions)*s.cpq
}

type classifier struct {
	patterns []CategoryPattern
	compiled []*regexp.Regexp
}

func newClassifier(patterns []CategoryPattern) (*classifier, error) {
	c := &classifier{patterns: patterns}
	for i, cp := range patterns {
		re, err := regexp.Compile(cp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile category pattern %d: %w", i, err)
		}
		c.compiled = append(c.compiled, re)
	}
	return c, nil
}

// classify returns the first matching category, or core when nothing matches.
func (c *classifier) classify(name string) Category {
	if name == "" {
		return CategoryMisc
	}
	for i, re := range c.compiled {
		if re.MatchString(name) {
			return c.patterns[i].Category
		}
	}
	return CategoryCore
}

// normalize maps sections to exam parts, resolves levels and computes the
// per-submodule cost metrics.
func normalize(cfg Config, in Input) (*model, error) {
	cls, err := newClassifier(cfg.ContentCategoryPatterns)
	if err != nil {
		return nil, err
	}

	partLookup := buildTitleLookup(cfg.SectionToPart)
	overrideLookup := buildTitleLookup(cfg.SectionPartOverrides)

	levelLookup := make(map[string]int, len(in.LevelsBySection))
	for _, title := range sortedStringKeys(in.LevelsBySection) {
		key := curriculum.NormalizeTitle(title)
		if _, dup := levelLookup[key]; dup {
			continue
		}
		levelLookup[key] = in.LevelsBySection[title]
	}

	m := &model{historyID: -1, historyArtID: -1}
	historyKey := curriculum.NormalizeTitle(cfg.HistorySectionTitle)
	historyArtKey := curriculum.NormalizeTitle(cfg.HistoryArtSectionTitle)

	for _, sec := range in.CourseModularOverview.Sections {
		key := curriculum.NormalizeTitle(sec.Title)

		part, ok := overrideLookup[key]
		if !ok {
			part, ok = partLookup[key]
		}
		if !ok {
			m.warnings = append(m.warnings, fmt.Sprintf("section %q is not mapped to an exam part and was excluded", sec.Title))
			continue
		}

		level, ok := levelLookup[key]
		if !ok {
			level = cfg.DefaultLevel
			m.warnings = append(m.warnings, fmt.Sprintf("no level for section %q, using default level %d", sec.Title, level))
		}

		info := sectionInfo{
			id:         len(m.sections),
			title:      sec.Title,
			part:       part,
			level:      level,
			learnShare: cfg.LevelLearnShare[level],
		}

		subjectMult := cfg.SubjectMultipliers[part]
		levelMult := cfg.LevelTimeMultipliers[level]
		cpq := math.Max(minCostPerQuestion, round2(cfg.BaseMinutesPerQuestion*subjectMult*levelMult*(1+cfg.PracticeReviewOverheadPct)))

		for idx, sub := range sec.Submodules {
			st := sub.Stats
			cat := cls.classify(sub.Name)
			si := subInfo{
				id:           len(m.subs),
				sectionID:    info.id,
				index:        idx,
				name:         sub.Name,
				category:     cat,
				learnMinutes: round2(st.LessonsVideoMinutes + st.TimedTextMinutes + float64(st.UntimedTextItems)*cfg.UntimedMinutesPerItem),
				untimedItems: st.UntimedTextItems,
				questions:    st.QuestionsTotal,
				cpq:          cpq,
				wrongRate:    clamp01(cfg.LevelWrongRate[level] + cfg.CategoryWrongRateDelta[cat]),
			}
			info.subIDs = append(info.subIDs, si.id)
			info.workload += si.fullMinutes()
			m.subs = append(m.subs, si)
		}

		if info.workload <= eps {
			m.warnings = append(m.warnings, fmt.Sprintf("section %q has zero workload", sec.Title))
		}

		switch key {
		case historyKey:
			if m.historyID < 0 {
				m.historyID = info.id
			}
		case historyArtKey:
			if m.historyArtID < 0 {
				m.historyArtID = info.id
			}
		}

		m.sections = append(m.sections, info)
	}

	// The lock only applies when both sections sit inside General Knowledge.
	if m.historyID >= 0 && m.sections[m.historyID].part != PartGeneralKnowledge {
		m.historyID = -1
	}
	if m.historyArtID >= 0 && m.sections[m.historyArtID].part != PartGeneralKnowledge {
		m.historyArtID = -1
	}

	m.aggregateParts()
	return m, nil
}

// aggregateParts computes each part's workload-weighted level.
func (m *model) aggregateParts() {
	for i, part := range AllParts {
		m.parts[i] = partInfo{part: part}
	}
	for _, sec := range m.sections {
		pi := &m.parts[sec.part.Index()]
		pi.sectionIDs = append(pi.sectionIDs, sec.id)
		pi.workload += sec.workload
	}
	for i := range m.parts {
		pi := &m.parts[i]
		if len(pi.sectionIDs) == 0 {
			continue
		}
		var weighted, plain float64
		for _, id := range pi.sectionIDs {
			sec := m.sections[id]
			weighted += float64(sec.level) * sec.workload
			plain += float64(sec.level)
		}
		if pi.workload > eps {
			pi.level = weighted / pi.workload
		} else {
			pi.level = plain / float64(len(pi.sectionIDs))
		}
	}
}

// unknownLevelKeys returns level keys that match no curriculum section at all.
func unknownLevelKeys(in Input) []string {
	known := make(map[string]bool, len(in.CourseModularOverview.Sections))
	for _, sec := range in.CourseModularOverview.Sections {
		known[curriculum.NormalizeTitle(sec.Title)] = true
	}
	var out []string
	for _, title := range sortedStringKeys(in.LevelsBySection) {
		if !known[curriculum.NormalizeTitle(title)] {
			out = append(out, title)
		}
	}
	return out
}

func buildTitleLookup(m map[string]ExamPart) map[string]ExamPart {
	out := make(map[string]ExamPart, len(m))
	for _, title := range sortedStringKeys(m) {
		key := curriculum.NormalizeTitle(title)
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = m[title]
	}
	return out
}

const (
	eps = 1e-6

	// minCostPerQuestion keeps every question worth at least one rounding unit.
	minCostPerQuestion = 0.01
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
