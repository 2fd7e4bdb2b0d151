package roadmap

import (
	"fmt"
	"sort"
	"strings"
)

// Checkpoint kinds.
const (
	CheckpointSingleSource = "single_source"
	CheckpointMixed        = "mixed"
	CheckpointTimeDrill    = "time_drill"
)

// Checkpoint confidence labels.
const (
	ConfidenceStandard  = "standard"
	ConfidenceLowSample = "low_sample"
)

type Checkpoint struct {
	ByExamPart map[ExamPart]PartCheckpoint `json:"by_exam_part"`
}

// PartCheckpoint is the end-of-sprint assessment of one exam part.
type PartCheckpoint struct {
	Type                string             `json:"type"`
	Sources             []CheckpointSource `json:"sources"`
	CheckpointQuestions int                `json:"checkpoint_questions"`
	TimeLimitMinutes    float64            `json:"time_limit_minutes"`
	Confidence          string             `json:"confidence"`
}

type CheckpointSource struct {
	SectionTitle   string `json:"section_title"`
	SubmoduleName  string `json:"submodule_name"`
	SubmoduleIndex int    `json:"submodule_index"`
	Questions      int    `json:"questions"`
}

// PracticeBlock summarizes one part's practice in a sprint.
type PracticeBlock struct {
	ExamPart        ExamPart `json:"exam_part"`
	UniqueQuestions int      `json:"unique_questions"`
	RetakeQuestions int      `json:"retake_questions"`
	Minutes         float64  `json:"minutes"`
	Summary         string   `json:"summary"`
}

// checkpoint builds the per-part checkpoints of a finished sprint.
func (p *pass) checkpoint(sc *sprintCtx) Checkpoint {
	cp := Checkpoint{ByExamPart: make(map[ExamPart]PartCheckpoint)}
	for pi, part := range AllParts {
		vols := p.practiceVolumes(sc, pi)
		if len(vols) == 0 {
			if float64(sc.partBudgets[pi])+eps >= p.cfg.CheckpointTimeDrillMinBudget && sc.partBudgets[pi] > 0 {
				cp.ByExamPart[part] = PartCheckpoint{
					Type:             CheckpointTimeDrill,
					Sources:          []CheckpointSource{},
					TimeLimitMinutes: p.cfg.CheckpointTimeDrillMinutes,
					Confidence:       ConfidenceLowSample,
				}
			}
			continue
		}
		cp.ByExamPart[part] = p.practiceCheckpoint(vols)
	}
	return cp
}

type practiceVolume struct {
	subID     int
	questions int
}

// practiceVolumes lists the part's submodules with practice this sprint,
// largest volume first, then curriculum order.
func (p *pass) practiceVolumes(sc *sprintCtx, pi int) []practiceVolume {
	var out []practiceVolume
	for _, id := range sc.order {
		if p.m.partOf(id).Index() != pi {
			continue
		}
		it := sc.items[id]
		if q := it.unique + it.retake; q > 0 {
			out = append(out, practiceVolume{subID: id, questions: q})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].questions != out[j].questions {
			return out[i].questions > out[j].questions
		}
		return p.itemLess(out[i].subID, out[j].subID)
	})
	return out
}

func (p *pass) practiceCheckpoint(vols []practiceVolume) PartCheckpoint {
	minQ, target := p.cfg.CheckpointMinQuestionsPerPart, p.cfg.CheckpointTargetQuestionsPerPart

	if vols[0].questions >= minQ {
		n := min(vols[0].questions, target)
		return PartCheckpoint{
			Type:                CheckpointSingleSource,
			Sources:             []CheckpointSource{p.checkpointSource(vols[0].subID, n)},
			CheckpointQuestions: n,
			TimeLimitMinutes:    p.answerMinutes(vols[0].subID, n),
			Confidence:          confidenceFor(n, minQ),
		}
	}

	if len(vols) > p.cfg.CheckpointMaxSources {
		vols = vols[:p.cfg.CheckpointMaxSources]
	}
	var sum int
	for _, v := range vols {
		sum += v.questions
	}
	total := min(sum, target)
	quotas := make([]float64, len(vols))
	for i, v := range vols {
		quotas[i] = float64(v.questions) * float64(total) / float64(sum)
	}
	counts := apportion(total, quotas, nil)

	out := PartCheckpoint{Type: CheckpointMixed, Sources: []CheckpointSource{}}
	var limit float64
	for i, v := range vols {
		if counts[i] == 0 {
			continue
		}
		out.Sources = append(out.Sources, p.checkpointSource(v.subID, counts[i]))
		out.CheckpointQuestions += counts[i]
		limit += p.answerMinutes(v.subID, counts[i])
	}
	out.TimeLimitMinutes = round2(limit)
	out.Confidence = confidenceFor(out.CheckpointQuestions, minQ)
	return out
}

func (p *pass) checkpointSource(id, questions int) CheckpointSource {
	sub := p.m.subs[id]
	return CheckpointSource{
		SectionTitle:   p.m.sections[sub.sectionID].title,
		SubmoduleName:  sub.name,
		SubmoduleIndex: sub.index,
		Questions:      questions,
	}
}

// answerMinutes is the timed answering budget for n questions, without the
// review overhead that planned practice carries.
func (p *pass) answerMinutes(id, n int) float64 {
	return round2(float64(n) * p.m.subs[id].cpq / (1 + p.cfg.PracticeReviewOverheadPct))
}

func confidenceFor(questions, minQ int) string {
	if questions < minQ {
		return ConfidenceLowSample
	}
	return ConfidenceStandard
}

// practiceBlocks renders a readable practice summary per part.
func (p *pass) practiceBlocks(sc *sprintCtx) []PracticeBlock {
	blocks := []PracticeBlock{}
	for pi, part := range AllParts {
		var b PracticeBlock
		var names []string
		for _, id := range sc.order {
			if p.m.partOf(id).Index() != pi {
				continue
			}
			it := sc.items[id]
			if it.unique+it.retake == 0 {
				continue
			}
			b.UniqueQuestions += it.unique
			b.RetakeQuestions += it.retake
			b.Minutes += float64(it.unique+it.retake) * p.m.subs[id].cpq
			names = append(names, p.m.subs[id].name)
		}
		if len(names) == 0 {
			continue
		}
		b.ExamPart = part
		b.Minutes = round2(b.Minutes)
		b.Summary = practiceSummary(part, b, names)
		blocks = append(blocks, b)
	}
	return blocks
}

func practiceSummary(part ExamPart, b PracticeBlock, names []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d unique", part.DisplayName(), b.UniqueQuestions)
	if b.RetakeQuestions > 0 {
		fmt.Fprintf(&sb, " + %d retake", b.RetakeQuestions)
	}
	fmt.Fprintf(&sb, " questions (%.2f min) from %s", b.Minutes, strings.Join(names, ", "))
	return sb.String()
}
