package roadmap

import "math"

// scope is the portion of one submodule that a generation mode must cover.
type scope struct {
	learnMinutes float64
	untimedItems int
	questions    int
}

// selectScope returns the in-scope workload of every submodule for mode.
// Full coverage takes everything; minimal keeps all learning content and a
// share of the unique questions.
func selectScope(cfg Config, m *model, mode Mode) []scope {
	out := make([]scope, len(m.subs))
	for i, sub := range m.subs {
		sc := scope{
			learnMinutes: sub.learnMinutes,
			untimedItems: sub.untimedItems,
			questions:    sub.questions,
		}
		if mode == ModeMinimal {
			sc.questions = int(math.Ceil(float64(sub.questions)*cfg.MinimalQuestionShare - eps))
		}
		out[i] = sc
	}
	return out
}

// requiredMinutes sums the in-scope core minutes, in total and per part.
func requiredMinutes(m *model, sel []scope) (float64, [partCount]float64) {
	var total float64
	var byPart [partCount]float64
	for i, sub := range m.subs {
		mins := sel[i].learnMinutes + float64(sel[i].questions)*sub.cpq
		total += mins
		byPart[m.partOf(i).Index()] += mins
	}
	return total, byPart
}
