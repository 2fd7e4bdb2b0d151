package roadmap

import (
	"math"
	"sort"
)

// redistributeCore hands leftover planning time to remaining core work,
// weakest parts first. The part cap binds in the first round; under the
// high_level strategy a second round ignores it to finish core coverage.
func (p *pass) redistributeCore(sc *sprintCtx) {
	rounds := 1
	if !p.cfg.capStrict() {
		rounds = 2
	}
	for round := 0; round < rounds; round++ {
		bypass := round == 1
		for {
			if sc.slack() <= eps {
				return
			}
			cands := p.coreCandidates(sc, bypass)
			if len(cands) == 0 {
				break
			}
			progressed := false
			for _, pi := range cands {
				give := p.headroom(sc, pi, bypass)
				for _, secID := range p.m.parts[pi].sectionIDs {
					if give <= eps {
						break
					}
					used := p.walkSection(sc, secID, give, false, PhaseRedistributed)
					if used > eps {
						progressed = true
					}
					give -= used
				}
			}
			if !progressed {
				break
			}
		}
	}
}

// redistributeFill spends what is left on retake practice once the whole
// in-scope core backlog is gone. The part cap always binds here.
func (p *pass) redistributeFill(sc *sprintCtx) {
	if !p.cfg.EnableFillToPlan || p.st.totalBacklog() > eps {
		return
	}
	for _, pi := range p.partsByWeakness(sc) {
		give := p.headroom(sc, pi, false)
		if give <= eps {
			continue
		}
		for _, id := range p.retakeCandidates(sc, p.partSubIDs(pi)) {
			if give <= eps {
				break
			}
			n := p.st.consumeRetake(id, give, sc.frame.number)
			give -= p.record(sc, id, 0, 0, 0, n, PhaseFill)
		}
		if sc.slack() <= eps {
			return
		}
	}
}

// coreCandidates returns parts with schedulable core work and room to take it.
func (p *pass) coreCandidates(sc *sprintCtx, bypass bool) []int {
	var out []int
	for _, pi := range p.partsByWeakness(sc) {
		if p.partSchedulable(pi) && p.headroom(sc, pi, bypass) > eps {
			out = append(out, pi)
		}
	}
	return out
}

// headroom is what a part may still receive: the sprint slack, bounded by
// the part cap unless bypassed.
func (p *pass) headroom(sc *sprintCtx, pi int, bypass bool) float64 {
	give := sc.slack()
	if !bypass {
		give = math.Min(give, sc.capMinutes-sc.usedByPart[pi])
	}
	return math.Max(0, give)
}

// partsByWeakness orders parts by level, then priority score, then fixed order.
func (p *pass) partsByWeakness(sc *sprintCtx) []int {
	out := make([]int, 0, partCount)
	for pi := range AllParts {
		if len(p.m.parts[pi].sectionIDs) > 0 {
			out = append(out, pi)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if la, lb := p.m.parts[a].level, p.m.parts[b].level; la != lb {
			return la < lb
		}
		if sc.scores[a] != sc.scores[b] {
			return sc.scores[a] > sc.scores[b]
		}
		return a < b
	})
	return out
}
