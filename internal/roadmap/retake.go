package roadmap

import "sort"

// retakeEligible applies the retake gate to one submodule in the current sprint.
func (p *pass) retakeEligible(sc *sprintCtx, id int) bool {
	if !p.cfg.EnableRetakes {
		return false
	}
	st := p.st.subs[id]
	if st.uniqueSelected == 0 || st.uniqueRemaining > 0 || st.retakeRemaining <= 0 {
		return false
	}
	// Retakes never share a sprint with the last unique questions.
	if st.lastUniqueSprint >= sc.frame.number {
		return false
	}
	if st.lastRetakeSprint > 0 && sc.frame.number-st.lastRetakeSprint < p.cfg.RetakeMinSprintGap {
		return false
	}
	if st.lastRetakeSprint == sc.frame.number {
		return false
	}
	if p.cfg.Strategy == StrategyBalanced {
		finalPhase := sc.frame.number > len(p.frames)-p.cfg.RetakeFinalPhaseSprints
		progressed := sc.coreProgress+eps >= p.cfg.RetakeCoreProgressPct
		if !finalPhase && !progressed {
			return false
		}
	}
	return true
}

// retakeCandidates returns the eligible submodules among ids, weakest first:
// highest wrong rate, then largest retake pool, then curriculum order.
func (p *pass) retakeCandidates(sc *sprintCtx, ids []int) []int {
	var out []int
	for _, id := range ids {
		if p.retakeEligible(sc, id) {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := p.m.subs[out[i]], p.m.subs[out[j]]
		if a.wrongRate != b.wrongRate {
			return a.wrongRate > b.wrongRate
		}
		ra, rb := p.st.subs[a.id].retakeRemaining, p.st.subs[b.id].retakeRemaining
		if ra != rb {
			return ra > rb
		}
		if a.sectionID != b.sectionID {
			return a.sectionID < b.sectionID
		}
		return a.index < b.index
	})
	return out
}

// partSubIDs lists the submodules of a part in curriculum order.
func (p *pass) partSubIDs(pi int) []int {
	var out []int
	for _, secID := range p.m.parts[pi].sectionIDs {
		out = append(out, p.m.sections[secID].subIDs...)
	}
	return out
}
