package roadmap

import "math"

type sectionBudget struct {
	secID   int
	minutes int
}

// allocatePrimary spends each part's budget on its sections in curriculum
// order, splitting learning and practice inside partially covered submodules.
func (p *pass) allocatePrimary(sc *sprintCtx) {
	for _, part := range sc.ranked {
		pi := part.Index()
		for _, sb := range p.sectionBudgets(sc, pi, sc.partBudgets[pi]) {
			budget := float64(sb.minutes)
			used := p.walkSection(sc, sb.secID, budget, true, PhasePrimary)
			rest := budget - used
			if rest > eps && p.st.firstIncomplete(sb.secID) < 0 {
				p.primaryRetake(sc, sb.secID, rest)
			}
		}
	}
}

// sectionBudgets splits a part budget over the sections that can use it.
// Every such section gets a floor of MIN_SECTION_SHARE of the budget; the
// rest follows need (proficiency gap plus share of the part's backlog).
func (p *pass) sectionBudgets(sc *sprintCtx, pi, budget int) []sectionBudget {
	if budget <= 0 {
		return nil
	}
	partBacklog := p.st.partBacklog(pi)

	var ids []int
	var needs []float64
	for _, secID := range p.m.parts[pi].sectionIDs {
		backlog := p.st.sectionBacklog(secID)
		usable := p.sectionSchedulable(secID)
		if !usable && backlog <= eps {
			usable = len(p.retakeCandidates(sc, p.m.sections[secID].subIDs)) > 0
		}
		if !usable {
			continue
		}
		need := p.proficiencyGap(float64(p.m.sections[secID].level))
		if partBacklog > eps {
			need += backlog / partBacklog
		}
		ids = append(ids, secID)
		needs = append(needs, need)
	}
	if len(ids) == 0 {
		return nil
	}

	total := float64(budget)
	floor := p.cfg.MinSectionShare * total
	if floor*float64(len(ids)) > total {
		floor = total / float64(len(ids))
	}
	rest := total - floor*float64(len(ids))

	var needSum float64
	for _, n := range needs {
		needSum += n
	}
	quotas := make([]float64, len(ids))
	for i := range ids {
		share := 1 / float64(len(ids))
		if needSum > eps {
			share = needs[i] / needSum
		}
		quotas[i] = floor + rest*share
	}
	minutes := apportion(budget, quotas, func(i, j int) bool {
		if needs[i] != needs[j] {
			return needs[i] > needs[j]
		}
		return ids[i] < ids[j]
	})

	out := make([]sectionBudget, len(ids))
	for i, id := range ids {
		out[i] = sectionBudget{secID: id, minutes: minutes[i]}
	}
	return out
}

// walkSection consumes core work in strict curriculum order, starting at the
// first incomplete submodule. It stops at a locked or deferred submodule and
// after the first submodule it cannot finish. With split set, a submodule
// that does not fit is given a learning sub-budget sized by the section's
// learning share and a practice sub-budget for the rest.
func (p *pass) walkSection(sc *sprintCtx, secID int, budget float64, split bool, phase Phase) float64 {
	sec := p.m.sections[secID]
	used := 0.0
	for _, id := range sec.subIDs {
		if p.st.coreComplete(id) {
			continue
		}
		avail := budget - used
		if avail <= eps || p.locked(id) {
			break
		}
		core := p.st.coreRemaining(id)
		if p.deferSmall(sc, id, core, avail) {
			break
		}

		var learn float64
		var untimed, unique int
		st := &p.st.subs[id]
		if core <= avail+eps || !split {
			learn, untimed = p.st.consumeLearning(id, avail)
			unique = p.st.consumeUnique(id, avail-learn, sc.frame.number)
		} else {
			learnBudget := avail
			if st.uniqueRemaining > 0 && st.learnRemaining > eps {
				learnBudget = avail * sec.learnShare
			}
			learn, untimed = p.st.consumeLearning(id, learnBudget)
			unique = p.st.consumeUnique(id, avail-learn, sc.frame.number)
		}

		used += p.record(sc, id, learn, untimed, unique, 0, phase)
		if !p.st.coreComplete(id) {
			break
		}
	}
	return used
}

// deferSmall keeps a small untouched submodule whole: it waits for a sprint
// that can take it entirely, unless this is the final sprint. avail never
// exceeds the sprint slack; in redistribution it is the slack the part cap
// still lets this part use, which is all the walk could consume.
func (p *pass) deferSmall(sc *sprintCtx, id int, core, avail float64) bool {
	if sc.final || p.st.subs[id].started {
		return false
	}
	return core <= p.cfg.UnsplitModuleMaxMin+eps && core > avail+eps
}

// primaryRetake spends part of a core-complete section's leftover budget on
// its weakest eligible retake candidate.
func (p *pass) primaryRetake(sc *sprintCtx, secID int, rest float64) {
	cands := p.retakeCandidates(sc, p.m.sections[secID].subIDs)
	if len(cands) == 0 {
		return
	}
	budget := math.Floor(rest*p.cfg.RetakePrimaryShareCap + eps)
	id := cands[0]
	n := p.st.consumeRetake(id, budget, sc.frame.number)
	p.record(sc, id, 0, 0, 0, n, PhasePrimary)
}
