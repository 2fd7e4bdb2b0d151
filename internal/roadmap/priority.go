package roadmap

import (
	"math"
	"sort"
)

// prioritize scores every part with remaining backlog, ranks them and turns
// the scores into bounded integer minute budgets for the sprint.
func (p *pass) prioritize(sc *sprintCtx) {
	var backlog [partCount]float64
	var maxBacklog float64
	for pi := range AllParts {
		backlog[pi] = p.st.partBacklog(pi)
		if backlog[pi] > eps {
			sc.active[pi] = true
			maxBacklog = math.Max(maxBacklog, backlog[pi])
		}
	}

	weakHasWork := false
	if p.cfg.WeakPartProtection {
		for pi := range AllParts {
			if sc.active[pi] && p.m.parts[pi].level < float64(p.cfg.StrongLevelThreshold) && p.partSchedulable(pi) {
				weakHasWork = true
				break
			}
		}
	}

	for pi := range AllParts {
		if !sc.active[pi] {
			continue
		}
		gap := p.proficiencyGap(p.m.parts[pi].level)
		score := p.cfg.PriorityGapWeight*gap + p.cfg.PriorityBacklogWeight*(backlog[pi]/maxBacklog)
		if weakHasWork && p.m.parts[pi].level >= float64(p.cfg.StrongLevelThreshold) {
			score *= p.cfg.StrongPartDamping
			sc.damped[pi] = true
		}
		score *= 1 + p.nudges[pi]
		sc.scores[pi] = score
	}

	sc.ranked = sc.ranked[:0]
	for pi, part := range AllParts {
		if sc.active[pi] {
			sc.ranked = append(sc.ranked, part)
		}
	}
	sort.SliceStable(sc.ranked, func(i, j int) bool {
		a, b := sc.ranked[i].Index(), sc.ranked[j].Index()
		if sc.scores[a] != sc.scores[b] {
			return sc.scores[a] > sc.scores[b]
		}
		return a < b
	})

	shares := boundedShares(sc.scores, sc.active, p.cfg.MinPartShare, p.cfg.MaxPartShare)
	var quotas [partCount]float64
	var total float64
	for pi := range AllParts {
		quotas[pi] = shares[pi] * float64(sc.frame.planning)
		total += quotas[pi]
	}
	minutes := apportion(int(math.Floor(total+eps)), quotas[:], func(i, j int) bool {
		if sc.scores[i] != sc.scores[j] {
			return sc.scores[i] > sc.scores[j]
		}
		return i < j
	})
	for pi := range AllParts {
		sc.partBudgets[pi] = minutes[pi]
		if float64(sc.partBudgets[pi]) > sc.capMinutes {
			sc.partBudgets[pi] = int(sc.capMinutes)
		}
	}
}

// proficiencyGap is (target - level) / (target - 1), clamped to [0,1].
func (p *pass) proficiencyGap(level float64) float64 {
	target := float64(p.cfg.TargetLevel)
	return clamp01((target - level) / (target - 1))
}

// partSchedulable reports whether any section of the part can take core work now.
func (p *pass) partSchedulable(pi int) bool {
	for _, secID := range p.m.parts[pi].sectionIDs {
		if p.sectionSchedulable(secID) {
			return true
		}
	}
	return false
}

func (p *pass) sectionSchedulable(secID int) bool {
	id := p.st.firstIncomplete(secID)
	return id >= 0 && !p.locked(id)
}

// boundedShares normalizes scores of active parts into shares bounded by
// [lo, hi]. Violators are pinned one side at a time and the free mass is
// re-spread over the rest until no bound is violated. When every active part
// is pinned at hi the shares sum to less than 1.
func boundedShares(scores [partCount]float64, active [partCount]bool, lo, hi float64) [partCount]float64 {
	var shares [partCount]float64
	var pinned [partCount]bool

	for iter := 0; iter <= partCount; iter++ {
		freeMass := 1.0
		var freeScore float64
		freeCount := 0
		for pi := range shares {
			if !active[pi] {
				continue
			}
			if pinned[pi] {
				freeMass -= shares[pi]
				continue
			}
			freeScore += scores[pi]
			freeCount++
		}
		if freeCount == 0 {
			break
		}
		freeMass = math.Max(0, freeMass)
		for pi := range shares {
			if !active[pi] || pinned[pi] {
				continue
			}
			if freeScore > 0 {
				shares[pi] = freeMass * scores[pi] / freeScore
			} else {
				shares[pi] = freeMass / float64(freeCount)
			}
		}

		changed := false
		for pi := range shares {
			if active[pi] && !pinned[pi] && shares[pi] > hi+eps {
				shares[pi], pinned[pi], changed = hi, true, true
			}
		}
		if changed {
			continue
		}
		for pi := range shares {
			if active[pi] && !pinned[pi] && shares[pi] < lo-eps {
				shares[pi], pinned[pi], changed = lo, true, true
			}
		}
		if !changed {
			break
		}
	}
	return shares
}

// apportion distributes total integer units across quotas with the largest
// remainder method. Ties on the fractional part fall back to less, then index.
func apportion(total int, quotas []float64, less func(i, j int) bool) []int {
	out := make([]int, len(quotas))
	if total <= 0 {
		return out
	}
	assigned := 0
	for i, q := range quotas {
		out[i] = int(math.Floor(q + eps))
		assigned += out[i]
	}

	order := make([]int, len(quotas))
	for i := range order {
		order[i] = i
	}
	frac := func(i int) float64 { return quotas[i] - math.Floor(quotas[i]+eps) }
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		fi, fj := frac(i), frac(j)
		if math.Abs(fi-fj) > eps {
			return fi > fj
		}
		if less != nil && less(i, j) != less(j, i) {
			return less(i, j)
		}
		return i < j
	})

	for k := 0; assigned < total && k < len(order); k++ {
		i := order[k]
		if quotas[i] <= eps {
			continue
		}
		out[i]++
		assigned++
	}
	return out
}
