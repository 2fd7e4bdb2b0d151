package roadmap

import (
	"fmt"
	"math"
)

// Observer receives every scheduling pass the hours solver tries.
type Observer func(SolverStep)

// planner runs passes for one validated, normalized request.
type planner struct {
	cfg      Config
	m        *model
	weeks    int
	nudges   [partCount]float64
	observer Observer
}

func (g *planner) runPass(sel []scope, mode Mode, hours float64) *pass {
	p := newPass(g.cfg, g.m, sel, mode, buildSkeleton(g.cfg, g.weeks, hours), g.nudges)
	p.run()
	return p
}

func (g *planner) observe(info *SolverInfo, mode Mode, hours float64, p *pass) {
	info.Iterations++
	step := SolverStep{
		Mode:                    mode,
		Iteration:               info.Iterations,
		HoursPerWeek:            round2(hours),
		RemainingBacklogMinutes: round2(p.st.totalBacklog()),
	}
	info.Trace = append(info.Trace, step)
	if g.observer != nil {
		g.observer(step)
	}
}

// estimateHours is the raw hours/week that would cover the in-scope workload
// exactly. Under a strict cap each part must also fit under its share.
func (g *planner) estimateHours(sel []scope) float64 {
	required, byPart := requiredMinutes(g.m, sel)
	need := required
	if g.cfg.capStrict() {
		for _, r := range byPart {
			need = math.Max(need, r/g.cfg.MaxPartShare)
		}
	}
	denom := float64(g.weeks) * 60 * (1 - g.cfg.SprintBufferPct)
	if denom <= 0 {
		return 0
	}
	return need / denom
}

// solve searches the smallest rounded hours/week that clears the backlog.
// It climbs one rounding step at a time from the estimate rounded up to the
// step (plus SOLVER_HEADROOM_PCT, zero by default), fails past the ceiling or
// the iteration cap, and may try one step lower when the first candidate left
// the early sprints visibly underused. A first candidate above the ceiling is
// pulled down to the ceiling so a plan that fits exactly there is still found.
func (g *planner) solve(sel []scope) (*pass, float64, SolverInfo, error) {
	cfg := g.cfg
	step := cfg.HoursRoundingStep
	raw := g.estimateHours(sel)
	start := ceilStep(math.Max(raw*(1+cfg.SolverHeadroomPct), cfg.MinHoursPerWeek), step)
	if start > cfg.MaxOptimalHoursPerWeek {
		start = math.Max(cfg.MaxOptimalHoursPerWeek, cfg.MinHoursPerWeek)
	}

	info := SolverInfo{StartHours: start, Trace: []SolverStep{}}
	var found *pass
	hours := start
	for k := 0; ; k++ {
		hours = snapHours(start + float64(k)*step)
		if hours > cfg.MaxOptimalHoursPerWeek+eps {
			return nil, raw, info, fmt.Errorf("%w: no full-coverage plan at or below %v hours/week", ErrHoursCeiling, cfg.MaxOptimalHoursPerWeek)
		}
		if info.Iterations >= cfg.SolverMaxIterations {
			return nil, raw, info, fmt.Errorf("%w: gave up after %d iterations at %v hours/week", ErrHoursCeiling, info.Iterations, hours)
		}
		p := g.runPass(sel, ModeFull, hours)
		g.observe(&info, ModeFull, hours, p)
		if p.st.totalBacklog() <= eps {
			found = p
			break
		}
	}

	lower := snapHours(hours - step)
	if cfg.EnableHoursDownshift && info.Iterations == 1 && lower+eps >= cfg.MinHoursPerWeek &&
		found.earlyUnusedRatio(cfg.DownshiftEarlySprints) >= cfg.DownshiftUnusedPct {
		p := g.runPass(sel, ModeFull, lower)
		g.observe(&info, ModeFull, lower, p)
		if p.st.totalBacklog() <= eps {
			found, hours = p, lower
			info.DownshiftApplied = true
		}
	}
	return found, hours, info, nil
}

// earlyUnusedRatio is the unused share of planning time over the first n sprints.
func (p *pass) earlyUnusedRatio(n int) float64 {
	var planning, unused float64
	for i, sc := range p.sprints {
		if i >= n {
			break
		}
		planning += float64(sc.frame.planning)
		unused += math.Max(0, sc.slack())
	}
	if planning <= 0 {
		return 0
	}
	return unused / planning
}

func ceilStep(v, step float64) float64 {
	return snapHours(math.Ceil(v/step-eps) * step)
}

// snapHours removes float drift from stepped hour values.
func snapHours(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
