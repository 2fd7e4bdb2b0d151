package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option customizes a Generate call.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver registers fn to receive every pass the hours solver runs.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Generate builds the roadmaps for in. It returns a *ValidationError for
// malformed input or config and wraps ErrHoursCeiling when no plan clears
// the backlog within the configured ceiling. Identical inputs always yield
// identical results.
func Generate(in Input, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}
	cfg, warnings, err := ResolveConfig(in.ConfigOverrides)
	if err != nil {
		return nil, err
	}

	if unknown := unknownLevelKeys(in); len(unknown) > 0 {
		if !cfg.IgnoreUnknownLevelKeys {
			var p problems
			for _, k := range unknown {
				p.addf("levels_by_section[%q] matches no curriculum section", k)
			}
			return nil, p.err()
		}
		for _, k := range unknown {
			warnings = append(warnings, fmt.Sprintf("level key %q matches no curriculum section and was ignored", k))
		}
	}

	m, err := normalize(cfg, in)
	if err != nil {
		return nil, fmt.Errorf("normalize curriculum: %w", err)
	}
	warnings = append(warnings, m.warnings...)

	g := &planner{
		cfg:      cfg,
		m:        m,
		weeks:    in.WeeksToExam,
		nudges:   adaptationNudges(cfg, in.CheckpointHistory),
		observer: o.observer,
	}
	fullSel := selectScope(cfg, m, ModeFull)
	requiredFull, _ := requiredMinutes(m, fullSel)

	if in.HoursPerWeek != nil && !cfg.EnableManualHours {
		warnings = append(warnings, "hours_per_week ignored because ENABLE_MANUAL_HOURS is false")
	}

	res := &Result{EffectiveConfig: cfg}
	if in.HoursPerWeek != nil && cfg.EnableManualHours {
		hours := *in.HoursPerWeek
		full := g.manual(fullSel, ModeFull, hours, requiredFull, warnings)
		res.Roadmaps = append(res.Roadmaps, full)
		if !full.Metadata.PolicyFeasible && cfg.EnableMinimalFallback {
			minSel := selectScope(cfg, m, ModeMinimal)
			res.Roadmaps = append(res.Roadmaps, g.manual(minSel, ModeMinimal, hours, requiredFull, warnings))
		}
		return res, nil
	}

	p, hours, info, err := g.solve(fullSel)
	if err != nil {
		return nil, err
	}
	optimal := round2(hours)
	res.Roadmaps = append(res.Roadmaps, p.assemble(runMeta{
		weeks:        in.WeeksToExam,
		hoursMode:    HoursAuto,
		hours:        hours,
		optimal:      &optimal,
		estimated:    g.estimateHours(fullSel),
		requiredFull: requiredFull,
		solver:       info,
		warnings:     warnings,
	}))
	return res, nil
}

// manual runs a single pass at the caller's hours/week; it never raises them.
func (g *planner) manual(sel []scope, mode Mode, hours, requiredFull float64, warnings []string) Roadmap {
	info := SolverInfo{StartHours: round2(hours), Trace: []SolverStep{}}
	p := g.runPass(sel, mode, hours)
	g.observe(&info, mode, hours, p)
	return p.assemble(runMeta{
		weeks:        g.weeks,
		hoursMode:    HoursManual,
		hours:        hours,
		estimated:    g.estimateHours(sel),
		requiredFull: requiredFull,
		solver:       info,
		warnings:     warnings,
	})
}

// DecodeInput parses a JSON request. Shape errors are reported as a
// *ValidationError.
func DecodeInput(raw []byte) (Input, error) {
	var in Input
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&in); err != nil {
		return Input{}, &ValidationError{Problems: []string{fmt.Sprintf("decode input: %v", err)}}
	}
	return in, nil
}

// GenerateJSON decodes raw and generates from it.
func GenerateJSON(raw []byte, opts ...Option) (*Result, error) {
	in, err := DecodeInput(raw)
	if err != nil {
		return nil, err
	}
	return Generate(in, opts...)
}
