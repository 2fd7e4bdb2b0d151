package roadmap

import "sort"

// Phase names the scheduler phase that produced a sprint item.
type Phase string

const (
	PhasePrimary       Phase = "primary"
	PhaseRedistributed Phase = "redistribution"
	PhaseFill          Phase = "fill"
)

// pass is one full scheduling run over the sprint skeleton at a fixed
// hours/week value.
type pass struct {
	cfg    Config
	m      *model
	sel    []scope
	st     *state
	mode   Mode
	frames []sprintFrame
	nudges [partCount]float64

	sprints []*sprintCtx
}

type sprintCtx struct {
	frame      sprintFrame
	final      bool
	capMinutes float64

	coreProgress float64
	active       [partCount]bool
	damped       [partCount]bool
	scores       [partCount]float64
	ranked       []ExamPart
	partBudgets  [partCount]int

	used       float64
	usedByPart [partCount]float64

	items map[int]*itemAcc
	order []int
}

// itemAcc accumulates everything scheduled for one submodule in one sprint.
type itemAcc struct {
	subID   int
	learn   float64
	untimed int
	unique  int
	retake  int
	phase   Phase

	learnAfter   float64
	uniqueAfter  int
	retakeAfter  int
	partialAfter bool
	chunkLabel   string
}

func (it *itemAcc) coreMinutes(cpq float64) float64 {
	return it.learn + float64(it.unique)*cpq
}

func (it *itemAcc) totalMinutes(cpq float64) float64 {
	return it.learn + float64(it.unique+it.retake)*cpq
}

func newPass(cfg Config, m *model, sel []scope, mode Mode, frames []sprintFrame, nudges [partCount]float64) *pass {
	return &pass{
		cfg:    cfg,
		m:      m,
		sel:    sel,
		st:     newState(m, sel),
		mode:   mode,
		frames: frames,
		nudges: nudges,
	}
}

// run schedules every sprint in order and labels chunked submodules.
func (p *pass) run() {
	for i, f := range p.frames {
		sc := &sprintCtx{
			frame:      f,
			final:      i == len(p.frames)-1,
			capMinutes: p.cfg.MaxPartShare * float64(f.planning),
			items:      make(map[int]*itemAcc),
		}
		sc.coreProgress = p.st.coreProgress()

		p.prioritize(sc)
		p.allocatePrimary(sc)
		p.redistributeCore(sc)
		p.redistributeFill(sc)
		p.snapshot(sc)

		p.sprints = append(p.sprints, sc)
	}
	p.labelChunks()
}

// slack is the planning time still unassigned in the sprint.
func (sc *sprintCtx) slack() float64 {
	return float64(sc.frame.planning) - sc.used
}

// record books consumed work into the sprint and returns its minutes.
func (p *pass) record(sc *sprintCtx, id int, learn float64, untimed, unique, retake int, phase Phase) float64 {
	if learn <= eps && untimed == 0 && unique == 0 && retake == 0 {
		return 0
	}
	cpq := p.m.subs[id].cpq
	minutes := learn + float64(unique+retake)*cpq

	it, ok := sc.items[id]
	if !ok {
		it = &itemAcc{subID: id, phase: phase}
		sc.items[id] = it
		sc.order = append(sc.order, id)
	}
	it.learn += learn
	it.untimed += untimed
	it.unique += unique
	it.retake += retake

	sc.used += minutes
	sc.usedByPart[p.m.partOf(id).Index()] += minutes
	p.st.subs[id].lastSprint = sc.frame.number
	return minutes
}

// snapshot captures the remaining-after counters of every touched submodule.
func (p *pass) snapshot(sc *sprintCtx) {
	sort.Slice(sc.order, func(i, j int) bool {
		return p.itemLess(sc.order[i], sc.order[j])
	})
	for _, id := range sc.order {
		it := sc.items[id]
		st := p.st.subs[id]
		it.learnAfter = round2(st.learnRemaining)
		it.uniqueAfter = st.uniqueRemaining
		it.retakeAfter = st.retakeRemaining
		it.partialAfter = !p.st.coreComplete(id)
	}
}

// itemLess orders submodules by part, section and curriculum index.
func (p *pass) itemLess(a, b int) bool {
	pa, pb := p.m.partOf(a).Index(), p.m.partOf(b).Index()
	if pa != pb {
		return pa < pb
	}
	sa, sb := p.m.subs[a], p.m.subs[b]
	if sa.sectionID != sb.sectionID {
		return sa.sectionID < sb.sectionID
	}
	return sa.index < sb.index
}

// backlogByPart is the remaining in-scope core minutes per part.
func (p *pass) backlogByPart() [partCount]float64 {
	var out [partCount]float64
	for pi := range AllParts {
		out[pi] = p.st.partBacklog(pi)
	}
	return out
}
