package roadmap

import (
	"math"
)

// subState is the mutable scheduling state of one submodule during a pass.
type subState struct {
	learnRemaining   float64
	untimedRemaining int
	uniqueRemaining  int
	retakeRemaining  int
	uniqueSelected   int
	started          bool
	lastSprint       int
	lastUniqueSprint int
	lastRetakeSprint int
}

// state is the arena of submodule states for one scheduling pass. All
// mutation goes through the consume* operations, which return what was
// actually taken.
type state struct {
	m         *model
	subs      []subState
	coreTotal float64
}

func newState(m *model, sel []scope) *state {
	s := &state{m: m, subs: make([]subState, len(m.subs))}
	for i, sub := range m.subs {
		sc := sel[i]
		s.subs[i] = subState{
			learnRemaining:   sc.learnMinutes,
			untimedRemaining: sc.untimedItems,
			uniqueRemaining:  sc.questions,
			retakeRemaining:  int(math.Ceil(float64(sc.questions)*sub.wrongRate - eps)),
		}
		s.coreTotal += sc.learnMinutes + float64(sc.questions)*sub.cpq
	}
	return s
}

func (s *state) coreRemaining(id int) float64 {
	st := s.subs[id]
	return st.learnRemaining + float64(st.uniqueRemaining)*s.m.subs[id].cpq
}

func (s *state) coreComplete(id int) bool {
	return s.coreRemaining(id) <= eps
}

func (s *state) sectionBacklog(secID int) float64 {
	var total float64
	for _, id := range s.m.sections[secID].subIDs {
		total += s.coreRemaining(id)
	}
	return total
}

func (s *state) partBacklog(pi int) float64 {
	var total float64
	for _, secID := range s.m.parts[pi].sectionIDs {
		total += s.sectionBacklog(secID)
	}
	return total
}

func (s *state) totalBacklog() float64 {
	var total float64
	for id := range s.subs {
		total += s.coreRemaining(id)
	}
	return total
}

// coreProgress is the share of in-scope core minutes already scheduled.
func (s *state) coreProgress() float64 {
	if s.coreTotal <= eps {
		return 1
	}
	return clamp01(1 - s.totalBacklog()/s.coreTotal)
}

// firstIncomplete returns the first submodule of the section in curriculum
// order that still has core work, or -1.
func (s *state) firstIncomplete(secID int) int {
	for _, id := range s.m.sections[secID].subIDs {
		if !s.coreComplete(id) {
			return id
		}
	}
	return -1
}

// sectionCompletion is the core-completion ratio of a section in [0,1].
func (s *state) sectionCompletion(secID int, sel []scope) float64 {
	var total, remaining float64
	for _, id := range s.m.sections[secID].subIDs {
		total += sel[id].learnMinutes + float64(sel[id].questions)*s.m.subs[id].cpq
		remaining += s.coreRemaining(id)
	}
	if total <= eps {
		return 1
	}
	return clamp01(1 - remaining/total)
}

// consumeLearning takes up to budget learning minutes. A partial take is
// floored to whole minutes; untimed items are pro-rated to the share taken.
func (s *state) consumeLearning(id int, budget float64) (float64, int) {
	st := &s.subs[id]
	if st.learnRemaining <= eps || budget <= eps {
		return 0, 0
	}
	if budget+eps >= st.learnRemaining {
		took, items := st.learnRemaining, st.untimedRemaining
		st.learnRemaining, st.untimedRemaining = 0, 0
		st.started = true
		return took, items
	}
	took := math.Floor(budget)
	if took <= 0 {
		return 0, 0
	}
	items := int(math.Floor(float64(st.untimedRemaining) * took / st.learnRemaining))
	st.learnRemaining = round2(st.learnRemaining - took)
	st.untimedRemaining -= items
	st.started = true
	return took, items
}

// consumeUnique takes as many unique questions as fit into budget.
func (s *state) consumeUnique(id int, budget float64, sprint int) int {
	st := &s.subs[id]
	n := fitQuestions(budget, s.m.subs[id].cpq, st.uniqueRemaining)
	if n == 0 {
		return 0
	}
	st.uniqueRemaining -= n
	st.uniqueSelected += n
	st.lastUniqueSprint = sprint
	st.started = true
	return n
}

// consumeRetake takes as many retake questions as fit into budget.
func (s *state) consumeRetake(id int, budget float64, sprint int) int {
	st := &s.subs[id]
	n := fitQuestions(budget, s.m.subs[id].cpq, st.retakeRemaining)
	if n == 0 {
		return 0
	}
	st.retakeRemaining -= n
	st.lastRetakeSprint = sprint
	return n
}

func fitQuestions(budget, cpq float64, available int) int {
	if available <= 0 || budget <= eps || cpq <= 0 {
		return 0
	}
	n := int(math.Floor((budget + eps) / cpq))
	if n > available {
		n = available
	}
	return n
}
