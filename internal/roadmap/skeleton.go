package roadmap

import "math"

// sprintFrame is one time box of the horizon.
type sprintFrame struct {
	number    int
	weekStart int // 0-based, inclusive
	weekEnd   int // 0-based, inclusive
	weeks     int
	available int
	planning  int
}

// buildSkeleton splits the horizon into SPRINT_WEEKS-sized sprints; the last
// sprint takes whatever weeks remain.
func buildSkeleton(cfg Config, weeks int, hoursPerWeek float64) []sprintFrame {
	count := (weeks + cfg.SprintWeeks - 1) / cfg.SprintWeeks
	frames := make([]sprintFrame, 0, count)
	for i := 0; i < count; i++ {
		start := i * cfg.SprintWeeks
		end := start + cfg.SprintWeeks - 1
		if end > weeks-1 {
			end = weeks - 1
		}
		n := end - start + 1
		available := int(math.Round(float64(n) * hoursPerWeek * 60))
		frames = append(frames, sprintFrame{
			number:    i + 1,
			weekStart: start,
			weekEnd:   end,
			weeks:     n,
			available: available,
			planning:  int(math.Floor(float64(available)*(1-cfg.SprintBufferPct) + eps)),
		})
	}
	return frames
}

func skeletonTotals(frames []sprintFrame) (available, planning int) {
	for _, f := range frames {
		available += f.available
		planning += f.planning
	}
	return available, planning
}
