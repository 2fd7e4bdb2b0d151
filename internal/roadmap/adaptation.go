package roadmap

import (
	"math"
	"sort"
)

// adaptationNudges folds past checkpoint accuracy into per-part priority
// nudges. An exponential moving average of accuracy below the target pushes
// the part up, above it pushes the part down, bounded by ADAPTATION_MAX_NUDGE.
// Returns zeros unless ENABLE_CHECKPOINT_ADAPTATION is on.
func adaptationNudges(cfg Config, history []CheckpointRecord) [partCount]float64 {
	var nudges [partCount]float64
	if !cfg.EnableCheckpointAdaptation || len(history) == 0 {
		return nudges
	}

	records := append([]CheckpointRecord(nil), history...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SprintNumber < records[j].SprintNumber
	})

	var ema [partCount]float64
	var seen [partCount]bool
	for _, rec := range records {
		for _, part := range sortedResultKeys(rec.ResultsByPart) {
			pi := part.Index()
			if pi < 0 {
				continue
			}
			acc := rec.ResultsByPart[part].Accuracy
			if !seen[pi] {
				ema[pi], seen[pi] = acc, true
				continue
			}
			ema[pi] = cfg.AdaptationEMAAlpha*acc + (1-cfg.AdaptationEMAAlpha)*ema[pi]
		}
	}

	target := cfg.AdaptationTargetAccuracy
	for pi := range nudges {
		if !seen[pi] || target <= 0 {
			continue
		}
		rel := math.Max(-1, math.Min(1, (target-ema[pi])/target))
		nudges[pi] = rel * cfg.AdaptationMaxNudge
	}
	return nudges
}
