package roadmap

import "fmt"

// labelChunks marks submodules whose core work spans several sprints with
// "part k/n" labels. Consecutive contributions are grouped so that every
// chunk carries at least MIN_CHUNK_MIN minutes, with at most
// MAX_MODULE_CHUNKS chunks.
func (p *pass) labelChunks() {
	type contribution struct {
		it      *itemAcc
		minutes float64
	}
	bySub := make([][]contribution, len(p.m.subs))
	for _, sc := range p.sprints {
		for _, id := range sc.order {
			it := sc.items[id]
			if mins := it.coreMinutes(p.m.subs[id].cpq); mins > eps {
				bySub[id] = append(bySub[id], contribution{it: it, minutes: mins})
			}
		}
	}

	for _, parts := range bySub {
		if len(parts) < 2 {
			continue
		}
		minutes := make([]float64, len(parts))
		for i, c := range parts {
			minutes[i] = c.minutes
		}
		ks, n := chunkGroups(minutes, p.cfg.MinChunkMin, p.cfg.MaxModuleChunks)
		for i, c := range parts {
			c.it.chunkLabel = fmt.Sprintf("part %d/%d", ks[i], n)
		}
	}
}

// chunkGroups assigns a 1-based chunk number to each contribution. A chunk
// closes once it holds minChunk minutes and the remainder can still fill a
// chunk of its own, so an undersized tail merges into the chunk before it.
// When no split leaves both sides at minChunk, the first contribution is
// chunk 1 and the rest chunk 2.
func chunkGroups(minutes []float64, minChunk float64, maxChunks int) ([]int, int) {
	var total float64
	for _, m := range minutes {
		total += m
	}

	ks := make([]int, len(minutes))
	k := 1
	var chunk, cum float64
	for i, m := range minutes {
		ks[i] = k
		chunk += m
		cum += m
		if i < len(minutes)-1 && k < maxChunks && chunk+eps >= minChunk && total-cum+eps >= minChunk {
			k++
			chunk = 0
		}
	}
	if k >= 2 {
		return ks, k
	}
	for i := range ks {
		ks[i] = 2
	}
	ks[0] = 1
	return ks, 2
}
