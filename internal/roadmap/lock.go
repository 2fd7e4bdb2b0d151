package roadmap

// locked reports whether a submodule is barred from core work right now.
// Only the History-of-Art section inside General Knowledge is ever locked:
// it waits until the History section reaches the configured completion,
// except for introductory submodules when the carve-out is on.
func (p *pass) locked(id int) bool {
	m := p.m
	if m.historyArtID < 0 || m.historyID < 0 {
		return false
	}
	sub := m.subs[id]
	if sub.sectionID != m.historyArtID {
		return false
	}
	if p.cfg.HistoryArtIntroCarveout && sub.category == CategoryIntro {
		return false
	}
	return p.st.sectionCompletion(m.historyID, p.sel)+eps < p.cfg.HistoryArtUnlockHistoryProgressPct
}
