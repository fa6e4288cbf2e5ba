package ngram

// Model composes a static trie with an optional dynamic trie, implementing
// the static/dynamic interpolation of 4.F:
//
//	p_final(w|h) = ws * p_static(w|h) + wd * p_dynamic(w|h)
//	wd = max(MinDynamicWeight, dynamicUnigrams / staticUnigrams), ws = 1 - wd
//
// wd is 0 when the dynamic trie is absent and 1 when the static trie is
// absent.
type Model struct {
	Static           *StaticTrie
	Dynamic          *DynamicTrie
	MinDynamicWeight float64
}

// Probability returns the interpolated probability of target given prefix.
func (m *Model) Probability(prefix []uint32, target uint32) float64 {
	var ps float64
	if m.Static != nil {
		ps = m.Static.Probability(prefix, target)
	}
	wd := m.DynamicWeight()
	ws := 1 - wd
	var pd float64
	if m.Dynamic != nil {
		pd = m.Dynamic.Probability(prefix, target)
	}
	return ws*ps + wd*pd
}

// DynamicWeight returns the wd term of the interpolation formula in isolation.
func (m *Model) DynamicWeight() float64 {
	if m.Dynamic == nil {
		return 0
	}
	if m.Static == nil {
		return 1
	}
	if m.Static.TotalUnigramCount() == 0 {
		return 0
	}
	wd := float64(m.Dynamic.TotalUnigramCount()) / float64(m.Static.TotalUnigramCount())
	if wd < m.MinDynamicWeight {
		wd = m.MinDynamicWeight
	}
	return wd
}

// ListNextWords merges candidate continuations from both tries, used by
// Predictor when no started-word prefix exists (4.I step 4).
func (m *Model) ListNextWords(prefix []uint32, limit int, exclude map[uint32]bool) []NextWord {
	seen := make(map[uint32]bool, limit)
	var out []NextWord
	if m.Static != nil {
		for _, nw := range m.Static.ListNextWords(prefix, limit, exclude) {
			if seen[nw.WordID] {
				continue
			}
			seen[nw.WordID] = true
			out = append(out, nw)
		}
	}
	if m.Dynamic != nil {
		dn := m.Dynamic.NodeFor(prefix)
		if dn != nil {
			for id, c := range dn.children {
				if exclude != nil && exclude[id] {
					continue
				}
				if seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, NextWord{WordID: id, Frequency: c.frequency})
				if len(out) >= limit {
					break
				}
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
