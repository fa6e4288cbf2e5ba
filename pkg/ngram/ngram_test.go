package ngram

import (
	"math"
	"path/filepath"
	"testing"
)

func buildSample(t *testing.T) *DynamicTrie {
	t.Helper()
	dt := NewDynamic(3, 1, DiscountConfig{Lower: 0.1, Upper: 0.9})
	paths := [][]uint32{
		{1, 10, 20},
		{1, 10, 20},
		{1, 10, 21},
		{1, 10},
		{1, 11},
		{10, 20, 30},
	}
	for _, p := range paths {
		dt.IncrementPath(p, 1)
	}
	dt.UpdateProbabilities()
	return dt
}

func TestDynamicProbabilitySumsCloseToOne(t *testing.T) {
	dt := buildSample(t)
	var total float64
	n := dt.NodeFor([]uint32{1, 10})
	if n == nil {
		t.Fatalf("expected node for [1,10]")
	}
	for id := range n.children {
		total += dt.Probability([]uint32{1, 10}, id)
	}
	if total <= 0 || total > 1.0001 {
		t.Fatalf("unexpected probability mass: %v", total)
	}
}

func TestDynamicTrieFileRoundTrip(t *testing.T) {
	dt := buildSample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dynamic.trie")

	if err := WriteDynamicTrieFile(path, dt); err != nil {
		t.Fatalf("WriteDynamicTrieFile: %v", err)
	}
	reloaded, err := OpenDynamicTrieFile(path, 1, DiscountConfig{Lower: 0.1, Upper: 0.9})
	if err != nil {
		t.Fatalf("OpenDynamicTrieFile: %v", err)
	}
	if reloaded.TotalUnigramCount() != dt.TotalUnigramCount() {
		t.Fatalf("unigram count mismatch: got %d want %d", reloaded.TotalUnigramCount(), dt.TotalUnigramCount())
	}
	for _, target := range []uint32{10, 11} {
		want := dt.Probability(nil, target)
		got := reloaded.Probability(nil, target)
		if math.Abs(want-got) > 1e-9 {
			t.Fatalf("probability mismatch for %d: got %v want %v", target, got, want)
		}
	}
}

func TestStaticTrieFileMatchesDynamicProbabilities(t *testing.T) {
	dt := buildSample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "static.trie")

	if err := WriteStaticTrieFile(path, dt, "test-v1"); err != nil {
		t.Fatalf("WriteStaticTrieFile: %v", err)
	}
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if st.TotalUnigramCount() != dt.TotalUnigramCount() {
		t.Fatalf("unigram count mismatch")
	}

	cases := [][]uint32{nil, {1}, {1, 10}, {10}}
	targets := []uint32{10, 11, 20, 21, 30}
	for _, prefix := range cases {
		for _, target := range targets {
			want := dt.Probability(prefix, target)
			got := st.Probability(prefix, target)
			if math.Abs(want-got) > 1e-12 {
				t.Fatalf("probability mismatch prefix=%v target=%d: got %v want %v", prefix, target, got, want)
			}
		}
	}
}

func TestModelInterpolationWeightsBounded(t *testing.T) {
	dt := buildSample(t)
	// IncrementPath only counts the deepest node, so the sample has no
	// unigram counts; give the static trie a non-zero unigram total.
	dt.IncrementPath([]uint32{10}, 4)
	dir := t.TempDir()
	path := filepath.Join(dir, "static.trie")
	if err := WriteStaticTrieFile(path, dt, "test-v1"); err != nil {
		t.Fatalf("WriteStaticTrieFile: %v", err)
	}
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	dyn := NewDynamic(3, 1, DiscountConfig{Lower: 0.1, Upper: 0.9})
	dyn.IncrementPath([]uint32{1, 10}, 1)
	dyn.UpdateProbabilities()

	m := &Model{Static: st, Dynamic: dyn, MinDynamicWeight: 0.05}
	wd := m.DynamicWeight()
	if wd < 0.05 || wd > 1 {
		t.Fatalf("dynamic weight out of bounds: %v", wd)
	}

	p := m.Probability([]uint32{1}, 10)
	if p < 0 || p > 1 {
		t.Fatalf("interpolated probability out of range: %v", p)
	}
}

func TestPruneByCountRemovesRareNGrams(t *testing.T) {
	dt := buildSample(t)
	// The bigram [1,10] itself was counted once in the sample; bring it to
	// the threshold so that only its rare child is pruned.
	dt.IncrementPath([]uint32{1, 10}, 1)
	dt.Prune(PruneByCount, 2, nil, 0)
	n := dt.NodeFor([]uint32{1, 10})
	if n == nil {
		t.Fatalf("expected [1,10] to survive pruning")
	}
	if _, ok := n.children[21]; ok {
		t.Fatalf("expected rare child 21 (count 1) to be pruned")
	}
}

func TestUpdateContextReturnsInvalidPrefixForMissingContext(t *testing.T) {
	dt := buildSample(t)
	err := dt.UpdateContext([]uint32{999, 888})
	if err == nil {
		t.Fatalf("expected error for nonexistent context")
	}
}
