package correction

import (
	"testing"

	"github.com/assistext/predict/pkg/dictionary"
)

func TestCompileExpandsBidirectionalAndConfusionSet(t *testing.T) {
	root := &Rule{
		Errors:        []string{"a"},
		Replacements:  []string{"à"},
		Bidirectional: true,
		ConfusionSet:  []string{"ez", "er", "ai"},
		MaxFromStart:  -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1,
	}
	atoms := Compile(root, Config{DefaultCost: 1, DefaultFactor: 0.5})

	var forward, backward, confusion bool
	for _, a := range atoms {
		if a.Error == "a" && a.Replacement == "à" {
			forward = true
		}
		if a.Error == "à" && a.Replacement == "a" {
			backward = true
		}
		if a.Error == "ez" && a.Replacement == "er" {
			confusion = true
		}
	}
	if !forward || !backward {
		t.Fatalf("expected bidirectional pair present: forward=%v backward=%v", forward, backward)
	}
	if !confusion {
		t.Fatalf("expected confusion-set cross product pair present")
	}
}

func TestCompileSkipsDisabledSubtree(t *testing.T) {
	child := &Rule{Errors: []string{"x"}, Replacements: []string{"y"}, MaxFromStart: -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1}
	root := &Rule{Disabled: true, Children: []*Rule{child}}
	atoms := Compile(root, Config{DefaultCost: 1, DefaultFactor: 0.5})
	if len(atoms) != 0 {
		t.Fatalf("expected disabled subtree to produce no atoms, got %d", len(atoms))
	}
}

func TestCorrectProducesAccentedCandidate(t *testing.T) {
	d := dictionary.New("test-v1")
	d.PutSimpleWord("était")

	atoms := []AtomicRule{
		{Error: "eta", Replacement: "était", Cost: 1, Factor: 1, MaxFromStart: -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1},
	}
	eng := New(atoms, d, nil, 3.5)

	candidates := eng.Correct("eta", dictionary.ValidityPredicate(10), 5, nil)
	var found bool
	for _, c := range candidates {
		if c.Surface == "était" && c.IsCorrection {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected était among candidates, got %+v", candidates)
	}
}

func TestCorrectReturnsNilWhenMaxCostNonPositive(t *testing.T) {
	d := dictionary.New("test-v1")
	atoms := []AtomicRule{{Error: "a", Replacement: "b", Cost: 1, Factor: 1, MaxFromStart: -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1}}
	eng := New(atoms, d, nil, 0)
	if got := eng.Correct("abc", nil, 5, nil); got != nil {
		t.Fatalf("expected nil candidates when max cost is non-positive, got %+v", got)
	}
}

func TestWindowAdmitsBounds(t *testing.T) {
	rule := AtomicRule{MaxFromStart: 2, MinFromStart: 0, MaxFromEnd: -1, MinFromEnd: -1}
	if !windowAdmits(rule, 2, 10) {
		t.Fatalf("expected position 2 to be admitted at MaxFromStart=2")
	}
	if windowAdmits(rule, 3, 10) {
		t.Fatalf("expected position 3 to violate MaxFromStart=2")
	}
}
