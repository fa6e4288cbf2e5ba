package dictionary

import "github.com/assistext/predict/pkg/token"

// WordType discriminates the tagged-variant shape of Word (9, "deep
// inheritance of Word variants"): the persisted type byte IS the
// discriminant, so its values must stay stable across file versions.
type WordType byte

const (
	WordTag              WordType = 0
	WordEquivalenceClass WordType = 1
	WordSimple           WordType = 2
	WordUser             WordType = 3
)

// Word is a tagged variant over the four word kinds in 3. Fields shared by
// every variant (ProbFactor, ForceValid, ForceInvalid, the two dirty bits)
// live in the common header rather than being duplicated per variant, per
// the flattening recommended in 9.
type Word struct {
	ID   uint32
	Type WordType

	// Simple/User
	Surface string

	// Tag
	TagValue Tag

	// EquivalenceClass
	Class token.EquivalenceClass

	// User only
	UsageCount uint32
	LastUse    int64

	// Shared header, all variants
	ProbFactor   float64
	ForceValid   bool
	ForceInvalid bool
	UserDirty    bool
	SystemDirty  bool
}

// MarkSystemDirty sets the system-initiated dirty bit. Every write that
// changes a non-User word must call this (4.C invariant).
func (w *Word) MarkSystemDirty() {
	if w.Type != WordUser {
		w.SystemDirty = true
	}
}

// IsPersistableToOverlay reports whether w belongs in a user overlay file:
// User words always, and any other word carrying a dirty bit. Tag and
// equivalence-class words are excluded even if dirty, since they are
// re-seeded identically on every load (3).
func (w *Word) IsPersistableToOverlay() bool {
	if w.Type == WordTag || w.Type == WordEquivalenceClass {
		return false
	}
	return w.Type == WordUser || w.UserDirty || w.SystemDirty
}
