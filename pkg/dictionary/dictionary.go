// Package dictionary implements the word dictionary: stable int ids bound to
// word strings, prefix search over a radix trie, and user-word overlays
// (4.C). The surface index is a patricia.Trie the same way wordserve's
// completion engine indexes surface forms, generalized here to store word
// ids instead of raw frequencies (pkg/suggest/trie.go, pkg/suggest/completion.go).
package dictionary

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/assistext/predict/internal/logger"
	"github.com/assistext/predict/pkg/token"
)

var log = logger.Default("dictionary")

// errStopVisit aborts a patricia VisitSubtree walk once enough results have
// been collected, mirroring the early-termination idiom in
// pkg/suggest/trie.go's SearchTrie.
var errStopVisit = errors.New("stop visit")

// Dictionary holds the full word set: a dense id->word vector and a
// patricia-trie surface index. Construction pre-seeds every Tag and
// EquivalenceClass word; the dictionary never shrinks (3).
type Dictionary struct {
	mu         sync.RWMutex
	identifier string
	words      []*Word
	trie       *patricia.Trie
	nextID     uint32
}

// New builds a dictionary with the given opaque identifier and every Tag and
// EquivalenceClass word pre-seeded at their reserved ids.
func New(identifier string) *Dictionary {
	d := &Dictionary{
		identifier: identifier,
		words:      make([]*Word, 0, tagCount+token.ClassCount()),
		trie:       patricia.NewTrie(),
	}
	for t := Tag(0); t < tagCount; t++ {
		d.words = append(d.words, &Word{ID: uint32(t), Type: WordTag, TagValue: t, ProbFactor: 1.0})
	}
	for c := 0; c < token.ClassCount(); c++ {
		id := uint32(tagCount + c)
		d.words = append(d.words, &Word{ID: id, Type: WordEquivalenceClass, Class: token.EquivalenceClass(c), ProbFactor: 1.0})
	}
	d.nextID = uint32(len(d.words))
	return d
}

// Identifier returns the dictionary's opaque identity string, checked
// against an overlay's embedded identifier before loading (4.C).
func (d *Dictionary) Identifier() string { return d.identifier }

// IDFor returns the id of surface, or UnknownID if absent. No side effects.
func (d *Dictionary) IDFor(surface string) uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	item := d.trie.Get(patricia.Prefix(surface))
	if item == nil {
		return UnknownID
	}
	return item.(uint32)
}

// Word returns the word for id, or nil if id was never issued.
func (d *Dictionary) Word(id uint32) *Word {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(id) >= len(d.words) {
		return nil
	}
	return d.words[id]
}

// PrefixSearch yields at most limit words whose surface begins with prefix
// and satisfies predicate. If fewer than limit results are found, the search
// retries with the capitalized and then lowercased forms of prefix,
// accumulating into the same result map (4.C).
func (d *Dictionary) PrefixSearch(prefix string, predicate func(*Word) bool, limit int, exclude map[uint32]bool) map[uint32]*Word {
	out := make(map[uint32]*Word, limit)
	d.prefixSearchInto(prefix, predicate, limit, exclude, out)
	if len(out) < limit {
		capForm := capitalizeFirst(prefix)
		if capForm != prefix {
			d.prefixSearchInto(capForm, predicate, limit, exclude, out)
		}
	}
	if len(out) < limit {
		lowForm := strings.ToLower(prefix)
		if lowForm != prefix {
			d.prefixSearchInto(lowForm, predicate, limit, exclude, out)
		}
	}
	return out
}

func (d *Dictionary) prefixSearchInto(prefix string, predicate func(*Word) bool, limit int, exclude map[uint32]bool, out map[uint32]*Word) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	err := d.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if len(out) >= limit {
			return errStopVisit
		}
		id := item.(uint32)
		if exclude != nil && exclude[id] {
			return nil
		}
		if _, already := out[id]; already {
			return nil
		}
		w := d.words[id]
		if predicate != nil && !predicate(w) {
			return nil
		}
		out[id] = w
		return nil
	})
	if err != nil && err != errStopVisit {
		log.Warnf("prefix search visit error: %v", err)
	}
}

// PutUserWord creates a fresh User word for surface if one doesn't already
// exist, indexing it in both maps, and returns its id.
func (d *Dictionary) PutUserWord(surface string) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if item := d.trie.Get(patricia.Prefix(surface)); item != nil {
		return item.(uint32)
	}
	id := d.nextID
	d.nextID++
	w := &Word{ID: id, Type: WordUser, Surface: surface, ProbFactor: 1.0}
	d.words = append(d.words, w)
	d.trie.Insert(patricia.Prefix(surface), id)
	return id
}

// IncrementUserCount bumps the usage counter of id if, and only if, it names
// a User word.
func (d *Dictionary) IncrementUserCount(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(id) >= len(d.words) {
		return
	}
	w := d.words[id]
	if w.Type != WordUser {
		return
	}
	w.UsageCount++
}

// PutSimpleWord inserts a Simple word discovered during training, returning
// its id (creating one if the surface is new).
func (d *Dictionary) PutSimpleWord(surface string) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if item := d.trie.Get(patricia.Prefix(surface)); item != nil {
		return item.(uint32)
	}
	id := d.nextID
	d.nextID++
	w := &Word{ID: id, Type: WordSimple, Surface: surface, ProbFactor: 1.0}
	d.words = append(d.words, w)
	d.trie.Insert(patricia.Prefix(surface), id)
	return id
}

// EquivalenceClassID returns the reserved id pre-seeded for c (3).
func (d *Dictionary) EquivalenceClassID(c token.EquivalenceClass) uint32 {
	return uint32(tagCount) + uint32(c)
}

// ValidityPredicate returns the predictor-validity predicate shared by
// prefix search, the started-word detector and the correction engine: a
// word is valid if explicitly ForceValid, invalid if ForceInvalid, and
// otherwise valid unless it is a User word that hasn't reached minUseCount
// uses yet (4.C, 6 "min-use-count-to-validate-new-word").
func ValidityPredicate(minUseCount uint32) func(*Word) bool {
	return func(w *Word) bool {
		if w.ForceValid {
			return true
		}
		if w.ForceInvalid {
			return false
		}
		if w.Type == WordUser {
			return w.UsageCount >= minUseCount
		}
		return true
	}
}

// Len returns the number of issued ids, including the pre-seeded Tag and
// EquivalenceClass words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
