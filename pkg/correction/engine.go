package correction

import (
	"runtime"
	"strings"
	"sync"

	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/ngram"
	"github.com/assistext/predict/pkg/prefix"
	"github.com/assistext/predict/pkg/token"
)

// Engine generates correction candidates from a compiled rule set (4.H). It
// structurally satisfies prefix.Corrector, so a *Engine can be assigned
// directly to a prefix.Detector's Corrector field.
type Engine struct {
	atoms      []AtomicRule
	dict       *dictionary.Dictionary
	staticTrie *ngram.StaticTrie
	maxCost    float64
	workers    int
}

// New builds an Engine from a compiled atomic rule set. staticTrie may be
// nil, in which case split (bigram) candidates are never emitted (5,
// "the static trie's file handle is owned by the Predictor").
func New(atoms []AtomicRule, dict *dictionary.Dictionary, staticTrie *ngram.StaticTrie, maxCost float64) *Engine {
	return &Engine{
		atoms:      atoms,
		dict:       dict,
		staticTrie: staticTrie,
		maxCost:    maxCost,
		workers:    runtime.NumCPU(),
	}
}

type searchState struct {
	currentPart      string
	previousParts    []string
	totalCost        float64
	totalFactor      float64
	appliedRuleCount int
	forbiddenRules   map[int]bool
	fromIndex        int
}

type generatedResult struct {
	parts       []string
	finalFactor float64
}

type resultSet struct {
	mu sync.Mutex
	m  map[string]generatedResult
}

func newResultSet() *resultSet { return &resultSet{m: make(map[string]generatedResult)} }

func (r *resultSet) offer(state searchState) {
	cost := state.totalCost
	if cost <= 0 {
		cost = 1e-9
	}
	finalFactor := (state.totalFactor / float64(state.appliedRuleCount)) / cost
	parts := append(append([]string{}, state.previousParts...), state.currentPart)
	key := strings.Join(parts, "\x00")
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[key]; !ok || finalFactor > existing.finalFactor {
		r.m[key] = generatedResult{parts: parts, finalFactor: finalFactor}
	}
}

// Correct runs the generation algorithm of 4.H over typedPrefix and converts
// surviving candidates to prediction candidates per the Integration rules.
func (e *Engine) Correct(typedPrefix string, predicate func(*dictionary.Word) bool, limit int, exclude map[uint32]bool) []prefix.Candidate {
	if e.maxCost <= 0 || len(e.atoms) == 0 {
		return nil
	}
	initial := searchState{currentPart: strings.ToLower(typedPrefix), forbiddenRules: map[int]bool{}}
	results := newResultSet()

	type job struct {
		ruleIdx int
		rule    AtomicRule
		pos     int
	}
	var jobs []job
	runeLen := len([]rune(initial.currentPart))
	for i := 0; i <= runeLen; i++ {
		for ridx, r := range e.atoms {
			if initial.totalCost+r.Cost >= e.maxCost {
				continue
			}
			if pos := findOccurrence(initial.currentPart, r, i); pos >= 0 {
				jobs = append(jobs, job{ridx, r, pos})
			}
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			if next := e.applyRule(initial, j.rule, j.ruleIdx, j.pos); next != nil {
				e.expand(*next, results)
			}
		}(j)
	}
	wg.Wait()

	return e.materialize(results, predicate, limit, exclude)
}

// expand recurses synchronously (4.H, "deeper recursions execute
// synchronously on the worker"), materialising a candidate at every state
// with at least one applied rule, then trying every further admissible
// (start, rule) pair from fromIndex onward.
func (e *Engine) expand(state searchState, results *resultSet) {
	if state.appliedRuleCount > 0 {
		results.offer(state)
	}
	runeLen := len([]rune(state.currentPart))
	for i := state.fromIndex; i <= runeLen; i++ {
		for ridx, r := range e.atoms {
			if state.forbiddenRules[ridx] {
				continue
			}
			if state.totalCost+r.Cost >= e.maxCost {
				continue
			}
			pos := findOccurrence(state.currentPart, r, i)
			if pos < 0 {
				continue
			}
			if next := e.applyRule(state, r, ridx, pos); next != nil {
				e.expand(*next, results)
			}
		}
	}
}

func (e *Engine) applyRule(state searchState, rule AtomicRule, ruleIdx, idx int) *searchState {
	runes := []rune(state.currentPart)
	errRunes := []rune(rule.Error)
	replRunes := []rune(rule.Replacement)
	newRunes := append(append(append([]rune{}, runes[:idx]...), replRunes...), runes[idx+len(errRunes):]...)

	sepPos, sep, hasSep := findSeparator(replRunes)
	var currentPart string
	var previousParts []string
	var nextIndex int
	if hasSep {
		splitAbs := idx + sepPos
		var left, right []rune
		if sep.IsApostropheClass() {
			left, right = newRunes[:splitAbs+1], newRunes[splitAbs+1:]
		} else {
			left, right = newRunes[:splitAbs], newRunes[splitAbs+1:]
		}
		previousParts = append(append([]string{}, state.previousParts...), string(left))
		currentPart = string(right)
		nextIndex = 0
	} else {
		previousParts = state.previousParts
		currentPart = string(newRunes)
		nextIndex = idx + len(replRunes)
	}

	if !e.validate(previousParts, currentPart) {
		return nil
	}

	forbidden := state.forbiddenRules
	if rule.Error == "" {
		forbidden = make(map[int]bool, len(state.forbiddenRules)+1)
		for k := range state.forbiddenRules {
			forbidden[k] = true
		}
		forbidden[ruleIdx] = true
	}

	return &searchState{
		currentPart:      currentPart,
		previousParts:    previousParts,
		totalCost:        state.totalCost + rule.Cost,
		totalFactor:      state.totalFactor + rule.Factor,
		appliedRuleCount: state.appliedRuleCount + 1,
		forbiddenRules:   forbidden,
		fromIndex:        nextIndex,
	}
}

func findSeparator(runes []rune) (int, token.Separator, bool) {
	for i, r := range runes {
		if sep, ok := token.LookupSeparator(r); ok {
			return i, sep, true
		}
	}
	return 0, 0, false
}

// validate enforces step 2 of 4.H: a single-word candidate needs a
// dictionary word beginning with its (only) part; a split candidate needs
// its left part to be an exact, sufficiently probable dictionary word and
// its right part to be a dictionary-word prefix.
func (e *Engine) validate(previousParts []string, currentPart string) bool {
	if len(previousParts) == 0 {
		return len(e.dict.PrefixSearch(currentPart, nil, 1, nil)) > 0
	}
	left := previousParts[len(previousParts)-1]
	leftID := e.dict.IDFor(left)
	if leftID == dictionary.UnknownID {
		return false
	}
	if e.staticTrie == nil || e.staticTrie.Probability(nil, leftID) <= 1e-6 {
		return false
	}
	return len(e.dict.PrefixSearch(currentPart, nil, 1, nil)) > 0
}

func (e *Engine) materialize(results *resultSet, predicate func(*dictionary.Word) bool, limit int, exclude map[uint32]bool) []prefix.Candidate {
	var out []prefix.Candidate
	results.mu.Lock()
	defer results.mu.Unlock()
	for _, res := range results.m {
		switch len(res.parts) {
		case 1:
			matches := e.dict.PrefixSearch(res.parts[0], predicate, limit, exclude)
			for id, w := range matches {
				out = append(out, prefix.Candidate{WordID: id, Surface: w.Surface, Factor: res.finalFactor, IsCorrection: true})
			}
		case 2:
			leftID := e.dict.IDFor(res.parts[0])
			if leftID == dictionary.UnknownID || e.staticTrie == nil {
				continue
			}
			rightMatches := e.dict.PrefixSearch(res.parts[1], predicate, limit, exclude)
			for id, w := range rightMatches {
				if !e.staticTrie.HasBigram(leftID, id) {
					continue
				}
				out = append(out, prefix.Candidate{
					WordID:       id,
					Surface:      res.parts[0] + w.Surface,
					Factor:       res.finalFactor,
					IsCorrection: true,
				})
			}
		}
		if len(out) >= limit {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
