// Package prefix implements the started-word prefix detector (4.G): the
// longest suffix of a token list, read right to left, that is the prefix of
// at least one valid dictionary word.
package prefix

import (
	"strings"
	"unicode"

	"github.com/assistext/predict/internal/utils"
	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/token"
)

// maxExtension bounds how many tokens the search walks leftward (4.G).
const maxExtension = 5

// Candidate is a dictionary match or a correction-engine proposal collected
// at the matched prefix length.
type Candidate struct {
	WordID       uint32
	Surface      string
	Factor       float64
	IsCorrection bool
}

// Corrector proposes alternative prefixes when only the trailing token has
// been consumed, implemented by pkg/correction's Engine.
type Corrector interface {
	Correct(typedPrefix string, predicate func(*dictionary.Word) bool, limit int, exclude map[uint32]bool) []Candidate
}

// Result is the outcome of a started-word prefix search.
type Result struct {
	Prefix      string
	TokenCount  int
	Candidates  []Candidate
	Capitalized bool
}

// Detector holds the collaborators the search needs.
type Detector struct {
	Dict      *dictionary.Dictionary
	Corrector Corrector
	Predicate func(*dictionary.Word) bool
}

// Find searches tokens (the token list ending at the caret) for the longest
// started-word prefix. correctionsEnabled gates step 3 of 4.G; limit and
// exclude bound and filter both dictionary and corrector lookups. Returns
// nil if no prefix at all is found (not even a bare trailing word).
func (d *Detector) Find(tokens []token.Token, correctionsEnabled bool, limit int, exclude map[uint32]bool) *Result {
	var best *Result
	var parts []string
	extended := 0
	for i := len(tokens) - 1; i >= 0 && extended < maxExtension; i-- {
		tk := tokens[i]
		if tk.Kind != token.KindWord {
			break
		}
		parts = append([]string{tk.Text}, parts...)
		extended++
		surface := strings.Join(parts, "")

		matches := d.Dict.PrefixSearch(surface, d.Predicate, limit, exclude)
		var candidates []Candidate
		for id, w := range matches {
			candidates = append(candidates, Candidate{WordID: id, Surface: w.Surface, Factor: 1.0})
		}

		if correctionsEnabled && extended == 1 && d.Corrector != nil {
			corrections := d.Corrector.Correct(surface, d.Predicate, limit, exclude)
			candidates = mergeCandidates(candidates, corrections)
		}

		if len(candidates) > 0 {
			best = &Result{Prefix: surface, TokenCount: extended, Candidates: candidates}
		}
	}
	if best != nil {
		best.Capitalized = isCapitalized(best.Prefix)
		return best
	}
	if len(tokens) == 0 {
		return nil
	}
	last := tokens[len(tokens)-1]
	if last.Kind == token.KindWord && d.Dict.IDFor(last.Text) != dictionary.UnknownID {
		return &Result{Prefix: last.Text, TokenCount: 1, Capitalized: isCapitalized(last.Text)}
	}
	return nil
}

func mergeCandidates(dictMatches, corrections []Candidate) []Candidate {
	all := append(append([]Candidate{}, dictMatches...), corrections...)
	return utils.BestByKey(all,
		func(c Candidate) string { return strings.ToLower(c.Surface) },
		func(c Candidate) float64 { return c.Factor },
	)
}

func isCapitalized(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// NewSentenceStarted implements the capitalisation-policy predicate of 4.G:
// true when the token list is empty, or nothing but separators follow the
// last sentence-terminating separator (which also covers "the last
// non-separator token is followed only by sentence-terminating separators").
func NewSentenceStarted(tokens []token.Token) bool {
	if len(tokens) == 0 {
		return true
	}
	lastTerm := -1
	for i, tk := range tokens {
		if tk.Kind == token.KindSeparator && tk.Separator.IsSentenceTerminating() {
			lastTerm = i
		}
	}
	if lastTerm == -1 {
		return false
	}
	for i := lastTerm + 1; i < len(tokens); i++ {
		if tokens[i].Kind != token.KindSeparator {
			return false
		}
	}
	return true
}
