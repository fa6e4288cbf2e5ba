package token

import (
	"regexp"
	"strings"
)

// Kind distinguishes the three token shapes the tokenizer emits.
type Kind int

const (
	KindWord Kind = iota
	KindSeparator
	KindEquivalenceClass
)

// Token is one unit of the tokenized stream.
type Token struct {
	Kind       Kind
	Text       string           // original surface text, always reproduces the input span
	Separator  Separator        // valid when Kind == KindSeparator
	Class      EquivalenceClass // valid when Kind == KindEquivalenceClass
	Normalized string           // normalized form, valid when Kind == KindEquivalenceClass
}

const bom rune = 0xFEFF // byte-order mark

// matcherKind is the closed set of equivalence-class matcher variants (9,
// "Dynamic dispatch over matchers"): a single enumeration with one Match
// method switching on variant, instead of an open interface hierarchy.
type matcherKind int

const (
	matcherDate matcherKind = iota
	matcherPercent
	matcherInteger
	matcherDecimal
)

type matcher struct {
	kind    matcherKind
	class   EquivalenceClass
	pattern *regexp.Regexp
}

// Tokenizer splits raw text into words, separators and equivalence-class
// tokens. Matchers are tried in the fixed priority order they were
// registered in, against the raw text starting at the current cursor;
// the first one to match consumes its matched span.
type Tokenizer struct {
	matchers     []matcher
	patternCache map[string]*regexp.Regexp // per-instance, never a package global (9)
}

// NewTokenizer builds a tokenizer with the default equivalence-class
// matchers, tried in priority order: date, percent, decimal, integer.
func NewTokenizer() *Tokenizer {
	t := &Tokenizer{patternCache: make(map[string]*regexp.Regexp)}
	t.matchers = []matcher{
		{matcherDate, ClassDate, t.compile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)},
		{matcherPercent, ClassPercent, t.compile(`^\d+(\.\d+)?%`)},
		{matcherDecimal, ClassDecimal, t.compile(`^\d+\.\d+`)},
		{matcherInteger, ClassInteger, t.compile(`^\d+`)},
	}
	return t
}

func (t *Tokenizer) compile(pattern string) *regexp.Regexp {
	if re, ok := t.patternCache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile(pattern)
	t.patternCache[pattern] = re
	return re
}

// Tokenize splits text into an ordered token sequence. Concatenating every
// token's Text reproduces text exactly when no equivalence-class matcher
// fires (8); when one fires, its Normalized form is carried alongside the
// original Text span it replaced.
func (t *Tokenizer) Tokenize(text string) []Token {
	text = stripBOM(text)
	var tokens []Token
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		if sep, ok := LookupSeparator(runes[i]); ok {
			tokens = append(tokens, Token{Kind: KindSeparator, Text: string(runes[i]), Separator: sep})
			i++
			continue
		}
		if m, span, ok := t.matchAt(string(runes[i:])); ok {
			spanRunes := []rune(span)
			tokens = append(tokens, Token{
				Kind:       KindEquivalenceClass,
				Text:       span,
				Class:      m.class,
				Normalized: normalizeSpan(m.kind, span),
			})
			i += len(spanRunes)
			continue
		}
		j := i
		for j < len(runes) {
			if _, ok := LookupSeparator(runes[j]); ok {
				break
			}
			if _, _, ok := t.matchAt(string(runes[j:])); ok {
				break
			}
			j++
		}
		if j == i {
			j++ // guard against zero-width progress
		}
		tokens = append(tokens, Token{Kind: KindWord, Text: string(runes[i:j])})
		i = j
	}
	return tokens
}

func (t *Tokenizer) matchAt(rest string) (matcher, string, bool) {
	for _, m := range t.matchers {
		if loc := m.pattern.FindString(rest); loc != "" {
			return m, loc, true
		}
	}
	return matcher{}, "", false
}

func normalizeSpan(kind matcherKind, span string) string {
	switch kind {
	case matcherDate:
		return strings.ReplaceAll(span, "-", "/")
	case matcherPercent, matcherDecimal, matcherInteger:
		return span
	default:
		return span
	}
}

func stripBOM(text string) string {
	runes := []rune(text)
	if len(runes) > 0 && runes[0] == bom {
		return string(runes[1:])
	}
	return text
}
