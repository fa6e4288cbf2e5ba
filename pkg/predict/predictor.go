// Package predict implements the Predictor (4.I): the public predict and
// train operations composing the tokenizer, started-word prefix detector,
// correction engine and n-gram model.
package predict

import (
	"sort"
	"strings"

	"github.com/assistext/predict/internal/logger"
	"github.com/assistext/predict/internal/utils"
	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/ngram"
	"github.com/assistext/predict/pkg/prefix"
	"github.com/assistext/predict/pkg/token"
)

var log = logger.Default("predict")

// maxInputRunes bounds textBeforeCaret per 4.I step 1.
const maxInputRunes = 70

// Candidate is one scored prediction, already carrying its edit plan.
type Candidate struct {
	WordID                    uint32
	Surface                   string
	Score                     float64
	IsCorrection              bool
	PreviousCharCountToRemove int
	PredictionToInsert        string
	MayInsertSpace            bool
}

// Result is the outcome of a Predict call.
type Result struct {
	Candidates            []Candidate
	NextCharCountToRemove int
}

// Predictor composes the tokenizer, dictionary, n-gram model and
// started-word detector into the public predict/train operations (4.I). A
// single instance is used by exactly one caller at a time (5).
type Predictor struct {
	Dict      *dictionary.Dictionary
	Model     *ngram.Model
	Tokenizer *token.Tokenizer
	Detector  *prefix.Detector
	Config    config.PredictionConfig
	MaxOrder  int
}

// Predict implements the 11-step algorithm of 4.I.
func (p *Predictor) Predict(textBefore, textAfter string, wanted int, exclude map[uint32]bool) *Result {
	textBefore = trimToLastRunes(textBefore, maxInputRunes)
	tokens := p.Tokenizer.Tokenize(textBefore)

	correctionsEnabled := p.Config.EnableWordCorrection && p.Config.CorrectionMaxCost > 0
	res := p.Detector.Find(tokens, correctionsEnabled, 3*wanted, exclude)

	prefixLen := 0
	if res != nil {
		prefixLen = len([]rune(res.Prefix))
	}
	if prefixLen < p.Config.MinCountToProvidePrediction {
		return &Result{NextCharCountToRemove: nextCharCountToRemove(textAfter)}
	}

	trailingWordTokens := 0
	if res != nil {
		trailingWordTokens = res.TokenCount
	}
	ctxIDs := buildContextIDs(p.Dict, tokens, trailingWordTokens, p.MaxOrder, p.Config.AddNewWords)

	var raw []Candidate
	if res != nil && len(res.Candidates) > 0 {
		for _, c := range res.Candidates {
			raw = append(raw, Candidate{WordID: c.WordID, Surface: c.Surface, IsCorrection: c.IsCorrection, Score: factorOrDefault(c.Factor)})
		}
	} else {
		next := p.Model.ListNextWords(ctxIDs, 3*wanted, exclude)
		for _, nw := range next {
			w := p.Dict.Word(nw.WordID)
			if w == nil {
				continue
			}
			raw = append(raw, Candidate{WordID: nw.WordID, Surface: w.Surface, Score: 1.0})
		}
		raw = p.expandDoubleWords(raw, ctxIDs, exclude)
	}

	for i := range raw {
		c := &raw[i]
		probFactor := 1.0
		if w := p.Dict.Word(c.WordID); w != nil {
			probFactor = w.ProbFactor
		}
		c.Score = p.Model.Probability(ctxIDs, c.WordID) * probFactor * c.Score
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Score > raw[j].Score })

	var preTruncationTotal float64
	for _, c := range raw {
		preTruncationTotal += c.Score
	}

	if len(raw) > wanted {
		raw = raw[:wanted]
	}

	raw = utils.BestByKey(raw,
		func(c Candidate) string { return c.Surface },
		func(c Candidate) float64 { return c.Score },
	)

	newSentence := prefix.NewSentenceStarted(tokens)
	startedPrefix := ""
	startedCapitalized := false
	if res != nil {
		startedPrefix = res.Prefix
		startedCapitalized = res.Capitalized
	}

	out := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		surface := c.Surface
		capitalize := newSentence
		if startedPrefix != "" {
			capitalize = startedCapitalized
		}
		if capitalize {
			surface = utils.CapitalizeFirst(surface)
		}

		prevRemove, insert := editPlan(surface, startedPrefix)

		mayInsertSpace := true
		if r := lastRune(surface); r != 0 {
			if sep, ok := token.LookupSeparator(r); ok && sep.IsApostropheClass() {
				mayInsertSpace = false
			}
		}

		score := c.Score
		if preTruncationTotal > 0 {
			score = c.Score / preTruncationTotal
		}

		out = append(out, Candidate{
			WordID:                    c.WordID,
			Surface:                   surface,
			Score:                     score,
			IsCorrection:              c.IsCorrection,
			PreviousCharCountToRemove: prevRemove,
			PredictionToInsert:        insert,
			MayInsertSpace:            mayInsertSpace,
		})
	}

	return &Result{Candidates: out, NextCharCountToRemove: nextCharCountToRemove(textAfter)}
}

func factorOrDefault(f float64) float64 {
	if f == 0 {
		return 1.0
	}
	return f
}

// editPlan implements 4.I step 9.
func editPlan(surface, startedPrefix string) (int, string) {
	if startedPrefix == "" {
		return 0, surface
	}
	n := len(startedPrefix)
	if n <= len(surface) && strings.EqualFold(surface[:n], startedPrefix) {
		return 0, surface[n:]
	}
	return len([]rune(startedPrefix)), surface
}

// expandDoubleWords implements 4.I step 5: for candidates whose surface
// ends with an apostrophe-class separator, shift the context by one and
// issue a second single-candidate lookup, emitting a compound candidate.
func (p *Predictor) expandDoubleWords(raw []Candidate, ctxIDs []uint32, exclude map[uint32]bool) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		out = append(out, c)
		r := lastRune(c.Surface)
		sep, ok := token.LookupSeparator(r)
		if !ok || !sep.IsApostropheClass() {
			continue
		}
		shifted := append(append([]uint32{}, ctxIDs[1:]...), c.WordID)
		second := p.Model.ListNextWords(shifted, 1, exclude)
		if len(second) == 0 {
			continue
		}
		w2 := p.Dict.Word(second[0].WordID)
		if w2 == nil {
			continue
		}
		out = append(out, Candidate{
			WordID:  second[0].WordID,
			Surface: c.Surface + w2.Surface,
			Score:   1.0,
		})
	}
	return out
}

// TrainDynamicModel implements the training algorithm of 4.I.
// ignoreLastSentence drops the final (possibly incomplete) sentence.
func (p *Predictor) TrainDynamicModel(text string, ignoreLastSentence bool) {
	tokens := p.Tokenizer.Tokenize(text)
	sentences := segmentSentences(tokens)
	if ignoreLastSentence && len(sentences) > 0 {
		sentences = sentences[:len(sentences)-1]
	}

	for _, sentence := range sentences {
		ids := make([]uint32, 0, len(sentence))
		for _, tk := range sentence {
			ids = append(ids, idForToken(p.Dict, tk, p.Config.AddNewWords))
		}
		for end := 1; end <= len(ids); end++ {
			prefixIDs := make([]uint32, 0, p.MaxOrder)
			start := end - p.MaxOrder
			for i := start; i < end; i++ {
				if i < 0 {
					prefixIDs = append(prefixIDs, dictionary.SentenceStartID)
				} else {
					prefixIDs = append(prefixIDs, ids[i])
				}
			}
			p.Dict.IncrementUserCount(ids[end-1])

			// Known issue (9, open question c), reproduced as-is: the training
			// loop's start order is keyed off the sentence position (end == 1)
			// rather than the unknown-word position within prefixIDs, so an
			// unknown word appearing early in the context can still be trained
			// against at later orders.
			startOrder := 0
			if end == 1 {
				startOrder = p.MaxOrder - 2
				if startOrder < 0 {
					startOrder = 0
				}
			}
			for order := startOrder; order < p.MaxOrder; order++ {
				length := order + 1
				if length > len(prefixIDs) {
					length = len(prefixIDs)
				}
				path := prefixIDs[len(prefixIDs)-length:]
				p.Model.Dynamic.IncrementPath(path, 1)
				p.Model.Dynamic.UpdateProbabilitiesForOrder(length)
			}
		}
	}
}

// Dispose closes the static trie's file handle (5).
func (p *Predictor) Dispose() error {
	if p.Model != nil && p.Model.Static != nil {
		return p.Model.Static.Close()
	}
	return nil
}

func segmentSentences(tokens []token.Token) [][]token.Token {
	var sentences [][]token.Token
	var cur []token.Token
	for _, tk := range tokens {
		if tk.Kind == token.KindSeparator {
			if tk.Separator.IsSentenceTerminating() && len(cur) > 0 {
				sentences = append(sentences, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, tk)
	}
	if len(cur) > 0 {
		sentences = append(sentences, cur)
	}
	return sentences
}

// buildContextIDs pads/truncates to maxOrder-1 ids: the history length h
// such that appending one target word yields a full maxOrder-length n-gram,
// the deepest order the dynamic/static tries actually store (4.I step 3).
func buildContextIDs(dict *dictionary.Dictionary, tokens []token.Token, trailingWordTokens, maxOrder int, learnNewWords bool) []uint32 {
	contextLen := maxOrder - 1
	if contextLen < 0 {
		contextLen = 0
	}
	var nonSep []token.Token
	for _, tk := range tokens {
		if tk.Kind != token.KindSeparator {
			nonSep = append(nonSep, tk)
		}
	}
	if trailingWordTokens > len(nonSep) {
		trailingWordTokens = len(nonSep)
	}
	ctxTokens := nonSep[:len(nonSep)-trailingWordTokens]
	ids := make([]uint32, 0, len(ctxTokens))
	for _, tk := range ctxTokens {
		ids = append(ids, idForToken(dict, tk, learnNewWords))
	}
	if len(ids) > contextLen {
		ids = ids[len(ids)-contextLen:]
	}
	for len(ids) < contextLen {
		ids = append([]uint32{dictionary.SentenceStartID}, ids...)
	}
	return ids
}

func idForToken(dict *dictionary.Dictionary, tk token.Token, learnNewWords bool) uint32 {
	if tk.Kind == token.KindEquivalenceClass {
		return dict.EquivalenceClassID(tk.Class)
	}
	id := dict.IDFor(tk.Text)
	if id != dictionary.UnknownID {
		return id
	}
	if learnNewWords {
		return dict.PutUserWord(tk.Text)
	}
	return dictionary.UnknownID
}

func nextCharCountToRemove(textAfter string) int {
	count := 0
	for _, r := range textAfter {
		if _, ok := token.LookupSeparator(r); ok {
			break
		}
		count++
	}
	return count
}

func trimToLastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}
