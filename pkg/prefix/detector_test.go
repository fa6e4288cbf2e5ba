package prefix

import (
	"testing"

	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/token"
)

func newTestDict() *dictionary.Dictionary {
	d := dictionary.New("test-v1")
	d.PutSimpleWord("rappelle")
	d.PutSimpleWord("remercie")
	return d
}

func TestFindReturnsLongestStartedPrefix(t *testing.T) {
	d := newTestDict()
	det := &Detector{Dict: d, Predicate: dictionary.ValidityPredicate(10)}
	tok := token.NewTokenizer()
	tokens := tok.Tokenize("je te r")

	res := det.Find(tokens, false, 5, nil)
	if res == nil {
		t.Fatalf("expected a result")
	}
	if res.Prefix != "r" {
		t.Fatalf("expected prefix %q, got %q", "r", res.Prefix)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
}

func TestFindReportsBareTrailingWordWithNoCandidates(t *testing.T) {
	d := dictionary.New("test-v1")
	// A User word below the use-count threshold is known to the dictionary
	// but fails the validity predicate, so prefix search yields no candidate.
	d.PutUserWord("gare")
	det := &Detector{Dict: d, Predicate: dictionary.ValidityPredicate(10)}
	tok := token.NewTokenizer()
	tokens := tok.Tokenize("la gare")

	res := det.Find(tokens, false, 5, nil)
	if res == nil {
		t.Fatalf("expected a result")
	}
	if res.Prefix != "gare" || len(res.Candidates) != 0 {
		t.Fatalf("expected bare trailing word with no candidates, got %+v", res)
	}
}

func TestFindReturnsNilWhenNothingMatches(t *testing.T) {
	d := dictionary.New("test-v1")
	det := &Detector{Dict: d, Predicate: dictionary.ValidityPredicate(10)}
	tok := token.NewTokenizer()
	tokens := tok.Tokenize("zzxq")

	if res := det.Find(tokens, false, 5, nil); res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
}

func TestNewSentenceStartedAfterTerminator(t *testing.T) {
	tok := token.NewTokenizer()
	tokens := tok.Tokenize("Bonjour. ")
	if !NewSentenceStarted(tokens) {
		t.Fatalf("expected new sentence after terminator and trailing space")
	}
}

func TestNewSentenceStartedMidSentence(t *testing.T) {
	tok := token.NewTokenizer()
	tokens := tok.Tokenize("je mange des")
	if NewSentenceStarted(tokens) {
		t.Fatalf("did not expect new sentence mid-sentence")
	}
}

func TestNewSentenceStartedEmpty(t *testing.T) {
	if !NewSentenceStarted(nil) {
		t.Fatalf("expected true for empty token list")
	}
}
