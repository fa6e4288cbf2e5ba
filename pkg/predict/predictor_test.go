package predict

import (
	"testing"

	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/ngram"
	"github.com/assistext/predict/pkg/prefix"
	"github.com/assistext/predict/pkg/token"
)

func newTestPredictor(t *testing.T) *Predictor {
	t.Helper()
	dict := dictionary.New("test-v1")
	words := []string{"trucs", "fruits", "bonbons", "rappelle", "remercie", "gare"}
	ids := make(map[string]uint32, len(words))
	for _, w := range words {
		ids[w] = dict.PutSimpleWord(w)
	}

	dyn := ngram.NewDynamic(3, dictionary.SentenceStartID, ngram.DiscountConfig{Lower: 0.1, Upper: 0.9})
	ctx := []uint32{dictionary.SentenceStartID, dictionary.SentenceStartID}
	dyn.IncrementPath(append(ctx, ids["trucs"]), 3)
	dyn.IncrementPath(append(ctx, ids["fruits"]), 2)
	dyn.IncrementPath(append(ctx, ids["bonbons"]), 1)
	dyn.UpdateProbabilities()

	model := &ngram.Model{Dynamic: dyn, MinDynamicWeight: 0}

	tok := token.NewTokenizer()
	det := &prefix.Detector{Dict: dict, Predicate: dictionary.ValidityPredicate(10)}

	return &Predictor{
		Dict:      dict,
		Model:     model,
		Tokenizer: tok,
		Detector:  det,
		Config:    config.DefaultConfig().Prediction,
		MaxOrder:  3,
	}
}

func TestPredictReturnsRootContinuationsWithNoStartedPrefix(t *testing.T) {
	p := newTestPredictor(t)
	res := p.Predict("", "", 5, nil)
	if res == nil || len(res.Candidates) == 0 {
		t.Fatalf("expected candidates, got %+v", res)
	}
	for _, c := range res.Candidates {
		if c.PreviousCharCountToRemove != 0 {
			t.Fatalf("expected no chars to remove for root continuation, got %d", c.PreviousCharCountToRemove)
		}
		if !c.MayInsertSpace {
			t.Fatalf("expected MayInsertSpace true for plain word candidate")
		}
	}
}

func TestPredictReturnsEmptyBelowMinimumPrefixLength(t *testing.T) {
	p := newTestPredictor(t)
	p.Config.MinCountToProvidePrediction = 5
	res := p.Predict("je te r", "", 5, nil)
	if len(res.Candidates) != 0 {
		t.Fatalf("expected empty result below minimum prefix length, got %+v", res.Candidates)
	}
}

func TestPredictStartedPrefixEditPlan(t *testing.T) {
	p := newTestPredictor(t)
	res := p.Predict("je te r", "", 5, nil)
	if res == nil || len(res.Candidates) == 0 {
		t.Fatalf("expected candidates for started prefix 'r'")
	}
	for _, c := range res.Candidates {
		if c.PreviousCharCountToRemove != 0 {
			t.Fatalf("expected 0 chars to remove for a true prefix match, got %d", c.PreviousCharCountToRemove)
		}
		if "r"+c.PredictionToInsert != c.Surface {
			t.Fatalf("unexpected insert computation for surface %q", c.Surface)
		}
	}
}

func TestPredictNextCharCountToRemove(t *testing.T) {
	p := newTestPredictor(t)
	res := p.Predict("je vais à la ", "tion", 5, nil)
	if res.NextCharCountToRemove != 4 {
		t.Fatalf("expected nextCharCountToRemove == 4, got %d", res.NextCharCountToRemove)
	}
}

func TestPredictExcludeIDsProduceDisjointResults(t *testing.T) {
	p := newTestPredictor(t)
	first := p.Predict("j'aime manger des ", "", 5, nil)
	exclude := make(map[uint32]bool, len(first.Candidates))
	for _, c := range first.Candidates {
		exclude[c.WordID] = true
	}
	second := p.Predict("j'aime manger des ", "", 5, exclude)
	for _, c := range second.Candidates {
		if exclude[c.WordID] {
			t.Fatalf("expected disjoint word ids, found %d in both results", c.WordID)
		}
	}
}

func TestTrainDynamicModelIncreasesScoreForTrainedWord(t *testing.T) {
	p := newTestPredictor(t)
	p.Dict.PutSimpleWord("gare")
	before := p.Predict("je vais à la ", "", 5, nil)
	var beforeScore float64
	for _, c := range before.Candidates {
		if c.Surface == "gare" {
			beforeScore = c.Score
		}
	}

	p.TrainDynamicModel("je vais à la gare", false)

	after := p.Predict("je vais à la ", "", 5, nil)
	var found bool
	var afterScore float64
	for _, c := range after.Candidates {
		if c.Surface == "gare" {
			found = true
			afterScore = c.Score
		}
	}
	if !found {
		t.Fatalf("expected gare to appear after training, got %+v", after.Candidates)
	}
	if afterScore <= beforeScore {
		t.Fatalf("expected score to increase after training: before=%v after=%v", beforeScore, afterScore)
	}
}
