// Package appwire builds a Predictor from a loaded Config, shared by the
// predictd server and the predictcli debug shell.
package appwire

import (
	"fmt"
	"os"

	"github.com/assistext/predict/internal/logger"
	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/correction"
	"github.com/assistext/predict/pkg/dictionary"
	"github.com/assistext/predict/pkg/ngram"
	"github.com/assistext/predict/pkg/predict"
	"github.com/assistext/predict/pkg/prefix"
	"github.com/assistext/predict/pkg/token"
)

var log = logger.Default("appwire")

// defaultMaxOrder is the n-gram order of a newly created dynamic trie and of
// the predictor's context (4.D/4.E); it is not read from the static trie file.
const defaultMaxOrder = 3

// BuildPredictor wires the dictionary, static/dynamic tries, tokenizer,
// prefix detector and correction engine into one Predictor (4.I, 5).
func BuildPredictor(cfg *config.Config) (*predict.Predictor, error) {
	dict, err := loadDictionary(cfg)
	if err != nil {
		return nil, err
	}

	discount := ngram.DiscountConfig{Lower: 0.1, Upper: 0.9}
	maxOrder := defaultMaxOrder

	static, err := openStaticTrie(cfg)
	if err != nil {
		return nil, err
	}

	dynamic := openOrCreateDynamicTrie(cfg, maxOrder, discount)

	model := &ngram.Model{Static: static, Dynamic: dynamic, MinDynamicWeight: cfg.Prediction.DynamicModelMinimumWeight}
	predicate := dictionary.ValidityPredicate(uint32(cfg.Prediction.MinUseCountToValidateNewWord))

	det := &prefix.Detector{Dict: dict, Predicate: predicate}
	if cfg.Prediction.EnableWordCorrection {
		det.Corrector = buildCorrector(cfg, dict, static)
	}

	return &predict.Predictor{
		Dict:      dict,
		Model:     model,
		Tokenizer: token.NewTokenizer(),
		Detector:  det,
		Config:    cfg.Prediction,
		MaxOrder:  maxOrder,
	}, nil
}

func loadDictionary(cfg *config.Config) (*dictionary.Dictionary, error) {
	var dict *dictionary.Dictionary
	if _, err := os.Stat(cfg.Paths.DictionaryPath); err == nil {
		dict, err = dictionary.Load(cfg.Paths.DictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
	} else {
		log.Warnf("no dictionary at %s, starting empty", cfg.Paths.DictionaryPath)
		dict = dictionary.New("predictd-v1")
	}
	if cfg.Paths.UserOverlayPath != "" {
		if err := dict.LoadUserOverlay(cfg.Paths.UserOverlayPath); err != nil {
			log.Warnf("user overlay not loaded: %v", err)
		}
	}
	return dict, nil
}

func openStaticTrie(cfg *config.Config) (*ngram.StaticTrie, error) {
	if _, err := os.Stat(cfg.Paths.StaticTriePath); err != nil {
		log.Warnf("no static trie at %s, predictions will rely on the dynamic model only", cfg.Paths.StaticTriePath)
		return nil, nil
	}
	static, err := ngram.Open(cfg.Paths.StaticTriePath)
	if err != nil {
		return nil, fmt.Errorf("open static trie: %w", err)
	}
	return static, nil
}

func openOrCreateDynamicTrie(cfg *config.Config, maxOrder int, discount ngram.DiscountConfig) *ngram.DynamicTrie {
	if !cfg.Prediction.DynamicModelEnabled {
		return nil
	}
	if _, err := os.Stat(cfg.Paths.DynamicTriePath); err == nil {
		dyn, err := ngram.OpenDynamicTrieFile(cfg.Paths.DynamicTriePath, dictionary.SentenceStartID, discount)
		if err != nil {
			log.Warnf("dynamic trie not loaded, starting empty: %v", err)
		} else {
			return dyn
		}
	}
	return ngram.NewDynamic(maxOrder, dictionary.SentenceStartID, discount)
}

func buildCorrector(cfg *config.Config, dict *dictionary.Dictionary, static *ngram.StaticTrie) *correction.Engine {
	root := correction.DefaultAccentRules()
	if cfg.Prediction.CorrectionRulesPath != "" {
		loaded, err := correction.LoadRuleTree(cfg.Prediction.CorrectionRulesPath)
		if err != nil {
			log.Warnf("correction rules not loaded, falling back to built-in accent rules: %v", err)
		} else {
			root = loaded
		}
	}
	atoms := correction.Compile(root, correction.Config{
		DefaultCost:   cfg.Prediction.CorrectionDefaultCost,
		DefaultFactor: cfg.Prediction.CorrectionDefaultFactor,
		MaxCost:       cfg.Prediction.CorrectionMaxCost,
	})
	return correction.New(atoms, dict, static, cfg.Prediction.CorrectionMaxCost)
}
