package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Prediction.AddNewWords {
		t.Fatalf("expected add_new_words default true")
	}
	if cfg.Prediction.MinUseCountToValidateNewWord != 10 {
		t.Fatalf("unexpected min_use_count_to_validate_new_word default: %d", cfg.Prediction.MinUseCountToValidateNewWord)
	}
	if cfg.Prediction.CorrectionMaxCost != 3.5 {
		t.Fatalf("unexpected correction_max_cost default: %v", cfg.Prediction.CorrectionMaxCost)
	}
	if cfg.Prediction.EnableWordCorrection {
		t.Fatalf("expected enable_word_correction default false")
	}
}

func TestInitConfigCreatesThenReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	first.Prediction.EnableWordCorrection = true
	if err := SaveConfig(first, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	second, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig (reload): %v", err)
	}
	if !second.Prediction.EnableWordCorrection {
		t.Fatalf("expected reloaded config to keep saved override")
	}
}

func TestUpdatePersistsSelectedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := DefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	maxCost := 1.5
	if err := cfg.Update(path, nil, &maxCost, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if reloaded.Prediction.CorrectionMaxCost != 1.5 {
		t.Fatalf("expected updated correction_max_cost to persist, got %v", reloaded.Prediction.CorrectionMaxCost)
	}
}
