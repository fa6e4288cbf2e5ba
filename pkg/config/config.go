// Package config manages TOML configuration for the prediction engine.
//
// InitConfig handles automatic config file creation and loading with
// fallback to defaults. LoadConfig and SaveConfig provide direct fs access
// for runtime changes. Update allows targeted parameter changes with
// persistence.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire configuration structure (6).
type Config struct {
	Prediction PredictionConfig `toml:"prediction"`
	Paths      PathsConfig      `toml:"paths"`
	Server     ServerConfig     `toml:"server"`
}

// PredictionConfig mirrors every flag enumerated in 6.
type PredictionConfig struct {
	AddNewWords                 bool    `toml:"add_new_words"`
	MinUseCountToValidateNewWord int    `toml:"min_use_count_to_validate_new_word"`
	DynamicModelEnabled          bool    `toml:"dynamic_model_enabled"`
	DynamicModelMinimumWeight    float64 `toml:"dynamic_model_minimum_weight"`
	MinCountToProvidePrediction  int     `toml:"min_count_to_provide_prediction"`
	MinCountToProvideCorrection  int     `toml:"min_count_to_provide_correction"`
	EnableWordCorrection         bool    `toml:"enable_word_correction"`
	CorrectionMaxCost            float64 `toml:"correction_max_cost"`
	CorrectionDefaultFactor      float64 `toml:"correction_default_factor"`
	CorrectionDefaultCost        float64 `toml:"correction_default_cost"`
	EnableDebugInformation       bool    `toml:"enable_debug_information"`
	CorrectionRulesPath          string  `toml:"correction_rules_path"`
}

// PathsConfig locates the three persisted-state file kinds of 4.J plus the
// word-dictionary user overlay.
type PathsConfig struct {
	StaticTriePath  string `toml:"static_trie_path"`
	DynamicTriePath string `toml:"dynamic_trie_path"`
	DictionaryPath  string `toml:"dictionary_path"`
	UserOverlayPath string `toml:"user_overlay_path"`
}

// ServerConfig has the predictor-server's own options. ReloadIntervalSeconds
// is applied as a request count, not a duration: the server reloads this
// file before every ReloadIntervalSeconds-th request (every 100th when the
// value is not positive).
type ServerConfig struct {
	ReloadIntervalSeconds int `toml:"reload_interval_seconds"`
}

// DefaultConfig returns a Config with the defaults enumerated in 6.
func DefaultConfig() *Config {
	return &Config{
		Prediction: PredictionConfig{
			AddNewWords:                  true,
			MinUseCountToValidateNewWord: 10,
			DynamicModelEnabled:          true,
			DynamicModelMinimumWeight:    0.05,
			MinCountToProvidePrediction:  0,
			MinCountToProvideCorrection:  0,
			EnableWordCorrection:         false,
			CorrectionMaxCost:            3.5,
			CorrectionDefaultFactor:      0.5,
			CorrectionDefaultCost:        1.0,
			EnableDebugInformation:       false,
		},
		Paths: PathsConfig{
			StaticTriePath:  "static.trie",
			DynamicTriePath: "dynamic.trie",
			DictionaryPath:  "dictionary.bin",
			UserOverlayPath: "overlay.bin",
		},
		Server: ServerConfig{
			ReloadIntervalSeconds: 30,
		},
	}
}

// InitConfig loads config from file or creates default if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			return nil, err
		}
		log.Debugf("created default config file at %s", configPath)
		return cfg, nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("failed to load config, using defaults: %v", err)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// LoadConfig loads from a TOML file.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Errorf("failed to decode config file: %v", err)
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig saves into a TOML file.
func SaveConfig(cfg *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("failed to create config file: %v", err)
		return err
	}
	defer file.Close()
	encoder := toml.NewEncoder(file)
	return encoder.Encode(cfg)
}

// Update changes selected prediction-config values and saves to file.
func (c *Config) Update(configPath string, enableWordCorrection *bool, correctionMaxCost *float64, dynamicModelEnabled *bool) error {
	p := &c.Prediction
	if enableWordCorrection != nil {
		p.EnableWordCorrection = *enableWordCorrection
	}
	if correctionMaxCost != nil {
		p.CorrectionMaxCost = *correctionMaxCost
	}
	if dynamicModelEnabled != nil {
		p.DynamicModelEnabled = *dynamicModelEnabled
	}
	return SaveConfig(c, configPath)
}
