// Package server implements MessagePack IPC for predict/train requests.
package server

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/assistext/predict/internal/logger"
	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/predict"
	"github.com/vmihailenco/msgpack/v5"
)

var log = logger.Default("server")

// Server owns the one Predictor a process may hold (5) and serves it over
// stdin/stdout MessagePack IPC.
type Server struct {
	predictor  *predict.Predictor
	config     *config.Config
	configPath string

	decoder      *msgpack.Decoder
	writeMutex   sync.Mutex
	requestCount int64
}

// NewServer creates a server around an already-initialized Predictor.
func NewServer(predictor *predict.Predictor, cfg *config.Config, configPath string) *Server {
	return &Server{
		predictor:  predictor,
		config:     cfg,
		configPath: configPath,
		decoder:    msgpack.NewDecoder(os.Stdin),
	}
}

// reloadConfig reloads the TOML file and re-applies the prediction flags to
// the live predictor, without touching its already-opened tries.
func (s *Server) reloadConfig() error {
	newConfig, err := config.LoadConfig(s.configPath)
	if err != nil {
		log.Warnf("failed to reload config, keeping current: %v", err)
		return err
	}
	s.config = newConfig
	s.predictor.Config = newConfig.Prediction
	log.Debugf("config reloaded from %s", s.configPath)
	return nil
}

// Start begins listening for requests until stdin is closed.
func (s *Server) Start() error {
	log.Debug("starting MessagePack predict server")
	reloadEvery := int64(s.config.Server.ReloadIntervalSeconds)
	if reloadEvery <= 0 {
		reloadEvery = 100
	}
	for {
		if err := s.processRequest(reloadEvery); err != nil {
			if err == io.EOF {
				log.Debug("client disconnected")
				return nil
			}
			continue
		}
	}
}

func (s *Server) processRequest(reloadEvery int64) error {
	s.requestCount++
	if s.requestCount%reloadEvery == 0 {
		s.reloadConfig()
	}

	var raw map[string]interface{}
	if err := s.decoder.Decode(&raw); err != nil {
		return err
	}

	if _, isTrain := raw["text"]; isTrain {
		return s.processTrain(raw)
	}
	if _, isConfig := raw["enable_word_correction"]; isConfig {
		return s.processConfigUpdate(raw)
	}
	if _, isConfig := raw["correction_max_cost"]; isConfig {
		return s.processConfigUpdate(raw)
	}
	if _, isConfig := raw["dynamic_model_enabled"]; isConfig {
		return s.processConfigUpdate(raw)
	}
	return s.processPredict(raw)
}

func (s *Server) processPredict(raw map[string]interface{}) error {
	var req PredictRequest
	req.ID, _ = raw["id"].(string)
	req.Before, _ = raw["before"].(string)
	req.After, _ = raw["after"].(string)
	req.N = intField(raw, "n")

	if req.N <= 0 {
		req.N = 10
	}

	start := time.Now()
	result := s.predictor.Predict(req.Before, req.After, req.N, nil)
	elapsed := time.Since(start)

	candidates := make([]PredictedCandidate, len(result.Candidates))
	for i, c := range result.Candidates {
		candidates[i] = PredictedCandidate{
			Word:                      c.Surface,
			Score:                     c.Score,
			IsCorrection:              c.IsCorrection,
			PreviousCharCountToRemove: c.PreviousCharCountToRemove,
			PredictionToInsert:        c.PredictionToInsert,
			MayInsertSpace:            c.MayInsertSpace,
		}
	}

	return s.sendResponse(&PredictResponse{
		ID:                    req.ID,
		Candidates:            candidates,
		NextCharCountToRemove: result.NextCharCountToRemove,
		TimeTaken:             elapsed.Microseconds(),
	})
}

func (s *Server) processTrain(raw map[string]interface{}) error {
	var req TrainRequest
	req.ID, _ = raw["id"].(string)
	req.Text, _ = raw["text"].(string)
	req.IgnoreLastWord, _ = raw["ignore_last"].(bool)

	if req.Text == "" {
		return s.sendResponse(&TrainResponse{ID: req.ID, Status: "error", Error: "empty text"})
	}

	start := time.Now()
	s.predictor.TrainDynamicModel(req.Text, req.IgnoreLastWord)
	elapsed := time.Since(start)

	return s.sendResponse(&TrainResponse{ID: req.ID, Status: "ok", TimeTaken: elapsed.Microseconds()})
}

func (s *Server) processConfigUpdate(raw map[string]interface{}) error {
	var req ConfigUpdateRequest
	req.ID, _ = raw["id"].(string)
	if v, ok := raw["enable_word_correction"].(bool); ok {
		req.EnableWordCorrection = &v
	}
	if v, ok := raw["correction_max_cost"].(float64); ok {
		req.CorrectionMaxCost = &v
	}
	if v, ok := raw["dynamic_model_enabled"].(bool); ok {
		req.DynamicModelEnabled = &v
	}

	if err := s.config.Update(s.configPath, req.EnableWordCorrection, req.CorrectionMaxCost, req.DynamicModelEnabled); err != nil {
		return s.sendResponse(&ConfigUpdateResponse{ID: req.ID, Status: "error", Error: err.Error()})
	}
	s.predictor.Config = s.config.Prediction
	return s.sendResponse(&ConfigUpdateResponse{ID: req.ID, Status: "ok"})
}

// sendResponse encodes and writes response atomically (buffer-then-write,
// mirroring the teacher's completion-server pattern).
func (s *Server) sendResponse(response any) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(response); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return os.Stdout.Sync()
}

func intField(raw map[string]interface{}, key string) int {
	switch v := raw[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
