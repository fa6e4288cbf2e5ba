/*
Package server implements msgpack IPC for the prediction engine.

The server provides a minimal interface for next-word prediction and
dynamic-model training over stdin/stdout using binary msgpack encoding.
Messages are processed synchronously, with timing info included in the
response.

# IPC

The server operates on a request/response model: a client sends a structured
message on stdin and reads a response from stdout. Each message carries an
id field plus fields specific to its operation.

Predict requests carry the text surrounding the caret:

	{"id": "req_001", "before": "il eta", "after": "", "n": 5}

The server responds with scored candidates, each already carrying its edit
plan:

	{"id": "req_001", "c": [{"w": "était", "s": 0.41, "corr": true, "r": 3, "i": "était", "sp": true}], "n": 0, "t": 145}

Train requests feed one utterance of free text into the dynamic model:

	{"id": "train_001", "text": "je vais à la gare", "ignore_last": true}

# Message Types

PredictRequest/PredictResponse handle the main next-word/current-word
operation (6 "predict"). TrainRequest/TrainResponse wrap the dynamic-model
training operation (6 "train"). ConfigUpdateRequest/ConfigUpdateResponse
change a small set of prediction flags, save them to the TOML file and copy
them into the running predictor's config; every other setting is changed by
editing the TOML file, which the server re-reads once every
reload_interval_seconds requests (pkg/config.ServerConfig).

msgpack encoding keeps message sizes small and parses faster than JSON,
which matters here since predict is called on every keystroke.
*/
package server

// PredictRequest asks for predictions around the caret (6 "predict").
type PredictRequest struct {
	ID     string `msgpack:"id"`
	Before string `msgpack:"before"`
	After  string `msgpack:"after,omitempty"`
	N      int    `msgpack:"n,omitempty"`
}

// PredictedCandidate is one scored, edit-plan-carrying prediction.
type PredictedCandidate struct {
	Word                      string  `msgpack:"w"`
	Score                     float64 `msgpack:"s"`
	IsCorrection              bool    `msgpack:"corr,omitempty"`
	PreviousCharCountToRemove int     `msgpack:"r"`
	PredictionToInsert        string  `msgpack:"i"`
	MayInsertSpace            bool    `msgpack:"sp,omitempty"`
}

// PredictResponse answers a PredictRequest.
type PredictResponse struct {
	ID                    string                `msgpack:"id"`
	Candidates            []PredictedCandidate  `msgpack:"c"`
	NextCharCountToRemove int                   `msgpack:"n"`
	TimeTaken             int64                 `msgpack:"t"`
}

// TrainRequest feeds one utterance into the dynamic model (6 "train").
type TrainRequest struct {
	ID              string `msgpack:"id"`
	Text            string `msgpack:"text"`
	IgnoreLastWord  bool   `msgpack:"ignore_last,omitempty"`
}

// TrainResponse answers a TrainRequest.
type TrainResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Error     string `msgpack:"error,omitempty"`
	TimeTaken int64  `msgpack:"t"`
}

// ConfigUpdateRequest changes a small set of prediction flags, saves them to
// the config file and copies them into the live Predictor's Config (5,
// server-held single Predictor). Unset pointers leave the corresponding
// setting untouched. The correction engine and dynamic trie built at startup
// are not rebuilt: enabling word correction has an effect only if the engine
// was built at startup, a new correction_max_cost only decides whether
// corrections run at all, and dynamic_model_enabled takes effect at the next
// start.
type ConfigUpdateRequest struct {
	ID                   string   `msgpack:"id"`
	EnableWordCorrection *bool    `msgpack:"enable_word_correction,omitempty"`
	CorrectionMaxCost    *float64 `msgpack:"correction_max_cost,omitempty"`
	DynamicModelEnabled  *bool    `msgpack:"dynamic_model_enabled,omitempty"`
}

// ConfigUpdateResponse answers a ConfigUpdateRequest.
type ConfigUpdateResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`
}

// ErrorResponse reports a malformed or out-of-range request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
