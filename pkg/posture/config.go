package posture

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SubScore indexes the seven normalized posture components.
type SubScore int

// Sub-score order. Weights are applied in this order.
const (
	HeadTilt SubScore = iota
	NeckVertical
	ShoulderLevel
	ShoulderRoll
	SpineAlignment
	HeadRotation
	HeadSideTilt

	NumSubScores = iota
)

var subScoreNames = [NumSubScores]string{
	"head_tilt", "neck_vertical", "shoulder_level", "shoulder_roll",
	"spine_alignment", "head_rotation", "head_side_tilt",
}

func (s SubScore) String() string {
	if s < 0 || int(s) >= NumSubScores {
		return fmt.Sprintf("sub_score_%d", int(s))
	}
	return subScoreNames[s]
}

// Weights are the per-sub-score contributions to the posture score.
type Weights [NumSubScores]float64

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Normalized reports whether the weights sum to 1 within tolerance.
func (w Weights) Normalized() bool {
	return math.Abs(w.Sum()-1.0) <= 1e-6
}

// Thresholds scale each geometric deviation into a 0-1 sub-score.
type Thresholds struct {
	HeadTilt      float64 `json:"head_tilt"`
	NeckAngle     float64 `json:"neck_angle"`
	ShoulderLevel float64 `json:"shoulder_level"`
	ShoulderRoll  float64 `json:"shoulder_roll"`
	SpineAngle    float64 `json:"spine_angle"`
}

// ThresholdKeys lists the required threshold names.
var ThresholdKeys = []string{"head_tilt", "neck_angle", "shoulder_level", "shoulder_roll", "spine_angle"}

func (t *Thresholds) field(key string) *float64 {
	switch key {
	case "head_tilt":
		return &t.HeadTilt
	case "neck_angle":
		return &t.NeckAngle
	case "shoulder_level":
		return &t.ShoulderLevel
	case "shoulder_roll":
		return &t.ShoulderRoll
	case "spine_angle":
		return &t.SpineAngle
	}
	return nil
}

// Config is the complete scoring configuration.
type Config struct {
	Weights    Weights    `json:"posture_weights"`
	Thresholds Thresholds `json:"posture_thresholds"`
}

// DefaultWeights returns the stock sub-score weights.
func DefaultWeights() Weights {
	return Weights{0.2, 0.2, 0.15, 0.15, 0.15, 0.1, 0.05}
}

// DefaultThresholds returns the stock deviation scales.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeadTilt:      1.2,
		NeckAngle:     45.0,
		ShoulderLevel: 5.0,
		ShoulderRoll:  2.0,
		SpineAngle:    45.0,
	}
}

// DefaultConfig returns the stock scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
	}
}

// Validate checks weights and thresholds.
// Weights need not sum to 1; callers that care can check Weights.Normalized.
func (c Config) Validate() error {
	for i, w := range c.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return configErrorf("posture_weights", "weight %d (%s) is not finite", i, SubScore(i))
		}
		if w < 0 {
			return configErrorf("posture_weights", "weight %d (%s) is negative: %v", i, SubScore(i), w)
		}
	}
	for _, key := range ThresholdKeys {
		v := *c.Thresholds.field(key)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErrorf("posture_thresholds", "%s is not finite", key)
		}
		if v <= 0 {
			return configErrorf("posture_thresholds", "%s must be positive, got %v", key, v)
		}
	}
	return nil
}

// NewConfig builds a validated Config from raw settings values.
// Each argument may be a native Go value or a JSON document.
func NewConfig(weights, thresholds any) (Config, error) {
	w, err := ParseWeights(weights)
	if err != nil {
		return Config{}, err
	}
	t, err := ParseThresholds(thresholds)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Weights: w, Thresholds: t}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseWeights accepts a sequence of seven numbers, natively or as JSON.
func ParseWeights(v any) (Weights, error) {
	const field = "posture_weights"

	var items []any
	switch t := v.(type) {
	case nil:
		return Weights{}, configErrorf(field, "missing")
	case Weights:
		return t, nil
	case [NumSubScores]float64:
		return Weights(t), nil
	case []float64:
		items = make([]any, len(t))
		for i, f := range t {
			items[i] = f
		}
	case []any:
		items = t
	case string, []byte, json.RawMessage:
		decoded, err := decodeJSON(field, t)
		if err != nil {
			return Weights{}, err
		}
		list, ok := decoded.([]any)
		if !ok {
			return Weights{}, configErrorf(field, "must be a list of numbers, got %s", jsonKind(decoded))
		}
		items = list
	default:
		return Weights{}, configErrorf(field, "must be a list of numbers, got %T", v)
	}

	if len(items) != NumSubScores {
		return Weights{}, configErrorf(field, "expected %d weights, got %d", NumSubScores, len(items))
	}

	var w Weights
	for i, item := range items {
		f, err := toFloat(item)
		if err != nil {
			return Weights{}, &ConfigError{Field: field, Message: fmt.Sprintf("weight %d is not a number", i), Err: err}
		}
		w[i] = f
	}
	return w, nil
}

// ParseThresholds accepts a mapping with exactly the five threshold keys,
// natively or as JSON.
func ParseThresholds(v any) (Thresholds, error) {
	const field = "posture_thresholds"

	var m map[string]any
	switch t := v.(type) {
	case nil:
		return Thresholds{}, configErrorf(field, "missing")
	case Thresholds:
		return t, nil
	case map[string]float64:
		m = make(map[string]any, len(t))
		for k, f := range t {
			m[k] = f
		}
	case map[string]any:
		m = t
	case string, []byte, json.RawMessage:
		decoded, err := decodeJSON(field, t)
		if err != nil {
			return Thresholds{}, err
		}
		mapping, ok := decoded.(map[string]any)
		if !ok {
			return Thresholds{}, configErrorf(field, "must be a mapping, got %s", jsonKind(decoded))
		}
		m = mapping
	default:
		return Thresholds{}, configErrorf(field, "must be a mapping, got %T", v)
	}

	var th Thresholds
	for _, key := range ThresholdKeys {
		raw, ok := m[key]
		if !ok {
			return Thresholds{}, configErrorf(field, "missing key %q", key)
		}
		f, err := toFloat(raw)
		if err != nil {
			return Thresholds{}, &ConfigError{Field: field, Message: fmt.Sprintf("%s is not a number", key), Err: err}
		}
		*th.field(key) = f
	}
	for key := range m {
		if th.field(key) == nil {
			return Thresholds{}, configErrorf(field, "unknown key %q", key)
		}
	}
	return th, nil
}

func decodeJSON(field string, raw any) (any, error) {
	var data []byte
	switch t := raw.(type) {
	case string:
		data = []byte(strings.TrimSpace(t))
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	}
	if len(data) == 0 {
		return nil, configErrorf(field, "empty value")
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &ConfigError{Field: field, Message: "invalid JSON", Err: err}
	}
	// Settings stores may hold the document as a JSON string value.
	if inner, ok := decoded.(string); ok {
		if err := json.Unmarshal([]byte(inner), &decoded); err != nil {
			return nil, &ConfigError{Field: field, Message: "invalid JSON", Err: err}
		}
	}
	return decoded, nil
}

// UnmarshalJSON accepts a JSON list or a string holding one.
func (w *Weights) UnmarshalJSON(data []byte) error {
	parsed, err := ParseWeights(json.RawMessage(data))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// UnmarshalJSON accepts a JSON object or a string holding one.
func (t *Thresholds) UnmarshalJSON(data []byte) error {
	parsed, err := ParseThresholds(json.RawMessage(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	}
	return fmt.Sprintf("%T", v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}
