package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/posture"
)

// Load builds settings from defaults, the JSON file at path (skipped when
// path is empty or the file does not exist) and environment overrides.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug("settings file not found, using defaults", "path", path)
		case err != nil:
			return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
		default:
			if err := s.Merge(data); err != nil {
				return Settings{}, fmt.Errorf("settings: %s: %w", path, err)
			}
		}
	}

	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	if !s.ML.PostureWeights.Normalized() {
		log.Warn("posture weights do not sum to 1; scores will be clipped",
			"sum", s.ML.PostureWeights.Sum())
	}
	return s, nil
}

// Merge overlays a JSON document onto s. Fields absent from the document
// keep their values; unknown fields are rejected.
func (s *Settings) Merge(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after settings document", ErrInvalidSetting)
	}
	return nil
}

// EnvKey returns the override variable for a section field.
func EnvKey(section, field string) string {
	return EnvPrefix + "_" + strings.ToUpper(section) + "_" + strings.ToUpper(field)
}

type envField struct {
	section string
	field   string
	set     func(*Settings, string) error
}

var envFields = []envField{
	{"runtime", "notification_cooldown", intField(func(s *Settings) *int { return &s.Runtime.NotificationCooldown })},
	{"runtime", "poor_posture_threshold", floatField(func(s *Settings) *float64 { return &s.Runtime.PoorPostureThreshold })},
	{"runtime", "default_posture_message", stringField(func(s *Settings) *string { return &s.Runtime.DefaultPostureMessage })},
	{"runtime", "notifications_enabled", boolField(func(s *Settings) *bool { return &s.Runtime.NotificationsEnabled })},
	{"runtime", "focus_mode_enabled", boolField(func(s *Settings) *bool { return &s.Runtime.FocusModeEnabled })},
	{"ml", "posture_weights", func(s *Settings, v string) error {
		w, err := posture.ParseWeights(v)
		if err != nil {
			return err
		}
		s.ML.PostureWeights = w
		return nil
	}},
	{"ml", "posture_thresholds", func(s *Settings, v string) error {
		t, err := posture.ParseThresholds(v)
		if err != nil {
			return err
		}
		s.ML.PostureThresholds = t
		return nil
	}},
	{"ml", "score_buffer_size", intField(func(s *Settings) *int { return &s.ML.ScoreBufferSize })},
	{"ml", "score_window_size", floatField(func(s *Settings) *float64 { return &s.ML.ScoreWindowSize })},
	{"ml", "score_threshold", floatField(func(s *Settings) *float64 { return &s.ML.ScoreThreshold })},
	{"ml", "min_visibility", floatField(func(s *Settings) *float64 { return &s.ML.MinVisibility })},
	{"profile", "baseline_posture_score", floatField(func(s *Settings) *float64 { return &s.Profile.BaselinePostureScore })},
	{"profile", "baseline_neck_angle", floatField(func(s *Settings) *float64 { return &s.Profile.BaselineNeckAngle })},
	{"profile", "baseline_shoulder_level", floatField(func(s *Settings) *float64 { return &s.Profile.BaselineShoulderLevel })},
}

// EnvKeys lists every recognized override variable.
func EnvKeys() []string {
	keys := make([]string, len(envFields))
	for i, f := range envFields {
		keys[i] = EnvKey(f.section, f.field)
	}
	return keys
}

// ApplyEnv applies POSTURE_<SECTION>_<FIELD> overrides found by lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, f := range envFields {
		key := EnvKey(f.section, f.field)
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := f.set(s, raw); err != nil {
			if !posture.IsConfigError(err) {
				err = fmt.Errorf("%w: %v", ErrInvalidSetting, err)
			}
			return &ValidationError{Key: key, Err: err}
		}
		log.Debug("settings override from environment", "key", key)
	}
	return nil
}

func intField(field func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, raw string) error {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

func floatField(field func(*Settings) *float64) func(*Settings, string) error {
	return func(s *Settings, raw string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return err
		}
		*field(s) = f
		return nil
	}
}

func stringField(field func(*Settings) *string) func(*Settings, string) error {
	return func(s *Settings, raw string) error {
		*field(s) = raw
		return nil
	}
}

func boolField(field func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, raw string) error {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes", "on":
			*field(s) = true
		case "0", "false", "no", "off", "":
			*field(s) = false
		default:
			return fmt.Errorf("cannot interpret %q as a boolean", raw)
		}
		return nil
	}
}
