// Package settings holds the user-tunable configuration of the posture
// service: runtime alert policy, ML scoring parameters and the user
// profile. Settings load from defaults, then a JSON file, then
// POSTURE_<SECTION>_<FIELD> environment variables.
package settings

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-posture/pkg/posture"
	"github.com/teslashibe/go-posture/pkg/score"
)

// EnvPrefix starts every override variable name.
const EnvPrefix = "POSTURE"

// Runtime controls alerting.
type Runtime struct {
	NotificationCooldown  int     `json:"notification_cooldown"` // seconds
	PoorPostureThreshold  float64 `json:"poor_posture_threshold"`
	DefaultPostureMessage string  `json:"default_posture_message"`
	NotificationsEnabled  bool    `json:"notifications_enabled"`
	FocusModeEnabled      bool    `json:"focus_mode_enabled"`
}

// ML controls scoring and smoothing.
type ML struct {
	PostureWeights    posture.Weights    `json:"posture_weights"`
	PostureThresholds posture.Thresholds `json:"posture_thresholds"`
	ScoreBufferSize   int                `json:"score_buffer_size"`
	ScoreWindowSize   float64            `json:"score_window_size"` // seconds
	ScoreThreshold    float64            `json:"score_threshold"`
	MinVisibility     float64            `json:"min_visibility"`
}

// Profile holds per-user baselines.
type Profile struct {
	BaselinePostureScore  float64 `json:"baseline_posture_score"`
	BaselineNeckAngle     float64 `json:"baseline_neck_angle"`
	BaselineShoulderLevel float64 `json:"baseline_shoulder_level"`
}

// Settings is the complete configuration.
type Settings struct {
	Runtime Runtime `json:"runtime"`
	ML      ML      `json:"ml"`
	Profile Profile `json:"profile"`
}

// Defaults returns the stock settings.
func Defaults() Settings {
	return Settings{
		Runtime: Runtime{
			NotificationCooldown:  300,
			PoorPostureThreshold:  60,
			DefaultPostureMessage: "Please sit up straight!",
			NotificationsEnabled:  true,
			FocusModeEnabled:      false,
		},
		ML: ML{
			PostureWeights:    posture.DefaultWeights(),
			PostureThresholds: posture.DefaultThresholds(),
			ScoreBufferSize:   score.DefaultCapacity,
			ScoreWindowSize:   score.DefaultWindow.Seconds(),
			ScoreThreshold:    65,
			MinVisibility:     0,
		},
		Profile: Profile{
			BaselinePostureScore:  posture.DefaultBaseline,
			BaselineNeckAngle:     10,
			BaselineShoulderLevel: 2,
		},
	}
}

// DefaultPath returns ~/.posture/settings.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".posture", "settings.json")
	}
	return filepath.Join(home, ".posture", "settings.json")
}

// PostureConfig returns the scoring configuration.
func (s Settings) PostureConfig() posture.Config {
	return posture.Config{
		Weights:    s.ML.PostureWeights,
		Thresholds: s.ML.PostureThresholds,
	}
}

// Window returns the averaging window.
func (s Settings) Window() time.Duration {
	return time.Duration(s.ML.ScoreWindowSize * float64(time.Second))
}

// Cooldown returns the minimum time between alerts.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.Runtime.NotificationCooldown) * time.Second
}

// Validate checks every field.
func (s Settings) Validate() error {
	if err := s.PostureConfig().Validate(); err != nil {
		return err
	}

	checks := []struct {
		key string
		ok  bool
		msg string
	}{
		{"ml.score_buffer_size", s.ML.ScoreBufferSize > 0, "must be positive"},
		{"ml.score_window_size", s.ML.ScoreWindowSize > 0 && !math.IsInf(s.ML.ScoreWindowSize, 0), "must be a positive number of seconds"},
		{"ml.score_threshold", inRange(s.ML.ScoreThreshold, 0, 100), "must be within [0, 100]"},
		{"ml.min_visibility", inRange(s.ML.MinVisibility, 0, 1), "must be within [0, 1]"},
		{"runtime.notification_cooldown", s.Runtime.NotificationCooldown >= 0, "must not be negative"},
		{"runtime.poor_posture_threshold", inRange(s.Runtime.PoorPostureThreshold, 0, 100), "must be within [0, 100]"},
		{"profile.baseline_posture_score", inRange(s.Profile.BaselinePostureScore, 0, 100), "must be within [0, 100]"},
	}
	for _, c := range checks {
		if !c.ok {
			return &ValidationError{Key: c.key, Err: fmt.Errorf("%w: %s", ErrInvalidSetting, c.msg)}
		}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
