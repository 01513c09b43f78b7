package settings

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-posture/pkg/posture"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("Defaults invalid: %v", err)
	}
	if s.PostureConfig() != posture.DefaultConfig() {
		t.Errorf("Unexpected posture config: %+v", s.PostureConfig())
	}
	if s.Window() != 5*time.Second || s.Cooldown() != 300*time.Second {
		t.Errorf("Unexpected window=%v cooldown=%v", s.Window(), s.Cooldown())
	}
	if s.ML.ScoreBufferSize != 1000 || s.ML.ScoreThreshold != 65 || s.Runtime.PoorPostureThreshold != 60 {
		t.Errorf("Unexpected defaults: %+v", s)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Errorf("Expected defaults, got %+v", s)
	}
}

func TestLoad_FileMerge(t *testing.T) {
	path := writeFile(t, `{
		"ml": {
			"posture_weights": "[0.3, 0.2, 0.1, 0.1, 0.1, 0.1, 0.1]",
			"score_window_size": 2.5
		},
		"runtime": {"focus_mode_enabled": true}
	}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ML.PostureWeights[0] != 0.3 {
		t.Errorf("Expected weight 0.3 from JSON string, got %v", s.ML.PostureWeights)
	}
	if s.Window() != 2500*time.Millisecond {
		t.Errorf("Expected 2.5s window, got %v", s.Window())
	}
	if !s.Runtime.FocusModeEnabled || !s.Runtime.NotificationsEnabled {
		t.Errorf("Expected merged runtime flags, got %+v", s.Runtime)
	}
	if s.ML.PostureThresholds != posture.DefaultThresholds() {
		t.Errorf("Expected default thresholds kept, got %+v", s.ML.PostureThresholds)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"ml": `},
		{"unknown field", `{"ml": {"score_buffer": 10}}`},
		{"bad weights", `{"ml": {"posture_weights": [0.5, 0.5]}}`},
		{"thresholds list", `{"ml": {"posture_thresholds": [1, 2, 3, 4, 5]}}`},
		{"zero buffer", `{"ml": {"score_buffer_size": 0}}`},
		{"threshold range", `{"runtime": {"poor_posture_threshold": 140}}`},
		{"trailing garbage", `{"ml": {}} garbage`},
		{"second document", `{"ml": {}} {"runtime": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.doc)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTURE_ML_POSTURE_THRESHOLDS", `{"head_tilt": 2, "neck_angle": 30, "shoulder_level": 5, "shoulder_roll": 2, "spine_angle": 40}`)
	t.Setenv("POSTURE_ML_SCORE_BUFFER_SIZE", "50")
	t.Setenv("POSTURE_RUNTIME_NOTIFICATIONS_ENABLED", "off")
	t.Setenv("POSTURE_PROFILE_BASELINE_POSTURE_SCORE", "82.5")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ML.PostureThresholds.NeckAngle != 30 || s.ML.PostureThresholds.HeadTilt != 2 {
		t.Errorf("Thresholds override not applied: %+v", s.ML.PostureThresholds)
	}
	if s.ML.ScoreBufferSize != 50 {
		t.Errorf("Buffer override not applied: %d", s.ML.ScoreBufferSize)
	}
	if s.Runtime.NotificationsEnabled {
		t.Error("Expected notifications disabled")
	}
	if s.Profile.BaselinePostureScore != 82.5 {
		t.Errorf("Baseline override not applied: %v", s.Profile.BaselinePostureScore)
	}
}

func TestLoad_EnvOverrideErrors(t *testing.T) {
	tests := []struct {
		key, value string
		configErr  bool
	}{
		{"POSTURE_ML_POSTURE_WEIGHTS", "[1, 2, 3]", true},
		{"POSTURE_ML_POSTURE_THRESHOLDS", "not json", true},
		{"POSTURE_ML_SCORE_BUFFER_SIZE", "many", false},
		{"POSTURE_RUNTIME_FOCUS_MODE_ENABLED", "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")

			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Key != tt.key {
				t.Fatalf("Expected ValidationError for %s, got %v", tt.key, err)
			}
			if got := errors.Is(err, posture.ErrInvalidConfig); got != tt.configErr {
				t.Errorf("errors.Is(ErrInvalidConfig) = %v, want %v", got, tt.configErr)
			}
			if !tt.configErr && !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("Expected ErrInvalidSetting, got %v", err)
			}
		})
	}
}

func TestEnvKeys(t *testing.T) {
	keys := EnvKeys()
	want := map[string]bool{
		"POSTURE_ML_POSTURE_WEIGHTS":            true,
		"POSTURE_RUNTIME_NOTIFICATION_COOLDOWN": true,
	}
	for _, k := range keys {
		delete(want, k)
	}
	if len(want) != 0 {
		t.Errorf("Missing env keys: %v", want)
	}
}

func TestManager_UpdateNotifies(t *testing.T) {
	m := NewManager(Defaults())

	var calls atomic.Int32
	var seen Settings
	m.OnChange(func(s Settings) {
		calls.Add(1)
		seen = s
	})

	err := m.Update(func(s *Settings) error {
		s.ML.ScoreThreshold = 70
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if calls.Load() != 1 || seen.ML.ScoreThreshold != 70 {
		t.Errorf("Expected one notification with new value, got calls=%d seen=%v", calls.Load(), seen.ML.ScoreThreshold)
	}
	if m.Get().ML.ScoreThreshold != 70 {
		t.Error("Expected Get to return updated settings")
	}
}

func TestManager_ConcurrentUpdatesNotifyInOrder(t *testing.T) {
	m := NewManager(Defaults())

	started := make(chan struct{})
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		calls   int
		applied float64
	)
	m.OnChange(func(s Settings) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		mu.Lock()
		applied = s.ML.ScoreThreshold
		mu.Unlock()
	})

	update := func(v float64) error {
		return m.Update(func(s *Settings) error {
			s.ML.ScoreThreshold = v
			return nil
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := update(10); err != nil {
			t.Errorf("Update(10): %v", err)
		}
	}()
	<-started
	go func() {
		defer wg.Done()
		if err := update(20); err != nil {
			t.Errorf("Update(20): %v", err)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got := m.Get().ML.ScoreThreshold; got != 20 || applied != 20 {
		t.Errorf("current=%v applied=%v, want both 20", got, applied)
	}
}

func TestManager_InvalidUpdateKeepsCurrent(t *testing.T) {
	m := NewManager(Defaults())
	notified := false
	m.OnChange(func(Settings) { notified = true })

	err := m.Update(func(s *Settings) error {
		s.ML.PostureThresholds.SpineAngle = -1
		return nil
	})
	if !errors.Is(err, posture.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if notified {
		t.Error("Expected no notification on failed update")
	}
	if m.Get() != Defaults() {
		t.Error("Expected settings unchanged")
	}
}

func TestManager_Patch(t *testing.T) {
	m := NewManager(Defaults())

	if err := m.Patch([]byte(`{"ml": {"score_threshold": 50}} }`)); err == nil {
		t.Error("Expected trailing data to be rejected")
	}
	if m.Get() != Defaults() {
		t.Error("Expected settings unchanged after rejected patch")
	}

	if err := m.Patch([]byte(`{"ml": {"posture_weights": [1, 0, 0, 0, 0, 0, 0]}}`)); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if m.Get().ML.PostureWeights != (posture.Weights{1, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("Unexpected weights: %v", m.Get().ML.PostureWeights)
	}

	err := m.Patch([]byte(`{"ml": {"posture_thresholds": {"neck_angle": 30}}}`))
	if !errors.Is(err, posture.ErrInvalidConfig) {
		t.Errorf("Expected partial thresholds to be rejected, got %v", err)
	}
	if m.Get().ML.PostureThresholds != posture.DefaultThresholds() {
		t.Error("Expected thresholds unchanged after rejected patch")
	}
}
