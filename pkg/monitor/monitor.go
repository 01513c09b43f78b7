// Package monitor turns a stream of pose frames into smoothed posture
// scores, coaching text and alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
	"github.com/teslashibe/go-posture/pkg/score"
	"github.com/teslashibe/go-posture/pkg/settings"
)

// Config holds the frame-processing options.
type Config struct {
	Baseline       float64 // profile baseline for coaching
	ScoreThreshold float64 // average below this is flagged
	MinVisibility  float64 // 0 disables the visibility gate
	UseFrameTime   bool    // score recordings on their own timestamps
}

// Result is the outcome of scoring one frame. Score is 0 and Metrics nil
// when no person was detected.
type Result struct {
	Detected bool
	Score    float64
	Metrics  *posture.Metrics
}

// Snapshot is the published state after each frame.
type Snapshot struct {
	SessionID      string           `json:"session_id"`
	FrameID        string           `json:"frame_id,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Detected       bool             `json:"detected"`
	Score          float64          `json:"score"`
	Average        float64          `json:"average"`
	BelowThreshold bool             `json:"below_threshold"`
	Metrics        *posture.Metrics `json:"metrics,omitempty"`
	Coaching       string           `json:"coaching,omitempty"`
	Alert          *Alert           `json:"alert,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Stats summarizes a session.
type Stats struct {
	SessionID string  `json:"session_id"`
	Frames    int     `json:"frames"`
	Detected  int     `json:"detected"`
	Failed    int     `json:"failed"`
	Alerts    int     `json:"alerts"`
	MeanScore float64 `json:"mean_score"`
	Average   float64 `json:"average"`
}

// Monitor scores frames and tracks the rolling average.
type Monitor struct {
	engine  *posture.Engine
	buffer  *score.Buffer
	alerts  *AlertPolicy
	session string
	now     func() time.Time

	mu       sync.RWMutex
	cfg      Config
	latest   Snapshot
	stats    Stats
	scoreSum float64
	lastTS   time.Time // last frame timestamp seen in frame-time mode
	subs     []func(Snapshot)
}

// New creates a monitor from its parts.
func New(engine *posture.Engine, buffer *score.Buffer, alerts *AlertPolicy, cfg Config) *Monitor {
	session := uuid.NewString()
	return &Monitor{
		engine:  engine,
		buffer:  buffer,
		alerts:  alerts,
		session: session,
		now:     time.Now,
		cfg:     cfg,
		latest:  Snapshot{SessionID: session},
		stats:   Stats{SessionID: session},
	}
}

// NewFromSettings builds the engine, buffer and alert policy from s.
func NewFromSettings(s settings.Settings) (*Monitor, error) {
	engine, err := posture.NewEngine(s.PostureConfig())
	if err != nil {
		return nil, err
	}
	buffer, err := score.NewBuffer(s.ML.ScoreBufferSize, s.Window())
	if err != nil {
		return nil, err
	}
	return New(engine, buffer, NewAlertPolicy(alertConfig(s)), monitorConfig(s)), nil
}

// Apply reconfigures every component from s. The engine swaps its
// configuration atomically; the buffer resets only if its size changed.
func (m *Monitor) Apply(s settings.Settings) error {
	if err := m.engine.Reload(s.PostureConfig()); err != nil {
		return fmt.Errorf("monitor: reload engine: %w", err)
	}
	if err := m.buffer.Resize(s.ML.ScoreBufferSize); err != nil {
		return fmt.Errorf("monitor: resize buffer: %w", err)
	}
	m.buffer.SetWindow(s.Window())
	m.alerts.SetConfig(alertConfig(s))

	cfg := monitorConfig(s)
	m.mu.Lock()
	cfg.UseFrameTime = m.cfg.UseFrameTime
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func alertConfig(s settings.Settings) AlertConfig {
	return AlertConfig{
		Enabled:       s.Runtime.NotificationsEnabled,
		FocusMode:     s.Runtime.FocusModeEnabled,
		PoorThreshold: s.Runtime.PoorPostureThreshold,
		Cooldown:      s.Cooldown(),
		Message:       s.Runtime.DefaultPostureMessage,
	}
}

func monitorConfig(s settings.Settings) Config {
	return Config{
		Baseline:       s.Profile.BaselinePostureScore,
		ScoreThreshold: s.ML.ScoreThreshold,
		MinVisibility:  s.ML.MinVisibility,
	}
}

// SetUseFrameTime switches between wall-clock and frame timestamps.
func (m *Monitor) SetUseFrameTime(v bool) {
	m.mu.Lock()
	m.cfg.UseFrameTime = v
	m.mu.Unlock()
}

// Subscribe registers fn to receive every snapshot. fn runs on the
// processing goroutine and must not block.
func (m *Monitor) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// SessionID identifies this monitoring session.
func (m *Monitor) SessionID() string {
	return m.session
}

// Engine returns the scoring engine.
func (m *Monitor) Engine() *posture.Engine {
	return m.engine
}

// Process scores a single frame without touching session state.
func (m *Monitor) Process(f pose.Frame) Result {
	if !f.Detected() {
		return Result{}
	}

	m.mu.RLock()
	minVis := m.cfg.MinVisibility
	m.mu.RUnlock()
	if minVis > 0 && f.Landmarks.MinVisibility() < minVis {
		return Result{}
	}

	metrics := m.engine.Compute(f.Landmarks)
	return Result{Detected: true, Score: metrics.PostureScore, Metrics: &metrics}
}

// Observe processes a frame (or the error that replaced it), updates
// the rolling average and publishes a snapshot.
func (m *Monitor) Observe(f pose.Frame, frameErr error) Snapshot {
	var res Result
	if frameErr == nil {
		res = m.Process(f)
	}

	m.mu.Lock()
	cfg := m.cfg
	frameTS := f.Timestamp
	if cfg.UseFrameTime {
		if frameTS.IsZero() {
			frameTS = m.lastTS
		} else {
			m.lastTS = frameTS
		}
	}
	m.mu.Unlock()

	ts := m.now()
	var avg float64
	if cfg.UseFrameTime && !frameTS.IsZero() {
		ts = frameTS
		m.buffer.AddAt(ts, res.Score)
		avg = m.buffer.AverageAt(ts, 0)
	} else {
		m.buffer.Add(res.Score)
		avg = m.buffer.Average(0)
	}

	snap := Snapshot{
		SessionID:      m.session,
		FrameID:        f.ID,
		Timestamp:      ts,
		Detected:       res.Detected,
		Score:          res.Score,
		Average:        avg,
		BelowThreshold: avg < cfg.ScoreThreshold,
		Metrics:        res.Metrics,
	}
	if frameErr != nil {
		snap.Error = frameErr.Error()
	}
	if res.Detected {
		snap.Coaching = posture.Coach(avg, res.Metrics, cfg.Baseline)
	}
	if alert, ok := m.alerts.Evaluate(avg, ts); ok {
		snap.Alert = &alert
		log.Info("poor posture alert", "average", avg, "session", m.session)
	}

	m.mu.Lock()
	m.latest = snap
	m.stats.Frames++
	if res.Detected {
		m.stats.Detected++
	}
	if frameErr != nil {
		m.stats.Failed++
	}
	if snap.Alert != nil {
		m.stats.Alerts++
	}
	m.scoreSum += res.Score
	m.stats.MeanScore = m.scoreSum / float64(m.stats.Frames)
	m.stats.Average = avg
	subs := m.subs
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Run reads frames from src until it is exhausted or ctx is done.
// A frame that fails to decode counts as a zero-score frame.
func (m *Monitor) Run(ctx context.Context, src pose.Source) error {
	log.Info("monitor started", "session", m.session)
	defer log.Info("monitor stopped", "session", m.session)

	for {
		f, err := src.Next(ctx)
		switch {
		case err == nil:
			m.Observe(f, nil)
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Warn("frame failed", "error", err)
			m.Observe(pose.Frame{}, err)
		}
	}
}

// Latest returns the most recent snapshot.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Stats returns session totals.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Average returns the rolling average over window (0 for the default).
func (m *Monitor) Average(window time.Duration) float64 {
	return m.buffer.Average(window)
}
