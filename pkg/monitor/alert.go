package monitor

import (
	"sync"
	"time"
)

// AlertConfig controls when poor posture raises an alert.
type AlertConfig struct {
	Enabled       bool
	FocusMode     bool
	PoorThreshold float64
	Cooldown      time.Duration
	Message       string
}

// DefaultAlertConfig matches the stock runtime settings.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Enabled:       true,
		PoorThreshold: 60,
		Cooldown:      300 * time.Second,
		Message:       "Please sit up straight!",
	}
}

// Alert is raised when the smoothed score stays poor.
type Alert struct {
	Score   float64   `json:"score"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// AlertPolicy decides when to alert. Safe for concurrent use.
type AlertPolicy struct {
	mu   sync.Mutex
	cfg  AlertConfig
	last time.Time
}

// NewAlertPolicy creates a policy.
func NewAlertPolicy(cfg AlertConfig) *AlertPolicy {
	return &AlertPolicy{cfg: cfg}
}

// SetConfig replaces the policy configuration, keeping the cooldown clock.
func (p *AlertPolicy) SetConfig(cfg AlertConfig) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

// Config returns the current configuration.
func (p *AlertPolicy) Config() AlertConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Evaluate returns an alert when score is below the poor threshold,
// alerts are enabled, focus mode is off and more than the cooldown has
// passed since the last alert.
func (p *AlertPolicy) Evaluate(score float64, now time.Time) (Alert, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.Enabled || p.cfg.FocusMode {
		return Alert{}, false
	}
	if score >= p.cfg.PoorThreshold {
		return Alert{}, false
	}
	if !p.last.IsZero() && now.Sub(p.last) <= p.cfg.Cooldown {
		return Alert{}, false
	}

	p.last = now
	return Alert{Score: score, Message: p.cfg.Message, At: now}, true
}
