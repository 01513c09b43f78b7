package settings

import (
	"sync"

	"github.com/teslashibe/go-posture/internal/log"
)

// Manager owns the live settings and notifies subscribers on change.
type Manager struct {
	updateMu sync.Mutex // serializes commit and notification
	mu       sync.RWMutex
	current  Settings
	onChange []func(Settings)
}

// NewManager wraps already-validated settings.
func NewManager(s Settings) *Manager {
	return &Manager{current: s}
}

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers fn to run after every successful update.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// Update applies fn to a copy of the settings, validates the result and
// swaps it in. On error the current settings are unchanged.
// Subscribers see updates in commit order and must not call Update.
func (m *Manager) Update(fn func(*Settings) error) error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	next := m.current
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = next
	subscribers := append([]func(Settings){}, m.onChange...)
	m.mu.Unlock()

	log.Info("settings updated",
		"buffer_size", next.ML.ScoreBufferSize,
		"window_s", next.ML.ScoreWindowSize,
		"poor_threshold", next.Runtime.PoorPostureThreshold)

	for _, sub := range subscribers {
		sub(next)
	}
	return nil
}

// Patch merges a partial JSON document into the settings.
func (m *Manager) Patch(doc []byte) error {
	return m.Update(func(s *Settings) error {
		return s.Merge(doc)
	})
}
