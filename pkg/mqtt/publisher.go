package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/monitor"
)

// PublisherConfig holds outgoing topic patterns.
type PublisherConfig struct {
	DeviceID   string
	ScoreTopic string // e.g. "posture/{device_id}/score"
	AlertTopic string // e.g. "posture/{device_id}/alert"
	Retain     bool   // retain score messages for late subscribers
}

// Publisher sends snapshots to the broker.
type Publisher struct {
	client     mqtt.Client
	scoreTopic string
	alertTopic string
	retain     bool
	in         chan monitor.Snapshot
}

// NewPublisher creates a publisher with a queue of size snapshots.
func NewPublisher(client mqtt.Client, cfg PublisherConfig, size int) *Publisher {
	return &Publisher{
		client:     client,
		scoreTopic: FormatTopic(cfg.ScoreTopic, cfg.DeviceID),
		alertTopic: FormatTopic(cfg.AlertTopic, cfg.DeviceID),
		retain:     cfg.Retain,
		in:         make(chan monitor.Snapshot, size),
	}
}

// Enqueue queues a snapshot without blocking. It is meant to be passed
// to Monitor.Subscribe.
func (p *Publisher) Enqueue(s monitor.Snapshot) {
	select {
	case p.in <- s:
	default:
		log.Debug("publish queue full, dropping snapshot")
	}
}

// Start publishes queued snapshots until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-p.in:
			if err := p.publish(snap); err != nil {
				log.Warn("publish failed", "error", err)
			}
		}
	}
}

func (p *Publisher) publish(snap monitor.Snapshot) error {
	payload, err := json.Marshal(scorePayloadFrom(snap))
	if err != nil {
		return fmt.Errorf("mqtt: marshal score: %w", err)
	}
	if err := p.send(p.scoreTopic, p.retain, payload); err != nil {
		return err
	}

	if snap.Alert == nil || p.alertTopic == "" {
		return nil
	}
	payload, err = json.Marshal(snap.Alert)
	if err != nil {
		return fmt.Errorf("mqtt: marshal alert: %w", err)
	}
	return p.send(p.alertTopic, false, payload)
}

func (p *Publisher) send(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, 1, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, token.Error())
	}
	return nil
}

// scorePayload is the compact score message.
type scorePayload struct {
	SessionID string             `json:"session_id"`
	Timestamp float64            `json:"timestamp"`
	Detected  bool               `json:"detected"`
	Score     float64            `json:"score"`
	Average   float64            `json:"average"`
	Poor      bool               `json:"poor"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Coaching  string             `json:"coaching,omitempty"`
}

func scorePayloadFrom(s monitor.Snapshot) scorePayload {
	p := scorePayload{
		SessionID: s.SessionID,
		Timestamp: float64(s.Timestamp.UnixNano()) / 1e9,
		Detected:  s.Detected,
		Score:     s.Score,
		Average:   s.Average,
		Poor:      s.BelowThreshold,
		Coaching:  s.Coaching,
	}
	if s.Metrics != nil {
		p.Breakdown = s.Metrics.Breakdown()
	}
	return p
}
