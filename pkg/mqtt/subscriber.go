package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/pose"
)

// deliverTimeout bounds how long a handler waits on a full channel.
const deliverTimeout = time.Second

// Subscriber turns landmark messages into frame deliveries.
type Subscriber struct {
	client mqtt.Client
	topic  string
	out    chan pose.Delivery
}

// NewSubscriber creates a subscriber for topic, buffering up to size frames.
func NewSubscriber(client mqtt.Client, topic string, size int) *Subscriber {
	return &Subscriber{
		client: client,
		topic:  topic,
		out:    make(chan pose.Delivery, size),
	}
}

// Subscribe starts receiving frames.
func (s *Subscriber) Subscribe() error {
	token := s.client.Subscribe(s.topic, 0, s.handleLandmarks)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", s.topic, token.Error())
	}
	log.Info("subscribed to landmarks", "topic", s.topic)
	return nil
}

// Source returns the deliveries as a pose source. Closing it unsubscribes.
func (s *Subscriber) Source() *pose.ChanSource {
	return pose.NewChanSource(s.out, s.unsubscribe)
}

func (s *Subscriber) unsubscribe() error {
	token := s.client.Unsubscribe(s.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: unsubscribe %s: %w", s.topic, token.Error())
	}
	return nil
}

// handleLandmarks decodes one message. Undecodable payloads are forwarded
// as frame errors so the monitor can count them.
func (s *Subscriber) handleLandmarks(_ mqtt.Client, msg mqtt.Message) {
	frame, err := pose.Decode(msg.Payload())
	if err != nil {
		log.Warn("bad landmark frame", "topic", msg.Topic(), "error", err)
	}
	if err == nil && frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}

	select {
	case s.out <- pose.Delivery{Frame: frame, Err: err}:
	case <-time.After(deliverTimeout):
		log.Warn("landmark channel full, dropping frame", "device", DeviceFromTopic(msg.Topic()))
	}
}
