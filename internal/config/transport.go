package config

import (
	"os"
	"time"
)

// Transport defaults.
const (
	DefaultBroker       = "tcp://localhost:1883"
	DefaultAPIAddr      = ":8090"
	DefaultLandmarkPath = "posture/{device_id}/landmarks"
	DefaultScorePath    = "posture/{device_id}/score"
	DefaultAlertPath    = "posture/{device_id}/alert"
	DefaultQueueSize    = 64
)

// Transport holds connection settings for the serve command.
type Transport struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	DeviceID      string
	LandmarkTopic string
	ScoreTopic    string
	AlertTopic    string
	RetainScore   bool // publish scores as retained messages
	QueueSize     int  // landmark and publish queue length
	APIAddr       string
	FrameTimeout  time.Duration
}

// TransportFromEnv reads MQTT_*, POSTURE_* and API_ADDR variables.
// A non-positive queue size falls back to the default.
func TransportFromEnv() Transport {
	host, _ := os.Hostname()
	if host == "" {
		host = "desk"
	}
	tr := Transport{
		Broker:        Env("MQTT_BROKER", DefaultBroker),
		ClientID:      Env("MQTT_CLIENT_ID", "go-posture-"+host),
		Username:      Env("MQTT_USERNAME", ""),
		Password:      Env("MQTT_PASSWORD", ""),
		DeviceID:      Env("POSTURE_DEVICE_ID", host),
		LandmarkTopic: Env("MQTT_LANDMARK_TOPIC", DefaultLandmarkPath),
		ScoreTopic:    Env("MQTT_SCORE_TOPIC", DefaultScorePath),
		AlertTopic:    Env("MQTT_ALERT_TOPIC", DefaultAlertPath),
		RetainScore:   EnvBool("MQTT_RETAIN_SCORE", false),
		QueueSize:     EnvInt("POSTURE_QUEUE_SIZE", DefaultQueueSize),
		APIAddr:       Env("API_ADDR", DefaultAPIAddr),
		FrameTimeout:  EnvDuration("POSTURE_FRAME_TIMEOUT", 2*time.Second),
	}
	if tr.QueueSize <= 0 {
		tr.QueueSize = DefaultQueueSize
	}
	return tr
}
