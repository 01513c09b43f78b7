// Package pose defines the landmark frame wire format produced by an
// external pose estimator and the sources that deliver frames.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-posture/pkg/posture"
)

// Sentinel errors.
var (
	ErrTooFewLandmarks = errors.New("pose: too few landmarks")
	ErrInvalidLandmark = errors.New("pose: invalid landmark")
	ErrMalformedFrame  = errors.New("pose: malformed frame")
)

// Point is one landmark on the wire.
type Point struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Message is the JSON document for one frame.
type Message struct {
	ID        string  `json:"id,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"` // unix seconds
	Landmarks []Point `json:"landmarks"`
}

// Frame is one decoded pose result. Landmarks is nil when no person
// was detected.
type Frame struct {
	ID        string
	Timestamp time.Time
	Landmarks *posture.LandmarkSet
}

// Detected reports whether the frame carries a pose.
func (f Frame) Detected() bool {
	return f.Landmarks != nil
}

// Decode parses a frame message.
func Decode(data []byte) (Frame, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return msg.Frame()
}

// Frame converts the message into a Frame.
func (m Message) Frame() (Frame, error) {
	f := Frame{ID: m.ID}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if m.Timestamp > 0 {
		sec, frac := math.Modf(m.Timestamp)
		f.Timestamp = time.Unix(int64(sec), int64(frac*1e9))
	}

	if len(m.Landmarks) == 0 {
		return f, nil
	}
	if len(m.Landmarks) < posture.NumLandmarks {
		return Frame{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewLandmarks, len(m.Landmarks), posture.NumLandmarks)
	}

	var set posture.LandmarkSet
	for i := range set {
		p := m.Landmarks[i]
		lm := posture.Landmark{X: p.X, Y: p.Y, Z: p.Z, Visibility: 1}
		if p.Visibility != nil {
			lm.Visibility = *p.Visibility
		}
		if !lm.Finite() {
			return Frame{}, fmt.Errorf("%w: %s", ErrInvalidLandmark, posture.LandmarkID(i))
		}
		set[i] = lm
	}
	f.Landmarks = &set
	return f, nil
}

// Encode builds the wire message for a frame.
func Encode(f Frame) Message {
	msg := Message{ID: f.ID}
	if !f.Timestamp.IsZero() {
		msg.Timestamp = float64(f.Timestamp.UnixNano()) / 1e9
	}
	if f.Landmarks == nil {
		return msg
	}
	msg.Landmarks = make([]Point, posture.NumLandmarks)
	for i, lm := range f.Landmarks {
		v := lm.Visibility
		msg.Landmarks[i] = Point{X: lm.X, Y: lm.Y, Z: lm.Z, Visibility: &v}
	}
	return msg
}
