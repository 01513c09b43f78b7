package monitor

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
	"github.com/teslashibe/go-posture/pkg/settings"
)

func uprightSet() *posture.LandmarkSet {
	var s posture.LandmarkSet
	for i := range s {
		s[i] = posture.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	s[posture.Nose] = posture.Landmark{X: 0.5, Y: 0.3, Visibility: 1}
	s[posture.LeftEar] = posture.Landmark{X: 0.45, Y: 0.3, Visibility: 1}
	s[posture.RightEar] = posture.Landmark{X: 0.55, Y: 0.3, Visibility: 1}
	s[posture.LeftShoulder] = posture.Landmark{X: 0.45, Y: 0.5, Visibility: 1}
	s[posture.RightShoulder] = posture.Landmark{X: 0.55, Y: 0.5, Visibility: 1}
	s[posture.LeftHip] = posture.Landmark{X: 0.45, Y: 0.7, Visibility: 1}
	s[posture.RightHip] = posture.Landmark{X: 0.55, Y: 0.7, Visibility: 1}
	return &s
}

func slouchedSet() *posture.LandmarkSet {
	var s posture.LandmarkSet
	for i := range s {
		s[i] = posture.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	s[posture.Nose] = posture.Landmark{X: 0.7, Y: 0.3, Z: 0.3, Visibility: 1}
	s[posture.LeftShoulder] = posture.Landmark{X: 0.45, Y: 0.5, Z: 0.1, Visibility: 1}
	s[posture.LeftHip] = posture.Landmark{X: 0.5, Y: 0.7, Z: 0.1, Visibility: 1}
	return &s
}

// sliceSource replays a fixed list of deliveries.
type sliceSource struct {
	items []pose.Delivery
}

func (s *sliceSource) Next(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}
	if len(s.items) == 0 {
		return pose.Frame{}, io.EOF
	}
	d := s.items[0]
	s.items = s.items[1:]
	return d.Frame, d.Err
}

func (s *sliceSource) Close() error { return nil }

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := NewFromSettings(settings.Defaults())
	if err != nil {
		t.Fatalf("NewFromSettings: %v", err)
	}
	return m
}

func TestProcess_NoDetection(t *testing.T) {
	m := newTestMonitor(t)
	res := m.Process(pose.Frame{})
	if res.Detected || res.Score != 0 || res.Metrics != nil {
		t.Errorf("Expected empty result, got %+v", res)
	}
}

func TestProcess_Detected(t *testing.T) {
	m := newTestMonitor(t)
	res := m.Process(pose.Frame{Landmarks: uprightSet()})
	if !res.Detected || res.Score <= 90 || res.Metrics == nil {
		t.Errorf("Expected high score detection, got %+v", res)
	}
}

func TestProcess_VisibilityGate(t *testing.T) {
	s := settings.Defaults()
	s.ML.MinVisibility = 0.5
	m, err := NewFromSettings(s)
	if err != nil {
		t.Fatal(err)
	}

	set := uprightSet()
	set[posture.LeftHip].Visibility = 0.2
	if res := m.Process(pose.Frame{Landmarks: set}); res.Detected {
		t.Error("Expected low-visibility hip to count as no detection")
	}
	set[posture.LeftWrist].Visibility = 0
	set[posture.LeftHip].Visibility = 0.9
	if res := m.Process(pose.Frame{Landmarks: set}); !res.Detected {
		t.Error("Expected unscored landmark visibility to be ignored")
	}
}

func TestRun_FailuresBecomeZeroFrames(t *testing.T) {
	m := newTestMonitor(t)
	src := &sliceSource{items: []pose.Delivery{
		{Frame: pose.Frame{ID: "a", Landmarks: uprightSet()}},
		{Err: pose.ErrMalformedFrame},
		{Frame: pose.Frame{ID: "c"}},
		{Frame: pose.Frame{ID: "d", Landmarks: uprightSet()}},
	}}

	var snaps []Snapshot
	m.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	if err := m.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snaps) != 4 {
		t.Fatalf("Expected 4 snapshots, got %d", len(snaps))
	}
	if snaps[1].Error == "" || snaps[1].Score != 0 || snaps[1].Detected {
		t.Errorf("Expected failed frame to score 0 with error, got %+v", snaps[1])
	}
	if snaps[2].Detected || snaps[2].Coaching != "" {
		t.Errorf("Expected empty frame without coaching, got %+v", snaps[2])
	}

	up := snaps[0].Score
	wantAvg := (2 * up) / 4
	if math.Abs(snaps[3].Average-wantAvg) > 1e-9 {
		t.Errorf("Expected average %v, got %v", wantAvg, snaps[3].Average)
	}

	st := m.Stats()
	if st.Frames != 4 || st.Detected != 2 || st.Failed != 1 {
		t.Errorf("Unexpected stats: %+v", st)
	}
	if m.Latest().FrameID != "d" {
		t.Errorf("Expected latest frame d, got %q", m.Latest().FrameID)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	m := newTestMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx, &sliceSource{items: []pose.Delivery{{}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestObserve_AlertAndCoaching(t *testing.T) {
	m := newTestMonitor(t)

	snap := m.Observe(pose.Frame{Landmarks: slouchedSet()}, nil)
	if snap.Alert == nil {
		t.Fatal("Expected alert for slouched posture")
	}
	if !snap.BelowThreshold {
		t.Error("Expected average below score threshold")
	}
	if snap.Coaching != posture.NeckCue+" "+posture.SpineCue {
		t.Errorf("Unexpected coaching %q", snap.Coaching)
	}

	snap = m.Observe(pose.Frame{Landmarks: slouchedSet()}, nil)
	if snap.Alert != nil {
		t.Error("Expected cooldown to suppress second alert")
	}
	if m.Stats().Alerts != 1 {
		t.Errorf("Expected 1 alert, got %d", m.Stats().Alerts)
	}
}

func TestObserve_FrameTime(t *testing.T) {
	m := newTestMonitor(t)
	m.SetUseFrameTime(true)

	t0 := time.Unix(1000, 0)
	m.Observe(pose.Frame{Timestamp: t0}, nil)
	snap := m.Observe(pose.Frame{Timestamp: t0.Add(10 * time.Second), Landmarks: uprightSet()}, nil)

	// The empty frame is outside the 5s window measured on frame time.
	if math.Abs(snap.Average-snap.Score) > 1e-9 {
		t.Errorf("Expected average %v, got %v", snap.Score, snap.Average)
	}
	if !snap.Timestamp.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("Expected frame timestamp, got %v", snap.Timestamp)
	}
}

func TestApply_Reconfigures(t *testing.T) {
	m := newTestMonitor(t)
	m.Observe(pose.Frame{Landmarks: uprightSet()}, nil)

	s := settings.Defaults()
	s.ML.PostureWeights = posture.Weights{1, 0, 0, 0, 0, 0, 0}
	s.ML.ScoreBufferSize = 10
	s.Runtime.NotificationsEnabled = false
	if err := m.Apply(s); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if m.Average(0) != 0 {
		t.Error("Expected buffer reset after resize")
	}
	snap := m.Observe(pose.Frame{Landmarks: slouchedSet()}, nil)
	// Head tilt alone: 1 - 0.3*1.2 = 0.64.
	if math.Abs(snap.Score-64) > 1e-9 {
		t.Errorf("Expected score 64 under new weights, got %v", snap.Score)
	}
	if snap.Alert != nil {
		t.Error("Expected alerts disabled")
	}
}
