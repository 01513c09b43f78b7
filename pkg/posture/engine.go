package posture

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// headWidthRatio is the expected ear distance relative to shoulder width
// when the head faces the camera.
const headWidthRatio = 0.7

// sideTiltScale converts the vertical ear offset into a penalty.
const sideTiltScale = 5.0

// Engine scores landmark sets. It is safe for concurrent use.
type Engine struct {
	cfg atomic.Pointer[Config]
}

// NewEngine creates an engine with a validated configuration.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{}
	if err := e.Reload(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload validates cfg and makes it the active configuration.
// In-flight Compute calls finish with the previous configuration.
func (e *Engine) Reload(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg.Store(&cfg)
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return *e.cfg.Load()
}

// Compute scores one pose.
func (e *Engine) Compute(set *LandmarkSet) Metrics {
	cfg := e.cfg.Load()
	th := cfg.Thresholds

	nose := set.At(Nose).Vec()
	leftEar := set.At(LeftEar).Vec()
	rightEar := set.At(RightEar).Vec()
	leftShoulder := set.At(LeftShoulder).Vec()
	rightShoulder := set.At(RightShoulder).Vec()
	leftHip := set.At(LeftHip).Vec()
	rightHip := set.At(RightHip).Vec()

	midEar := Midpoint(leftEar, rightEar)
	midShoulder := Midpoint(leftShoulder, rightShoulder)
	midHip := Midpoint(leftHip, rightHip)

	var sub [NumSubScores]float64

	sub[HeadTilt] = clip(1.0-math.Abs(nose.Z-midEar.Z)*th.HeadTilt, 0, 1)

	neckAngle := AngleBetween(r3.Sub(midEar, midShoulder), Vertical)
	sub[NeckVertical] = clip(1.0-math.Abs(neckAngle)/th.NeckAngle, 0, 1)

	shoulderDiff := r3.Sub(leftShoulder, rightShoulder)
	sub[ShoulderLevel] = clip(1.0-math.Abs(shoulderDiff.Y)*th.ShoulderLevel, 0, 1)
	sub[ShoulderRoll] = clip(1.0-math.Abs(shoulderDiff.Z)*th.ShoulderRoll, 0, 1)

	spineAngle := AngleBetween(r3.Sub(midShoulder, midHip), Vertical)
	sub[SpineAlignment] = clip(1.0-math.Abs(spineAngle)/th.SpineAngle, 0, 1)

	earDist := r3.Norm(r3.Sub(leftEar, rightEar))
	expected := headWidthRatio * r3.Norm(shoulderDiff)
	sub[HeadRotation] = clip(1.0-math.Abs(earDist-expected)/(expected+Epsilon), 0, 1)

	sub[HeadSideTilt] = clip(1.0-math.Abs(leftEar.Y-rightEar.Y)*sideTiltScale, 0, 1)

	var weighted float64
	for i, w := range cfg.Weights {
		weighted += sub[i] * w
	}

	return Metrics{
		PostureScore:          clip(weighted*100.0, 0, 100),
		NeckAngle:             neckAngle,
		SpineAngle:            spineAngle,
		ShoulderVerticalDelta: math.Abs(shoulderDiff.Y),
		HeadTiltScore:         sub[HeadTilt],
		NeckVerticalScore:     sub[NeckVertical],
		SpineAlignmentScore:   sub[SpineAlignment],
		SubScores:             sub,
	}
}
