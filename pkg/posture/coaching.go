package posture

import (
	"math"
	"strings"
)

// Coaching thresholds.
const (
	praiseFloor      = 70.0
	baselineMargin   = 5.0
	neckCueAngle     = 15.0
	shoulderCueDelta = 0.05
	spineCueAngle    = 10.0
	maxCoachingCues  = 2
	DefaultBaseline  = 75.0
)

// Coaching messages.
const (
	PraiseMessage = "Nice alignment! Keep a relaxed breath and soft shoulders."
	NeckCue       = "Gently draw your head back over your shoulders."
	ShoulderCue   = "Level your shoulders to center your posture."
	SpineCue      = "Lengthen through your spine and sit tall."
	ResetCue      = "Reset by rolling your shoulders back and opening your chest."
)

// Coach returns a short tip for the given score. metrics may be nil when
// only a score is known.
func Coach(score float64, metrics *Metrics, baseline float64) string {
	if score >= math.Max(baseline-baselineMargin, praiseFloor) {
		return PraiseMessage
	}

	var cues []string
	if metrics != nil {
		if metrics.NeckAngle > neckCueAngle {
			cues = append(cues, NeckCue)
		}
		if metrics.ShoulderVerticalDelta > shoulderCueDelta {
			cues = append(cues, ShoulderCue)
		}
		if metrics.SpineAngle > spineCueAngle {
			cues = append(cues, SpineCue)
		}
	}
	if len(cues) == 0 {
		return ResetCue
	}
	if len(cues) > maxCoachingCues {
		cues = cues[:maxCoachingCues]
	}
	return strings.Join(cues, " ")
}
