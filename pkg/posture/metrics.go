package posture

// Metrics is the result of scoring one frame.
type Metrics struct {
	PostureScore          float64 `json:"posture_score"`
	NeckAngle             float64 `json:"neck_angle"`
	SpineAngle            float64 `json:"spine_angle"`
	ShoulderVerticalDelta float64 `json:"shoulder_vertical_delta"`
	HeadTiltScore         float64 `json:"head_tilt_score"`
	NeckVerticalScore     float64 `json:"neck_vertical_score"`
	SpineAlignmentScore   float64 `json:"spine_alignment_score"`

	// SubScores holds all seven components in weight order.
	SubScores [NumSubScores]float64 `json:"sub_scores"`
}

// SubScore returns one component of the breakdown.
func (m Metrics) SubScore(s SubScore) float64 {
	return m.SubScores[s]
}

// Breakdown returns the sub-scores keyed by name.
func (m Metrics) Breakdown() map[string]float64 {
	out := make(map[string]float64, NumSubScores)
	for i, v := range m.SubScores {
		out[SubScore(i).String()] = v
	}
	return out
}
