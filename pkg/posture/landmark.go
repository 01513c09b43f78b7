package posture

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// LandmarkID indexes the 33-point body pose model.
type LandmarkID int

// Pose landmark indices.
const (
	Nose LandmarkID = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// NumLandmarks is the number of points in a full pose.
	NumLandmarks = iota
)

var landmarkNames = [NumLandmarks]string{
	"NOSE", "LEFT_EYE_INNER", "LEFT_EYE", "LEFT_EYE_OUTER",
	"RIGHT_EYE_INNER", "RIGHT_EYE", "RIGHT_EYE_OUTER",
	"LEFT_EAR", "RIGHT_EAR", "MOUTH_LEFT", "MOUTH_RIGHT",
	"LEFT_SHOULDER", "RIGHT_SHOULDER", "LEFT_ELBOW", "RIGHT_ELBOW",
	"LEFT_WRIST", "RIGHT_WRIST", "LEFT_PINKY", "RIGHT_PINKY",
	"LEFT_INDEX", "RIGHT_INDEX", "LEFT_THUMB", "RIGHT_THUMB",
	"LEFT_HIP", "RIGHT_HIP", "LEFT_KNEE", "RIGHT_KNEE",
	"LEFT_ANKLE", "RIGHT_ANKLE", "LEFT_HEEL", "RIGHT_HEEL",
	"LEFT_FOOT_INDEX", "RIGHT_FOOT_INDEX",
}

// ScoredLandmarks are the points the engine reads.
var ScoredLandmarks = []LandmarkID{
	Nose, LeftEar, RightEar, LeftShoulder, RightShoulder, LeftHip, RightHip,
}

func (id LandmarkID) String() string {
	if id < 0 || int(id) >= NumLandmarks {
		return fmt.Sprintf("LANDMARK_%d", int(id))
	}
	return landmarkNames[id]
}

// Valid reports whether id is one of the 33 pose points.
func (id LandmarkID) Valid() bool {
	return id >= 0 && int(id) < NumLandmarks
}

// ParseLandmarkID looks up a landmark by its upper-snake name (case-insensitive).
func ParseLandmarkID(name string) (LandmarkID, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range landmarkNames {
		if n == upper {
			return LandmarkID(i), nil
		}
	}
	return 0, fmt.Errorf("posture: unknown landmark %q", name)
}

// Landmark is one detected body point.
// X and Y are normalized image coordinates, Z is relative depth.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Vec returns the landmark position.
func (l Landmark) Vec() r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y, Z: l.Z}
}

// Finite reports whether all coordinates are finite numbers.
func (l Landmark) Finite() bool {
	for _, v := range [...]float64{l.X, l.Y, l.Z, l.Visibility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LandmarkSet is a full pose for one frame.
type LandmarkSet [NumLandmarks]Landmark

// At returns the landmark for id, or a zero landmark when id is out of range.
func (s *LandmarkSet) At(id LandmarkID) Landmark {
	if !id.Valid() {
		return Landmark{}
	}
	return s[id]
}

// MinVisibility returns the lowest visibility among ids.
// With no ids it covers ScoredLandmarks.
func (s *LandmarkSet) MinVisibility(ids ...LandmarkID) float64 {
	if len(ids) == 0 {
		ids = ScoredLandmarks
	}
	lowest := math.Inf(1)
	for _, id := range ids {
		lowest = math.Min(lowest, s.At(id).Visibility)
	}
	return lowest
}
