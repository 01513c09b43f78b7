// Package posture turns a set of body landmarks into posture metrics.
//
// The engine reads seven of the 33 pose landmarks (nose, ears, shoulders,
// hips), derives seven normalized sub-scores from their geometry and
// combines them with configurable weights into a 0-100 posture score.
// Configuration is immutable once built and can be swapped atomically
// while frames are being scored.
package posture
