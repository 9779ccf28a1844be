package analysis

import (
	"errors"
)

var (
	// ErrDecode means the input bytes could not be decoded as audio
	ErrDecode = errors.New("audio decode failed")

	// ErrEmptySignal means the decoded audio has no samples or is entirely
	// zero. Callers treat it as a recording with no events.
	ErrEmptySignal = errors.New("empty signal")
)

// Interval is a half-open [Start, End) range of sample indices
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples in the interval
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// Seconds converts the interval bounds to seconds
func (iv Interval) Seconds(sampleRate int) (start, end float64) {
	sr := float64(sampleRate)
	return float64(iv.Start) / sr, float64(iv.End) / sr
}

// Duration returns the interval length in seconds
func (iv Interval) Duration(sampleRate int) float64 {
	return float64(iv.Len()) / float64(sampleRate)
}
