package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		envelope[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}

// ComputeCenteredRMS computes the RMS envelope with frames centered on
// multiples of hopSize. The signal is zero padded by frameSize/2 on each side,
// so there are 1 + len(signal)/hopSize frames and frame i describes the audio
// around sample i*hopSize. Short signals still produce at least one frame.
func (e *Envelope) ComputeCenteredRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	half := frameSize / 2
	padded := make([]float64, len(signal)+2*half)
	copy(padded[half:], signal)

	if len(padded) < frameSize {
		grown := make([]float64, frameSize)
		copy(grown, padded)
		padded = grown
	}

	return e.ComputeRMS(padded, frameSize, hopSize)
}
