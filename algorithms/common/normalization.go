package common

import (
	"gonum.org/v1/gonum/floats"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	// Peak scales so the largest absolute value is 1
	Peak NormalizationType = iota
	// MinMax maps the value range onto [0, 1]
	MinMax
)

// Normalizer provides signal normalization methods
type Normalizer struct {
	method NormalizationType
	// Epsilon is added to the divisor. Zero keeps silent input unchanged
	// (Peak) or maps constant input to zeros (MinMax).
	Epsilon float64
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// NewNormalizerWithEpsilon creates a normalizer that always divides by
// range+epsilon, so silent input never divides by zero
func NewNormalizerWithEpsilon(method NormalizationType, epsilon float64) *Normalizer {
	return &Normalizer{
		method:  method,
		Epsilon: epsilon,
	}
}

// Normalize normalizes signal using the configured method into a new slice
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case MinMax:
		return n.minMaxNormalize(signal)
	default:
		return n.peakNormalize(signal)
	}
}

// peakNormalize normalizes by peak absolute value
func (n *Normalizer) peakNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	copy(normalized, signal)
	if len(signal) == 0 {
		return normalized
	}

	peak := PeakAbs(signal) + n.Epsilon
	if peak < 1e-10 {
		return normalized
	}

	floats.Scale(1.0/peak, normalized)
	return normalized
}

// minMaxNormalize maps values onto [0, 1]
func (n *Normalizer) minMaxNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return []float64{}
	}

	if n.Epsilon == 0 {
		return MinMaxNormalize(signal)
	}

	lo := floats.Min(signal)
	hi := floats.Max(signal)
	span := hi - lo + n.Epsilon

	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = (val - lo) / span
	}
	return normalized
}

// IsSilent reports whether every sample is zero
func IsSilent(signal []float64) bool {
	return PeakAbs(signal) == 0
}
