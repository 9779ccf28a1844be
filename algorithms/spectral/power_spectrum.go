package spectral

import (
	"math"
)

// DefaultAmin is the smallest power considered when converting to decibels
const DefaultAmin = 1e-10

// PowerSpectrum provides power spectral density computation
type PowerSpectrum struct{}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// Compute computes power spectral density from magnitude spectrum
func (ps *PowerSpectrum) Compute(magnitudeSpectrum []float64) []float64 {
	if len(magnitudeSpectrum) == 0 {
		return []float64{}
	}

	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}

	return power
}

// ComputeFromSTFT computes the power spectrogram of an STFT result
func (ps *PowerSpectrum) ComputeFromSTFT(stftResult *STFTResult) [][]float64 {
	power := make([][]float64, stftResult.TimeFrames)

	for t := 0; t < stftResult.TimeFrames; t++ {
		power[t] = ps.Compute(stftResult.Magnitude[t])
	}

	return power
}

// PowerToDB converts a power matrix to decibels relative to its own maximum:
// 10*log10(max(amin, p)) - 10*log10(max(amin, max(p))). When topDB > 0 the
// result is clipped to no lower than -topDB. The input is left untouched.
func (ps *PowerSpectrum) PowerToDB(power [][]float64, amin, topDB float64) [][]float64 {
	if amin <= 0 {
		amin = DefaultAmin
	}

	ref := 0.0
	for _, row := range power {
		for _, v := range row {
			ref = math.Max(ref, v)
		}
	}
	refDB := 10 * math.Log10(math.Max(amin, ref))

	db := make([][]float64, len(power))
	for t, row := range power {
		db[t] = make([]float64, len(row))
		for f, v := range row {
			value := 10*math.Log10(math.Max(amin, v)) - refDB
			if topDB > 0 && value < -topDB {
				value = -topDB
			}
			db[t][f] = value
		}
	}

	return db
}
