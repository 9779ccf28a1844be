package spectral

import (
	"math"
)

// Slaney mel scale constants: linear below 1 kHz, logarithmic above
const (
	slaneyLinearStep = 200.0 / 3.0
	slaneyMinLogHz   = 1000.0
	slaneyMinLogMel  = slaneyMinLogHz / slaneyLinearStep
)

var slaneyLogStep = math.Log(6.4) / 27.0

// MelScale provides mel frequency conversion and filter bank construction.
//
// The scale is Slaney's (Auditory Toolbox) with area-normalized triangles,
// which is what the spectrogram images fed to the song classifier were
// produced with.
type MelScale struct{}

// NewMelScale creates a Slaney-style mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	if hz < slaneyMinLogHz {
		return hz / slaneyLinearStep
	}
	return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	if mel < slaneyMinLogMel {
		return mel * slaneyLinearStep
	}
	return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
}

// CreateMelFilterBank creates a numFilters x (fftSize/2+1) filter bank of
// triangular filters spaced evenly on the mel axis between lowFreq and
// highFreq. Each triangle is scaled by 2/(f_right-f_left) so every band has
// roughly constant energy.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	if highFreq <= 0 || highFreq > float64(sampleRate)/2 {
		highFreq = float64(sampleRate) / 2
	}

	numBins := fftSize/2 + 1
	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// Edges of numFilters triangles: numFilters+2 points
	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)
	melEdges := make([]float64, numFilters+2)
	step := (highMel - lowMel) / float64(numFilters+1)
	for i := range melEdges {
		melEdges[i] = ms.MelToHz(lowMel + float64(i)*step)
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		left, center, right := melEdges[m], melEdges[m+1], melEdges[m+2]
		lowerWidth := center - left
		upperWidth := right - center
		norm := 2.0 / (right - left)

		filter := make([]float64, numBins)
		for k, f := range fftFreqs {
			lower := (f - left) / lowerWidth
			upper := (right - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			filter[k] = w * norm
		}
		filterBank[m] = filter
	}

	return filterBank
}

// ApplyFilterBank applies mel filter bank to power spectrum
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	if len(filterBank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// MelSpectrogram projects a time x frequency power spectrogram onto the filter
// bank, returning a time x band matrix.
func (ms *MelScale) MelSpectrogram(power [][]float64, filterBank [][]float64) [][]float64 {
	melSpectrogram := make([][]float64, len(power))
	for t, frame := range power {
		melSpectrogram[t] = ms.ApplyFilterBank(frame, filterBank)
	}
	return melSpectrogram
}
