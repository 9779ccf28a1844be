package common

import (
	"math"
)

// InterpolationType defines interpolation method
type InterpolationType int

const (
	Linear InterpolationType = iota
	Lanczos
)

// lanczosLobes is the kernel half-width in (scaled) samples
const lanczosLobes = 3

// Interpolator resamples signals at fractional positions
type Interpolator struct {
	method InterpolationType
}

// NewInterpolator creates a new interpolator
func NewInterpolator(method InterpolationType) *Interpolator {
	return &Interpolator{
		method: method,
	}
}

// linearInterpolate performs linear interpolation
func (interp *Interpolator) linearInterpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)
	return data[i]*(1-frac) + data[i+1]*frac
}

// lanczosInterpolate evaluates a Lanczos-windowed sinc at index. scale > 1
// stretches the kernel, which lowers its cutoff to 1/scale of Nyquist and is
// what keeps downsampling from aliasing.
func (interp *Interpolator) lanczosInterpolate(data []float64, index, scale float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	reach := float64(lanczosLobes) * scale
	lo := max(0, int(math.Floor(index-reach))+1)
	hi := min(len(data)-1, int(math.Floor(index+reach)))

	sum := 0.0
	weightSum := 0.0
	for j := lo; j <= hi; j++ {
		w := lanczosKernel((index-float64(j))/scale, lanczosLobes)
		sum += data[j] * w
		weightSum += w
	}

	if math.Abs(weightSum) < 1e-12 {
		return 0.0
	}
	return sum / weightSum
}

func lanczosKernel(x float64, a int) float64 {
	if x == 0 {
		return 1.0
	}
	if math.Abs(x) >= float64(a) {
		return 0.0
	}

	px := math.Pi * x
	return (float64(a) * math.Sin(px) * math.Sin(px/float64(a))) / (px * px)
}

// ResampleSignal resamples a signal to a new sample rate. The output has
// ceil(len * targetRate / originalRate) samples.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(math.Ceil(float64(len(signal)) * float64(targetRate) / float64(originalRate)))
	scale := math.Max(1.0, ratio)

	resampled := make([]float64, newLength)
	for i := range resampled {
		sourceIndex := float64(i) * ratio
		if interp.method == Lanczos {
			resampled[i] = interp.lanczosInterpolate(signal, sourceIndex, scale)
		} else {
			resampled[i] = interp.linearInterpolate(signal, sourceIndex)
		}
	}

	return resampled
}
