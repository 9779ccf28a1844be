package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of a real frame.
// go-dsp handles non-power-of-2 sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// HalfSpectrum returns bins 0..n/2 of the spectrum of x
func (f *FFT) HalfSpectrum(x []float64) []complex128 {
	full := f.Compute(x)
	if len(full) == 0 {
		return full
	}
	return full[:len(full)/2+1]
}

// InverseHalf rebuilds a real frame of length n from its non-negative
// frequency bins. The negative half is filled in by conjugate symmetry, so the
// imaginary part of the result is numerically zero and is dropped.
func (f *FFT) InverseHalf(half []complex128, n int) []float64 {
	if n <= 0 || len(half) == 0 {
		return []float64{}
	}

	full := make([]complex128, n)
	for k := 0; k < len(half) && k < n; k++ {
		full[k] = half[k]
	}
	for k := 1; k < len(half); k++ {
		mirror := n - k
		if mirror <= k || mirror >= n {
			continue
		}
		full[mirror] = cmplx.Conj(half[k])
	}

	// go-dsp normalizes the inverse by 1/n
	inv := fft.IFFT(full)
	out := make([]float64, n)
	for i, v := range inv {
		out[i] = real(v)
	}
	return out
}
