package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// STFT provides Short-Time Fourier Transform analysis and resynthesis
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`       // Time x Frequency magnitude matrix
	Phase          [][]float64    `json:"phase"`           // Time x Frequency phase matrix
	Complex        [][]complex128 `json:"-"`               // Raw complex spectrogram (not serialized)
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int            `json:"sample_rate"`     // Sample rate
	WindowSize     int            `json:"window_size"`     // FFT window size
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	Centered       bool           `json:"centered"`        // Frames centered on t*hop (zero padded)
	SignalLength   int            `json:"signal_length"`   // Length of the analyzed signal
	FreqResolution float64        `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64        `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window is a frame window usable for both analysis and overlap-add synthesis
type Window interface {
	ApplyInPlace(frame []float64) error
	Coefficients() []float64
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft:    NewFFT(),
		logger: logging.WithFields(logging.Fields{"component": "stft"}),
	}
}

// ComputeWithWindow computes the STFT with parallel frame processing.
//
// When center is true the signal is zero padded by windowSize/2 on both sides
// so frame t is centered on sample t*hopSize and the frame count is
// 1 + len(signal)/hopSize.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize, hopSize, sampleRate int, window Window, center bool) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	padded := signal
	if center {
		padded = make([]float64, len(signal)+2*(windowSize/2))
		copy(padded[windowSize/2:], signal)
	}

	numFrames := 0
	if len(padded) >= windowSize {
		numFrames = (len(padded)-windowSize)/hopSize + 1
	}
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	phase := make([][]float64, numFrames)
	complexSpectrum := make([][]complex128, numFrames)

	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
		phase[i] = make([]float64, freqBins)
		complexSpectrum[i] = make([]complex128, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)

	jobs := make(chan int, numFrames)
	errs := make(chan error, numWorkers)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, padded[start:start+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errs <- err
						return
					}
				}

				fftResult := s.fft.HalfSpectrum(frameBuffer)
				for i := range freqBins {
					complexSpectrum[frameIdx][i] = fftResult[i]
					magnitude[frameIdx][i] = cmplx.Abs(fftResult[i])
					phase[frameIdx][i] = cmplx.Phase(fftResult[i])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		s.logger.Error(err, "Window application failed", logging.Fields{
			"window_size": windowSize,
		})
		return nil, err
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Phase:          phase,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		Centered:       center,
		SignalLength:   len(signal),
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// Inverse resynthesizes a time signal from a (possibly modified) complex
// spectrogram by windowed overlap-add, normalized by the summed squared window.
// The output has exactly length samples.
func (s *STFT) Inverse(spectrum [][]complex128, windowSize, hopSize int, window Window, center bool, length int) ([]float64, error) {
	if len(spectrum) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window and hop size must be positive")
	}

	var coeffs []float64
	if window != nil {
		coeffs = window.Coefficients()
		if len(coeffs) != windowSize {
			return nil, fmt.Errorf("window length (%d) doesn't match window size (%d)", len(coeffs), windowSize)
		}
	} else {
		coeffs = make([]float64, windowSize)
		for i := range coeffs {
			coeffs[i] = 1.0
		}
	}

	total := windowSize + hopSize*(len(spectrum)-1)
	out := make([]float64, total)
	windowSum := make([]float64, total)

	for t, bins := range spectrum {
		frame := s.fft.InverseHalf(bins, windowSize)
		offset := t * hopSize
		for i, v := range frame {
			out[offset+i] += v * coeffs[i]
			windowSum[offset+i] += coeffs[i] * coeffs[i]
		}
	}

	for i := range out {
		if windowSum[i] > 1e-10 {
			out[i] /= windowSum[i]
		}
	}

	start := 0
	if center {
		start = windowSize / 2
	}

	result := make([]float64, length)
	if start < len(out) {
		copy(result, out[start:])
	}
	return result, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
