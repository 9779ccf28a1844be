package analysis

import (
	"fmt"

	"github.com/RyanBlaney/sonido-bulbul/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bulbul/algorithms/windowing"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// Renderer cuts event segments out of a recording and renders the fixed-size
// log-mel images the classifier consumes
type Renderer struct {
	sampleRate int
	padding    float64
	cfg        config.SpectrogramConfig

	stft       *spectral.STFT
	window     *windowing.Hann
	power      *spectral.PowerSpectrum
	melScale   *spectral.MelScale
	filterBank [][]float64
	logger     logging.Logger
}

// NewRenderer creates a renderer; the mel filter bank is built once here
func NewRenderer(cfg *config.Config) *Renderer {
	spec := cfg.Spectrogram
	melScale := spectral.NewMelScale()

	return &Renderer{
		sampleRate: cfg.Audio.SampleRate,
		padding:    cfg.Segment.Padding,
		cfg:        spec,
		stft:       spectral.NewSTFT(),
		window:     windowing.NewPeriodicHann(spec.FFTSize),
		power:      spectral.NewPowerSpectrum(),
		melScale:   melScale,
		filterBank: melScale.CreateMelFilterBank(spec.MelBands, spec.FFTSize, cfg.Audio.SampleRate, spec.FMin, spec.FMax),
		logger:     logging.WithFields(logging.Fields{"component": "renderer"}),
	}
}

// Extract returns a copy of the interval's samples widened by the padding on
// both sides and clipped to the signal
func (r *Renderer) Extract(signal []float64, iv Interval) []float64 {
	pad := int(r.padding * float64(r.sampleRate))
	start := max(0, iv.Start-pad)
	end := min(len(signal), iv.End+pad)
	if end <= start {
		return []float64{}
	}

	segment := make([]float64, end-start)
	copy(segment, signal[start:end])
	return segment
}

// WindowLength is the classifier window in samples
func (r *Renderer) WindowLength() int {
	return int(r.cfg.Duration * float64(r.sampleRate))
}

// Fit forces segment to exactly length samples. Longer segments keep their
// center; shorter ones are zero padded with pad/2 samples in front and the
// rest behind.
func Fit(segment []float64, length int) []float64 {
	out := make([]float64, length)
	if len(segment) >= length {
		start := (len(segment) - length) / 2
		copy(out, segment[start:start+length])
		return out
	}

	left := (length - len(segment)) / 2
	copy(out[left:], segment)
	return out
}

// Render fits segment to the classifier window and renders its log-mel image
func (r *Renderer) Render(segment []float64) (*Spectrogram, error) {
	window := Fit(segment, r.WindowLength())

	result, err := r.stft.ComputeWithWindow(window, r.cfg.FFTSize, r.cfg.HopSize, r.sampleRate, r.window, true)
	if err != nil {
		return nil, fmt.Errorf("spectrogram: %w", err)
	}

	mel := r.melScale.MelSpectrogram(r.power.ComputeFromSTFT(result), r.filterBank)
	db := r.power.PowerToDB(mel, spectral.DefaultAmin, r.cfg.TopDB)

	spec := newSpectrogram(db)

	r.logger.Debug("Spectrogram rendered", logging.Fields{
		"segment_samples": len(segment),
		"width":           spec.Width,
		"height":          spec.Height,
	})

	return spec, nil
}
