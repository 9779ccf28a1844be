package analysis

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-bulbul/algorithms/common"
	"github.com/RyanBlaney/sonido-bulbul/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bulbul/algorithms/windowing"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/transcode"
)

// Preprocessor decodes a recording, peak-normalizes it and suppresses
// low-level hiss with a spectral gate
type Preprocessor struct {
	decoder    *transcode.Decoder
	normalizer *common.Normalizer
	stft       *spectral.STFT
	window     *windowing.Hann
	gate       config.GateConfig
	logger     logging.Logger
}

// NewPreprocessor creates a preprocessor from the audio and gate settings
func NewPreprocessor(cfg *config.Config) *Preprocessor {
	return &Preprocessor{
		decoder:    transcode.NewDecoder(cfg.Audio.DecoderConfig()),
		normalizer: common.NewNormalizer(common.Peak),
		stft:       spectral.NewSTFT(),
		window:     windowing.NewPeriodicHann(cfg.Gate.FFTSize),
		gate:       cfg.Gate,
		logger:     logging.WithFields(logging.Fields{"component": "preprocessor"}),
	}
}

// Process decodes data and returns the normalized, gated mono signal
func (p *Preprocessor) Process(ctx context.Context, data []byte) (*transcode.AudioData, error) {
	audio, err := p.decoder.DecodeBytes(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	p.logger.Debug("Audio decoded", logging.Fields{
		"samples":            len(audio.PCM),
		"sample_rate":        audio.SampleRate,
		"source_sample_rate": audio.SourceSampleRate,
		"source_channels":    audio.SourceChannels,
	})

	if len(audio.PCM) == 0 {
		return nil, fmt.Errorf("%w: no samples decoded", ErrEmptySignal)
	}
	if common.IsSilent(audio.PCM) {
		return nil, fmt.Errorf("%w: all samples are zero", ErrEmptySignal)
	}

	normalized := p.normalizer.Normalize(audio.PCM)

	gated, err := p.Gate(normalized, audio.SampleRate)
	if err != nil {
		return nil, err
	}

	audio.PCM = gated
	return audio, nil
}

// Gate zeroes every time-frequency bin more than ThresholdDB below the clip's
// loudest bin and resynthesizes with the original phase. The output has the
// same length as the input.
func (p *Preprocessor) Gate(signal []float64, sampleRate int) ([]float64, error) {
	if len(signal) == 0 {
		return []float64{}, nil
	}

	result, err := p.stft.ComputeWithWindow(signal, p.gate.FFTSize, p.gate.HopSize, sampleRate, p.window, true)
	if err != nil {
		return nil, fmt.Errorf("noise gate analysis: %w", err)
	}

	peak := 0.0
	for _, frame := range result.Magnitude {
		for _, mag := range frame {
			peak = math.Max(peak, mag)
		}
	}
	if peak <= 0 {
		return make([]float64, len(signal)), nil
	}

	// 20*log10(mag/peak) < -threshold  <=>  mag < peak * 10^(-threshold/20)
	cutoff := peak * math.Pow(10, -p.gate.ThresholdDB/20)
	gatedBins := 0
	for t, frame := range result.Magnitude {
		for f, mag := range frame {
			if mag < cutoff {
				result.Complex[t][f] = cmplx.Rect(p.gate.NoiseFloor, result.Phase[t][f])
				gatedBins++
			}
		}
	}

	p.logger.Debug("Noise gate applied", logging.Fields{
		"frames":      result.TimeFrames,
		"gated_ratio": float64(gatedBins) / float64(result.TimeFrames*result.FreqBins),
	})

	out, err := p.stft.Inverse(result.Complex, p.gate.FFTSize, p.gate.HopSize, p.window, true, len(signal))
	if err != nil {
		return nil, fmt.Errorf("noise gate resynthesis: %w", err)
	}
	return out, nil
}
