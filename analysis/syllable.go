package analysis

import (
	"github.com/RyanBlaney/sonido-bulbul/algorithms/common"
	"github.com/RyanBlaney/sonido-bulbul/algorithms/temporal"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// SyllableResult holds the normalized energy envelope of a segment and the
// frames accepted as syllable peaks
type SyllableResult struct {
	Envelope   []float64
	Peaks      []int
	Threshold  float64
	HopLength  int
	SampleRate int
}

// Count is the number of syllables
func (r *SyllableResult) Count() int {
	return len(r.Peaks)
}

// SyllableCounter counts energy peaks inside a song segment
type SyllableCounter struct {
	cfg      config.SyllableConfig
	envelope *temporal.Envelope
	peakNorm *common.Normalizer
	envNorm  *common.Normalizer
	logger   logging.Logger
}

// NewSyllableCounter creates a counter from the syllable settings
func NewSyllableCounter(cfg config.SyllableConfig) *SyllableCounter {
	return &SyllableCounter{
		cfg:      cfg,
		envelope: temporal.NewEnvelope(),
		peakNorm: common.NewNormalizer(common.Peak),
		envNorm:  common.NewNormalizerWithEpsilon(common.MinMax, cfg.Epsilon),
		logger:   logging.WithFields(logging.Fields{"component": "syllable_counter"}),
	}
}

// MinSpacingFrames converts the minimum peak spacing to envelope frames,
// truncating toward zero
func (c *SyllableCounter) MinSpacingFrames(sampleRate int) int {
	return int(c.cfg.MinSpacing * float64(sampleRate) / float64(c.cfg.HopLength))
}

// Count computes the envelope of segment and finds its syllable peaks
func (c *SyllableCounter) Count(segment []float64, sampleRate int) *SyllableResult {
	normalized := c.peakNorm.Normalize(segment)
	rms := c.envelope.ComputeCenteredRMS(normalized, c.cfg.FrameLength, c.cfg.HopLength)
	env := c.envNorm.Normalize(rms)

	spacing := c.MinSpacingFrames(sampleRate)
	peaks := common.FindPeaks(env, c.cfg.MinHeight, spacing)

	c.logger.Debug("Syllables counted", logging.Fields{
		"frames":        len(env),
		"syllables":     len(peaks),
		"spacing_frame": spacing,
	})

	return &SyllableResult{
		Envelope:   env,
		Peaks:      peaks,
		Threshold:  c.cfg.MinHeight,
		HopLength:  c.cfg.HopLength,
		SampleRate: sampleRate,
	}
}
