package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-bulbul/transcode"
)

// Config holds every tunable of the scoring pipeline
type Config struct {
	Audio       AudioConfig       `json:"audio" yaml:"audio"`
	Gate        GateConfig        `json:"gate" yaml:"gate"`
	Segment     SegmentConfig     `json:"segment" yaml:"segment"`
	Spectrogram SpectrogramConfig `json:"spectrogram" yaml:"spectrogram"`
	Syllable    SyllableConfig    `json:"syllable" yaml:"syllable"`
	Scoring     ScoringConfig     `json:"scoring" yaml:"scoring"`
	Classifier  ClassifierConfig  `json:"classifier" yaml:"classifier"`

	// Workers bounds how many events of one round are processed at once
	Workers  int    `json:"workers" yaml:"workers"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

type AudioConfig struct {
	SampleRate      int           `json:"sample_rate" yaml:"sample_rate"`
	ResampleQuality string        `json:"resample_quality" yaml:"resample_quality"` // "fast", "high"
	EnableFFmpeg    bool          `json:"enable_ffmpeg" yaml:"enable_ffmpeg"`
	FFmpegPath      string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFmpegTimeout   time.Duration `json:"ffmpeg_timeout" yaml:"ffmpeg_timeout"`
}

// DecoderConfig maps the audio section onto the decoder's settings
func (a AudioConfig) DecoderConfig() *transcode.DecoderConfig {
	return &transcode.DecoderConfig{
		TargetSampleRate: a.SampleRate,
		ResampleQuality:  a.ResampleQuality,
		EnableFFmpeg:     a.EnableFFmpeg,
		FFmpegPath:       a.FFmpegPath,
		Timeout:          a.FFmpegTimeout,
	}
}

// GateConfig configures the spectral noise gate
type GateConfig struct {
	FFTSize     int     `json:"fft_size" yaml:"fft_size"`
	HopSize     int     `json:"hop_size" yaml:"hop_size"`
	ThresholdDB float64 `json:"threshold_db" yaml:"threshold_db"` // bins this far below the peak are gated
	NoiseFloor  float64 `json:"noise_floor" yaml:"noise_floor"`   // magnitude written into gated bins
}

type SegmentConfig struct {
	TopDB       float64 `json:"top_db" yaml:"top_db"`
	FrameLength int     `json:"frame_length" yaml:"frame_length"`
	HopLength   int     `json:"hop_length" yaml:"hop_length"`
	MergeGap    float64 `json:"merge_gap" yaml:"merge_gap"`       // seconds
	MinDuration float64 `json:"min_duration" yaml:"min_duration"` // seconds
	Padding     float64 `json:"padding" yaml:"padding"`           // seconds added each side before rendering
}

type SpectrogramConfig struct {
	Duration float64 `json:"duration" yaml:"duration"` // classifier input window, seconds
	FFTSize  int     `json:"fft_size" yaml:"fft_size"`
	HopSize  int     `json:"hop_size" yaml:"hop_size"`
	MelBands int     `json:"mel_bands" yaml:"mel_bands"`
	FMin     float64 `json:"fmin" yaml:"fmin"`
	FMax     float64 `json:"fmax" yaml:"fmax"`
	TopDB    float64 `json:"top_db" yaml:"top_db"`
}

type SyllableConfig struct {
	FrameLength int     `json:"frame_length" yaml:"frame_length"`
	HopLength   int     `json:"hop_length" yaml:"hop_length"`
	MinHeight   float64 `json:"min_height" yaml:"min_height"`   // on the min-max normalized envelope
	MinSpacing  float64 `json:"min_spacing" yaml:"min_spacing"` // seconds between peaks
	Epsilon     float64 `json:"epsilon" yaml:"epsilon"`
	Plot        bool    `json:"plot" yaml:"plot"`
}

type ScoringConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	MinSyllables        int     `json:"min_syllables" yaml:"min_syllables"`
	PassThreshold       int     `json:"pass_threshold" yaml:"pass_threshold"`
}

type ClassifierConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the contest defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      22050,
			ResampleQuality: "high",
			EnableFFmpeg:    true,
			FFmpegPath:      "ffmpeg",
			FFmpegTimeout:   30 * time.Second,
		},
		Gate: GateConfig{
			FFTSize:     2048,
			HopSize:     512,
			ThresholdDB: 30,
			NoiseFloor:  0,
		},
		Segment: SegmentConfig{
			TopDB:       25,
			FrameLength: 2048,
			HopLength:   512,
			MergeGap:    0.25,
			MinDuration: 0.4,
			Padding:     0.15,
		},
		Spectrogram: SpectrogramConfig{
			Duration: 3.0,
			FFTSize:  2048,
			HopSize:  512,
			MelBands: 128,
			FMin:     0,
			FMax:     8000,
			TopDB:    80,
		},
		Syllable: SyllableConfig{
			FrameLength: 2048,
			HopLength:   512,
			MinHeight:   0.10,
			MinSpacing:  0.1,
			Epsilon:     1e-6,
			Plot:        true,
		},
		Scoring: ScoringConfig{
			ConfidenceThreshold: 0.6,
			MinSyllables:        3,
			PassThreshold:       8,
		},
		Classifier: ClassifierConfig{
			Timeout: 30 * time.Second,
		},
		Workers:  4,
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range field
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Audio.SampleRate > 0, "audio.sample_rate must be positive: %d", c.Audio.SampleRate)
	if err := transcode.NewDecoder(c.Audio.DecoderConfig()).ValidateConfig(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}

	check(c.Gate.FFTSize > 0, "gate.fft_size must be positive: %d", c.Gate.FFTSize)
	check(c.Gate.HopSize > 0 && c.Gate.HopSize <= c.Gate.FFTSize,
		"gate.hop_size must be in (0, fft_size]: %d", c.Gate.HopSize)
	check(c.Gate.ThresholdDB > 0, "gate.threshold_db must be positive: %g", c.Gate.ThresholdDB)
	check(c.Gate.NoiseFloor >= 0, "gate.noise_floor must not be negative: %g", c.Gate.NoiseFloor)

	check(c.Segment.TopDB > 0, "segment.top_db must be positive: %g", c.Segment.TopDB)
	check(c.Segment.FrameLength > 0, "segment.frame_length must be positive: %d", c.Segment.FrameLength)
	check(c.Segment.HopLength > 0, "segment.hop_length must be positive: %d", c.Segment.HopLength)
	check(c.Segment.MergeGap >= 0, "segment.merge_gap must not be negative: %g", c.Segment.MergeGap)
	check(c.Segment.MinDuration >= 0, "segment.min_duration must not be negative: %g", c.Segment.MinDuration)
	check(c.Segment.Padding >= 0, "segment.padding must not be negative: %g", c.Segment.Padding)

	check(c.Spectrogram.Duration > 0, "spectrogram.duration must be positive: %g", c.Spectrogram.Duration)
	check(c.Spectrogram.FFTSize > 0, "spectrogram.fft_size must be positive: %d", c.Spectrogram.FFTSize)
	check(c.Spectrogram.HopSize > 0, "spectrogram.hop_size must be positive: %d", c.Spectrogram.HopSize)
	check(c.Spectrogram.MelBands > 0, "spectrogram.mel_bands must be positive: %d", c.Spectrogram.MelBands)
	check(c.Spectrogram.FMax > c.Spectrogram.FMin, "spectrogram.fmax must exceed fmin")
	check(c.Spectrogram.FMax <= float64(c.Audio.SampleRate)/2,
		"spectrogram.fmax %g exceeds Nyquist", c.Spectrogram.FMax)
	check(c.Spectrogram.TopDB > 0, "spectrogram.top_db must be positive: %g", c.Spectrogram.TopDB)

	check(c.Syllable.FrameLength > 0, "syllable.frame_length must be positive: %d", c.Syllable.FrameLength)
	check(c.Syllable.HopLength > 0, "syllable.hop_length must be positive: %d", c.Syllable.HopLength)
	check(c.Syllable.MinSpacing >= 0, "syllable.min_spacing must not be negative: %g", c.Syllable.MinSpacing)
	check(c.Syllable.Epsilon >= 0, "syllable.epsilon must not be negative: %g", c.Syllable.Epsilon)

	check(c.Scoring.ConfidenceThreshold >= 0 && c.Scoring.ConfidenceThreshold <= 1,
		"scoring.confidence_threshold must be in [0, 1]: %g", c.Scoring.ConfidenceThreshold)
	check(c.Scoring.MinSyllables >= 0, "scoring.min_syllables must not be negative: %d", c.Scoring.MinSyllables)
	check(c.Scoring.PassThreshold >= 0, "scoring.pass_threshold must not be negative: %d", c.Scoring.PassThreshold)

	check(c.Workers >= 0, "workers must not be negative: %d", c.Workers)

	return errors.Join(errs...)
}
