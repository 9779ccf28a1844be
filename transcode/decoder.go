package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/algorithms/common"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/go-audio/wav"
)

var (
	// ErrUnsupportedFormat is returned when the input is not a WAV file and
	// the ffmpeg fallback is disabled or cannot handle it
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrCorrupt is returned when the input claims a known format but its
	// contents cannot be decoded
	ErrCorrupt = errors.New("corrupt audio data")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`

	// Native properties of the input before downmix and resampling
	SourceSampleRate int    `json:"source_sample_rate"`
	SourceChannels   int    `json:"source_channels"`
	Codec            string `json:"codec"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" yaml:"target_sample_rate"`
	ResampleQuality  string        `json:"resample_quality" yaml:"resample_quality"` // "fast" (linear) or "high" (lanczos)
	EnableFFmpeg     bool          `json:"enable_ffmpeg" yaml:"enable_ffmpeg"`       // Fall back to ffmpeg for non-WAV input
	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`           // Path to ffmpeg binary
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`                   // Timeout for ffmpeg operations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 22050,
		ResampleQuality:  "high",
		EnableFFmpeg:     true,
		FFmpegPath:       "ffmpeg", // Assume in PATH
		Timeout:          30 * time.Second,
	}
}

// Decoder turns encoded audio into mono float samples at the target rate.
// WAV PCM is decoded natively; everything else goes through ffmpeg.
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeBytes decodes audio from a byte slice
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeBytes",
		"data_size": len(data),
	})

	logger.Debug("Starting audio bytes decode")

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio data", ErrCorrupt)
	}

	if isRIFFWave(data) {
		audio, err := d.decodeWAV(data)
		if err == nil {
			return audio, nil
		}
		if !errors.Is(err, ErrUnsupportedFormat) {
			logger.Error(err, "WAV decode failed")
			return nil, err
		}
		logger.Debug("WAV encoding not handled natively", logging.Fields{"reason": err.Error()})
	}

	if !d.config.EnableFFmpeg {
		return nil, fmt.Errorf("%w: not a PCM WAV file and ffmpeg disabled", ErrUnsupportedFormat)
	}

	return d.decodeWithFFmpeg(ctx, data)
}

func isRIFFWave(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// decodeWAV decodes integer PCM WAV with go-audio, downmixes and resamples
func (d *Decoder) decodeWAV(data []byte) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeWAV",
	})

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV header", ErrCorrupt)
	}

	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, bitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format information", ErrCorrupt)
	}

	channels := buf.Format.NumChannels
	sampleRate := buf.Format.SampleRate

	// 8-bit WAV is stored unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	scale := math.Exp2(float64(bitDepth - 1))

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += float64(buf.Data[i*channels+c]-offset) / scale
		}
		mono[i] = sum / float64(channels)
	}

	pcm := d.resample(mono, sampleRate)

	logger.Debug("WAV decode completed successfully", logging.Fields{
		"input_sample_rate":  sampleRate,
		"input_channels":     channels,
		"input_bit_depth":    bitDepth,
		"output_samples":     len(pcm),
		"output_sample_rate": d.config.TargetSampleRate,
	})

	return d.newAudioData(pcm, sampleRate, channels, "pcm_s"+strconv.Itoa(bitDepth)), nil
}

func (d *Decoder) resample(signal []float64, sampleRate int) []float64 {
	method := common.Lanczos
	if d.config.ResampleQuality == "fast" {
		method = common.Linear
	}
	return common.NewInterpolator(method).ResampleSignal(signal, sampleRate, d.config.TargetSampleRate)
}

func (d *Decoder) newAudioData(pcm []float64, sourceRate, sourceChannels int, codec string) *AudioData {
	return &AudioData{
		PCM:              pcm,
		SampleRate:       d.config.TargetSampleRate,
		Channels:         1,
		Duration:         time.Duration(len(pcm)) * time.Second / time.Duration(d.config.TargetSampleRate),
		SourceSampleRate: sourceRate,
		SourceChannels:   sourceChannels,
		Codec:            codec,
	}
}

// decodeWithFFmpeg pipes bytes through ffmpeg and reads mono f64le at the
// target rate
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, data []byte) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeWithFFmpeg",
	})

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := d.buildFFmpegArgs()
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg decode aborted: %w", ctxErr)
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("%w: ffmpeg: %s", ErrCorrupt, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("%w: ffmpeg unavailable: %v", ErrUnsupportedFormat, err)
	}

	samples := bytesToFloat64(output)

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": d.config.TargetSampleRate,
	})

	return d.newAudioData(samples, 0, 0, "ffmpeg"), nil
}

// buildFFmpegArgs builds the ffmpeg arguments for mono float64 output
func (d *Decoder) buildFFmpegArgs() []string {
	args := []string{
		"-i", "pipe:0",
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
	}

	switch d.config.ResampleQuality {
	case "fast":
		args = append(args, "-af", "aresample=resampler=soxr:precision=16")
	case "high":
		args = append(args, "-af", "aresample=resampler=soxr:precision=28")
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error", "pipe:1")

	return args
}

// bytesToFloat64 converts raw float64 bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		// Trim to multiple of 8 bytes
		data = data[:len(data)-(len(data)%8)]
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// ValidateConfig validates the decoder configuration
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}

	switch d.config.ResampleQuality {
	case "fast", "high", "":
	default:
		return fmt.Errorf("unknown resample quality %q", d.config.ResampleQuality)
	}

	if d.config.EnableFFmpeg && d.config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %v", d.config.Timeout)
	}

	return nil
}
