package analysis

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

const testRate = 22050

// burst is a windowed sine tone placed in an otherwise silent signal
type burst struct {
	Start    float64 // seconds
	Duration float64 // seconds
	Freq     float64 // Hz
	Amp      float64 // linear amplitude, 0 means 0.8
}

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

// generateBursts renders bursts into a signal of the given total duration
func generateBursts(t *testing.T, totalSecs float64, bursts ...burst) []float64 {
	t.Helper()

	signal := make([]float64, int(totalSecs*testRate))
	for _, b := range bursts {
		amp := b.Amp
		if amp == 0 {
			amp = 0.8
		}
		start := int(b.Start * testRate)
		n := int(b.Duration * testRate)
		if start+n > len(signal) {
			t.Fatalf("burst at %.2fs (%.2fs) exceeds %.2fs signal", b.Start, b.Duration, totalSecs)
		}
		for i := range n {
			signal[start+i] += amp * math.Sin(2*math.Pi*b.Freq*float64(i)/testRate)
		}
	}
	return signal
}

// addNoise adds deterministic uniform noise of the given peak amplitude
func addNoise(t *testing.T, signal []float64, amp float64) []float64 {
	t.Helper()

	state := uint32(12345)
	out := make([]float64, len(signal))
	for i, v := range signal {
		state = state*1664525 + 1013904223
		out[i] = v + amp*((float64(state)/float64(math.MaxUint32))*2-1)
	}
	return out
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Audio.EnableFFmpeg = false
	return cfg
}
