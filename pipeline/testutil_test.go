package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/artifacts"
	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/transcode"
)

const testRate = 22050

var fixedNow = time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

// tone writes a sine burst into signal
func tone(signal []float64, startSec, durSec, freq float64) {
	start := int(startSec * testRate)
	for i := range int(durSec * testRate) {
		signal[start+i] += 0.8 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
}

// chirps writes n 50 ms chirps spaced 250 ms apart, which segment as one
// event with n syllables
func chirps(signal []float64, startSec float64, n int) {
	for i := range n {
		tone(signal, startSec+float64(i)*0.25, 0.05, 2500)
	}
}

// songAndNoise returns a 6 s recording: a five-syllable chirp train at 1 s
// and a steady one-second tone at 4 s
func songAndNoise(t *testing.T) []byte {
	t.Helper()
	signal := make([]float64, 6*testRate)
	chirps(signal, 1.0, 5)
	tone(signal, 4.0, 1.0, 1200)
	return encode(t, signal)
}

// singleSong returns a 4 s recording holding only a chirp train
func singleSong(t *testing.T, syllables int) []byte {
	t.Helper()
	signal := make([]float64, 4*testRate)
	chirps(signal, 1.0, syllables)
	return encode(t, signal)
}

func encode(t *testing.T, signal []float64) []byte {
	t.Helper()
	data, err := transcode.EncodeWAV(signal, testRate)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return data
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Audio.EnableFFmpeg = false
	cfg.Workers = 1
	return cfg
}

func newAnalyzer(t *testing.T, c classifier.Classifier, store artifacts.Store, rounds RoundStore) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(testConfig(), Options{
		Classifier: c,
		Artifacts:  store,
		Rounds:     rounds,
		Now:        func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func singing(conf float64) classifier.Prediction {
	return classifier.Prediction{Label: classifier.Singing, Confidence: conf}
}

func noise(conf float64) classifier.Prediction {
	return classifier.Prediction{Label: classifier.Noise, Confidence: conf}
}
