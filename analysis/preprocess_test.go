package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-bulbul/transcode"
)

func TestGateSuppressesHiss(t *testing.T) {
	cfg := testConfig(t)
	pre := NewPreprocessor(cfg)

	// Loud tone for the first second, hiss at -60 dB everywhere
	clean := generateBursts(t, 3.0, burst{Start: 0, Duration: 1.0, Freq: 1500, Amp: 1.0})
	noisy := addNoise(t, clean, 1e-3)

	gated, err := pre.Gate(noisy, testRate)
	if err != nil {
		t.Fatalf("Gate: %v", err)
	}
	if len(gated) != len(noisy) {
		t.Fatalf("length changed: %d -> %d", len(noisy), len(gated))
	}

	hissIn := rms(noisy[2*testRate:])
	hissOut := rms(gated[2*testRate:])
	if hissOut > hissIn/100 {
		t.Errorf("hiss not suppressed: rms %g -> %g", hissIn, hissOut)
	}

	toneIn := rms(noisy[testRate/4 : 3*testRate/4])
	toneOut := rms(gated[testRate/4 : 3*testRate/4])
	if math.Abs(toneOut-toneIn)/toneIn > 0.1 {
		t.Errorf("tone energy changed too much: rms %g -> %g", toneIn, toneOut)
	}
}

func TestGateDeterministic(t *testing.T) {
	pre := NewPreprocessor(testConfig(t))
	signal := addNoise(t, generateBursts(t, 1.0, burst{Start: 0.2, Duration: 0.5, Freq: 3000}), 1e-2)

	a, err := pre.Gate(signal, testRate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pre.Gate(signal, testRate)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between runs: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestProcessWAV(t *testing.T) {
	pre := NewPreprocessor(testConfig(t))
	signal := generateBursts(t, 2.0, burst{Start: 0.5, Duration: 1.0, Freq: 2000, Amp: 0.25})

	data, err := transcode.EncodeWAV(signal, testRate)
	if err != nil {
		t.Fatal(err)
	}

	audio, err := pre.Process(context.Background(), data)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if audio.SampleRate != testRate {
		t.Errorf("sample rate = %d, want %d", audio.SampleRate, testRate)
	}
	if len(audio.PCM) != len(signal) {
		t.Errorf("got %d samples, want %d", len(audio.PCM), len(signal))
	}

	peak := 0.0
	for _, v := range audio.PCM {
		peak = math.Max(peak, math.Abs(v))
	}
	// Normalized to 1.0 before the gate; resynthesis only trims sidelobes
	if peak < 0.9 || peak > 1.1 {
		t.Errorf("peak after processing = %f, want about 1.0", peak)
	}
}

func TestProcessErrors(t *testing.T) {
	pre := NewPreprocessor(testConfig(t))

	silent, err := transcode.EncodeWAV(make([]float64, 13*testRate), testRate)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"garbage", []byte("RIFF....WAVEjunk"), ErrDecode},
		{"not audio", []byte("hello"), ErrDecode},
		{"all zero", silent, ErrEmptySignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pre.Process(context.Background(), tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
