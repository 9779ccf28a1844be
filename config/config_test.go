package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Audio.SampleRate != 22050 || cfg.Spectrogram.Duration != 3.0 ||
		cfg.Scoring.ConfidenceThreshold != 0.6 || cfg.Segment.TopDB != 25 ||
		cfg.Segment.MinDuration != 0.4 || cfg.Segment.MergeGap != 0.25 ||
		cfg.Segment.Padding != 0.15 || cfg.Scoring.MinSyllables != 3 ||
		cfg.Scoring.PassThreshold != 8 {
		t.Errorf("unexpected contest defaults: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bulbul.yaml")
	yamlText := `
scoring:
  pass_threshold: 10
segment:
  merge_gap: 0.3
classifier:
  url: http://localhost:8501/predict
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scoring.PassThreshold != 10 {
		t.Errorf("pass_threshold = %d, want 10", cfg.Scoring.PassThreshold)
	}
	if cfg.Segment.MergeGap != 0.3 {
		t.Errorf("merge_gap = %g, want 0.3", cfg.Segment.MergeGap)
	}
	if cfg.Classifier.Timeout != 5*time.Second {
		t.Errorf("classifier timeout = %v, want 5s", cfg.Classifier.Timeout)
	}
	// Untouched keys keep defaults
	if cfg.Scoring.MinSyllables != 3 || cfg.Audio.SampleRate != 22050 {
		t.Errorf("defaults lost: %+v", cfg.Scoring)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	yamlText := "scoring:\n  confidence_threshold: 1.5\nspectrogram:\n  fmax: 20000\n"
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"confidence_threshold", "Nyquist"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateResampleQuality(t *testing.T) {
	for _, quality := range []string{"fast", "high"} {
		cfg := DefaultConfig()
		cfg.Audio.ResampleQuality = quality
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: %v", quality, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Audio.ResampleQuality = "hgih"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "resample quality") {
		t.Errorf("got %v, want resample quality error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
