package common

import (
	"math"
	"reflect"
	"testing"
)

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name        string
		data        []float64
		minHeight   float64
		minDistance int
		want        []int
	}{
		{"simple", []float64{0, 1, 0, 2, 0}, 0, 1, []int{1, 3}},
		{"odd plateau reports middle", []float64{0, 2, 2, 2, 0}, 0, 1, []int{2}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, 0, 1, []int{1}},
		{"edges are not peaks", []float64{3, 1, 2}, 0, 1, []int{}},
		{"plateau running into the edge", []float64{0, 1, 1}, 0, 1, []int{}},
		{"below height", []float64{0, 0.05, 0, 0.5, 0}, 0.1, 1, []int{3}},
		{"distance keeps highest", []float64{0, 3, 0, 2, 0, 4, 0}, 0, 3, []int{1, 5}},
		{"distance ties favour later peak", []float64{0, 1, 0, 1, 0}, 0, 3, []int{3}},
		{"too short", []float64{1, 2}, 0, 1, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.data, tt.minHeight, tt.minDistance)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindPeaks(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     float64
	}{
		{1.23456, 2, 1.23},
		{0.93126, 4, 0.9313},
		{2.555, 0, 3},
		{-0.004, 2, -0},
	}
	for _, tt := range tests {
		if got := RoundTo(tt.value, tt.decimals); got != tt.want {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestPeakAbs(t *testing.T) {
	if got := PeakAbs([]float64{3, -4, 3, -4}); got != 4 {
		t.Errorf("PeakAbs = %v", got)
	}
	if PeakAbs(nil) != 0 {
		t.Error("empty input should give zero")
	}
}

func TestNormalizer(t *testing.T) {
	peak := NewNormalizer(Peak).Normalize([]float64{0.5, -0.25})
	if !reflect.DeepEqual(peak, []float64{1, -0.5}) {
		t.Errorf("peak = %v", peak)
	}

	minmax := NewNormalizer(MinMax).Normalize([]float64{2, 4, 3})
	if !reflect.DeepEqual(minmax, []float64{0, 1, 0.5}) {
		t.Errorf("minmax = %v", minmax)
	}

	constant := NewNormalizer(MinMax).Normalize([]float64{7, 7, 7})
	if !reflect.DeepEqual(constant, []float64{0, 0, 0}) {
		t.Errorf("constant minmax = %v", constant)
	}

	silent := NewNormalizerWithEpsilon(MinMax, 1e-6).Normalize([]float64{0, 0})
	for _, v := range silent {
		if math.IsNaN(v) || v != 0 {
			t.Errorf("silent with epsilon = %v", silent)
		}
	}

	if !IsSilent([]float64{0, 0, 0}) || IsSilent([]float64{0, 1e-9}) {
		t.Error("IsSilent")
	}
}

func TestResampleSignal(t *testing.T) {
	signal := make([]float64, 44100)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}

	for _, method := range []InterpolationType{Linear, Lanczos} {
		out := NewInterpolator(method).ResampleSignal(signal, 44100, 22050)
		if math.Abs(float64(len(out)-22050)) > 1 {
			t.Fatalf("method %d: got %d samples, want ~22050", method, len(out))
		}
		// Interior samples follow the same sine at the new rate
		for i := 1000; i < 1010; i++ {
			want := math.Sin(2 * math.Pi * 440 * float64(i) / 22050)
			if math.Abs(out[i]-want) > 0.02 {
				t.Errorf("method %d: sample %d = %v, want %v", method, i, out[i], want)
			}
		}
	}
}
