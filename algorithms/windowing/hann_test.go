package windowing

import (
	"math"
	"testing"
)

func TestHannCoefficients(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		symmetric bool
		want      []float64
	}{
		{"periodic", 4, false, []float64{0, 0.5, 1, 0.5}},
		{"symmetric", 5, true, []float64{0, 0.5, 1, 0.5, 0}},
		{"single", 1, false, []float64{1}},
		{"empty", 0, false, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewHann(tt.size, tt.symmetric).Coefficients()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d coefficients, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("coefficient %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPeriodicHannOverlapAdd(t *testing.T) {
	const size, hop = 2048, 512
	coeffs := NewPeriodicHann(size).Coefficients()

	// Squared windows at a quarter-size hop sum to a constant
	var first float64
	for n := 0; n < hop; n++ {
		sum := 0.0
		for k := 0; k < size/hop; k++ {
			c := coeffs[n+k*hop]
			sum += c * c
		}
		if n == 0 {
			first = sum
		} else if math.Abs(sum-first) > 1e-9 {
			t.Fatalf("position %d sums to %v, want %v", n, sum, first)
		}
	}
}

func TestHannApplyInPlace(t *testing.T) {
	h := NewPeriodicHann(4)
	frame := []float64{2, 2, 2, 2}
	if err := h.ApplyInPlace(frame); err != nil {
		t.Fatal(err)
	}
	if frame[0] != 0 || frame[2] != 2 {
		t.Errorf("windowed frame = %v", frame)
	}
	if err := h.ApplyInPlace(make([]float64, 3)); err == nil {
		t.Error("expected length mismatch error")
	}
}
