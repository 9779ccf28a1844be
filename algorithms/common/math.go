package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Basic numeric helpers shared by the analysis stages, backed by gonum

// PeakAbs returns the largest absolute sample value
func PeakAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// MinMaxNormalize normalizes data to [0, 1] range. Constant data maps to zeros.
func MinMaxNormalize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	lo := floats.Min(data)
	hi := floats.Max(data)

	normalized := make([]float64, len(data))
	if math.Abs(hi-lo) < 1e-10 {
		return normalized
	}

	for i, val := range data {
		normalized[i] = (val - lo) / (hi - lo)
	}

	return normalized
}

// FindPeaks returns the indices of local maxima in data, in ascending order.
//
// A peak is a sample strictly greater than its left neighbour and strictly
// greater than the first differing sample to its right; for a flat top the
// middle sample (rounded down) is reported. Edges are never peaks. Peaks below
// minHeight are discarded. When minDistance > 1, peaks are then thinned by
// height: starting from the highest, every lower peak closer than minDistance
// samples to an already kept one is dropped.
func FindPeaks(data []float64, minHeight float64, minDistance int) []int {
	if len(data) < 3 {
		return []int{}
	}

	candidates := []int{}
	i := 1
	for i < len(data)-1 {
		if data[i-1] < data[i] {
			ahead := i + 1
			for ahead < len(data)-1 && data[ahead] == data[i] {
				ahead++
			}
			if data[ahead] < data[i] {
				peak := (i + ahead - 1) / 2
				if data[peak] >= minHeight {
					candidates = append(candidates, peak)
				}
				i = ahead
				continue
			}
		}
		i++
	}

	if minDistance <= 1 || len(candidates) < 2 {
		return candidates
	}

	// Highest first; ties resolved in favour of the later peak
	order := make([]int, len(candidates))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := data[candidates[order[a]]], data[candidates[order[b]]]
		if ha != hb {
			return ha > hb
		}
		return order[a] > order[b]
	})

	keep := make([]bool, len(candidates))
	for k := range keep {
		keep[k] = true
	}

	for _, k := range order {
		if !keep[k] {
			continue
		}
		for j := k - 1; j >= 0 && candidates[k]-candidates[j] < minDistance; j-- {
			keep[j] = false
		}
		for j := k + 1; j < len(candidates) && candidates[j]-candidates[k] < minDistance; j++ {
			keep[j] = false
		}
	}

	peaks := make([]int, 0, len(candidates))
	for k, ok := range keep {
		if ok {
			peaks = append(peaks, candidates[k])
		}
	}
	return peaks
}

// RoundTo rounds value to the given number of decimal places
func RoundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
