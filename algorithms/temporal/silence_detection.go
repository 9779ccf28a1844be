package temporal

import (
	"math"
)

// SilenceDetection splits a signal into silent and non-silent regions
type SilenceDetection struct {
	envelopeExtractor *Envelope
	amin              float64
}

// NewSilenceDetection creates a new silence detector
func NewSilenceDetection() *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
		amin:              1e-10,
	}
}

// FrameLoudnessDB returns the per-frame energy in dB relative to the loudest
// frame (0 dB). Frames are centered, see Envelope.ComputeCenteredRMS.
func (sd *SilenceDetection) FrameLoudnessDB(signal []float64, frameSize, hopSize int) []float64 {
	return sd.loudnessDB(sd.envelopeExtractor.ComputeCenteredRMS(signal, frameSize, hopSize))
}

func (sd *SilenceDetection) loudnessDB(rms []float64) []float64 {
	if len(rms) == 0 {
		return []float64{}
	}

	ref := 0.0
	for _, v := range rms {
		ref = math.Max(ref, v*v)
	}
	refDB := 10 * math.Log10(math.Max(sd.amin, ref))

	db := make([]float64, len(rms))
	for i, v := range rms {
		db[i] = 10*math.Log10(math.Max(sd.amin, v*v)) - refDB
	}
	return db
}

// NonSilentIntervals returns half-open [start, end) sample ranges whose frame
// loudness is above -topDB relative to the clip peak. Ranges are in temporal
// order and never overlap. A digitally silent signal has no intervals.
func (sd *SilenceDetection) NonSilentIntervals(signal []float64, topDB float64, frameSize, hopSize int) [][2]int {
	rms := sd.envelopeExtractor.ComputeCenteredRMS(signal, frameSize, hopSize)
	if len(rms) == 0 {
		return nil
	}

	peak := 0.0
	for _, v := range rms {
		peak = math.Max(peak, v*v)
	}
	if peak < sd.amin {
		return nil
	}

	db := sd.loudnessDB(rms)

	var intervals [][2]int
	start := -1
	toSample := func(frame int) int {
		return min(frame*hopSize, len(signal))
	}

	for i, level := range db {
		loud := level > -topDB
		switch {
		case loud && start == -1:
			start = i
		case !loud && start != -1:
			if s, e := toSample(start), toSample(i); e > s {
				intervals = append(intervals, [2]int{s, e})
			}
			start = -1
		}
	}

	if start != -1 {
		if s, e := toSample(start), toSample(len(db)); e > s {
			intervals = append(intervals, [2]int{s, e})
		}
	}

	return intervals
}

// ComputeSilenceRatio calculates the ratio of frames at or below -topDB
func (sd *SilenceDetection) ComputeSilenceRatio(signal []float64, topDB float64, frameSize, hopSize int) float64 {
	db := sd.FrameLoudnessDB(signal, frameSize, hopSize)
	if len(db) == 0 {
		return 0.0
	}

	silent := 0
	for _, level := range db {
		if level <= -topDB {
			silent++
		}
	}

	return float64(silent) / float64(len(db))
}
