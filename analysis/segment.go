package analysis

import (
	"sort"

	"github.com/RyanBlaney/sonido-bulbul/algorithms/temporal"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// Segmenter finds vocalization bursts: loud regions split on silence, merged
// across short gaps and filtered by duration
type Segmenter struct {
	detector *temporal.SilenceDetection
	cfg      config.SegmentConfig
	logger   logging.Logger
}

// NewSegmenter creates a segmenter from the segment settings
func NewSegmenter(cfg config.SegmentConfig) *Segmenter {
	return &Segmenter{
		detector: temporal.NewSilenceDetection(),
		cfg:      cfg,
		logger:   logging.WithFields(logging.Fields{"component": "segmenter"}),
	}
}

// Segment returns the surviving event intervals in temporal order
func (s *Segmenter) Segment(signal []float64, sampleRate int) []Interval {
	raw := s.Detect(signal)
	merged := Merge(raw, s.cfg.MergeGap, sampleRate)
	events := FilterShort(merged, s.cfg.MinDuration, sampleRate)

	s.logger.Debug("Intervals detected", logging.Fields{
		"raw":           len(raw),
		"merged":        len(merged),
		"events":        len(events),
		"silence_ratio": s.detector.ComputeSilenceRatio(signal, s.cfg.TopDB, s.cfg.FrameLength, s.cfg.HopLength),
	})

	return events
}

// Detect splits signal into non-silent intervals
func (s *Segmenter) Detect(signal []float64) []Interval {
	ranges := s.detector.NonSilentIntervals(signal, s.cfg.TopDB, s.cfg.FrameLength, s.cfg.HopLength)
	intervals := make([]Interval, len(ranges))
	for i, r := range ranges {
		intervals[i] = Interval{Start: r[0], End: r[1]}
	}
	return intervals
}

// Merge folds intervals sorted by start into spans, joining neighbours whose
// gap is shorter than gapSeconds. A merged span covers [min(start), max(end)].
// The input slice is not modified.
func Merge(intervals []Interval, gapSeconds float64, sampleRate int) []Interval {
	if len(intervals) == 0 {
		return []Interval{}
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		gap := float64(next.Start-current.End) / float64(sampleRate)
		if gap < gapSeconds {
			current.End = max(current.End, next.End)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// FilterShort drops intervals shorter than minSeconds
func FilterShort(intervals []Interval, minSeconds float64, sampleRate int) []Interval {
	kept := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Duration(sampleRate) >= minSeconds {
			kept = append(kept, iv)
		}
	}
	return kept
}
