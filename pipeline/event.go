package pipeline

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-bulbul/algorithms/common"
	"github.com/RyanBlaney/sonido-bulbul/analysis"
	"github.com/RyanBlaney/sonido-bulbul/artifacts"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/scoring"
	"github.com/RyanBlaney/sonido-bulbul/transcode"
)

// scoreEvent renders, classifies and (for confirmed song) counts syllables
// for one interval
func (a *Analyzer) scoreEvent(ctx context.Context, batch artifacts.Batch, stem string, audio *transcode.AudioData, iv analysis.Interval, eventNo int) (scoring.Event, error) {
	sr := audio.SampleRate
	start, end := iv.Seconds(sr)

	ev := scoring.Event{
		EventNo:     eventNo,
		StartSec:    common.RoundTo(start, 2),
		EndSec:      common.RoundTo(end, 2),
		DurationSec: common.RoundTo(iv.Duration(sr), 2),
	}
	key := artifacts.Key(stem, ev.StartSec, ev.EndSec)

	segment := a.renderer.Extract(audio.PCM, iv)

	spec, err := a.renderer.Render(segment)
	if err != nil {
		return ev, err
	}

	if batch != nil {
		png, err := spec.PNG()
		if err != nil {
			return ev, err
		}
		if ev.SpectrogramRef, err = batch.Put(artifacts.Spectrogram, key, png); err != nil {
			return ev, err
		}

		wav, err := transcode.EncodeWAV(segment, sr)
		if err != nil {
			return ev, fmt.Errorf("encode segment: %w", err)
		}
		if ev.SegmentAudioRef, err = batch.Put(artifacts.SegmentAudio, key, wav); err != nil {
			return ev, err
		}
	}

	pred, err := a.classifier.Classify(ctx, spec)
	if err != nil {
		return ev, fmt.Errorf("classify: %w", err)
	}
	ev.Prediction = pred.Label
	// The decision uses the raw confidence; only the reported value is rounded
	ev.Confidence = common.RoundTo(pred.Confidence, 4)

	if a.rule.IsConfirmedSong(pred) {
		syllables := a.counter.Count(segment, sr)
		ev.Syllables = syllables.Count()

		if batch != nil && a.cfg.Syllable.Plot {
			plot, err := syllables.Plot()
			if err != nil {
				return ev, err
			}
			if ev.PlotRef, err = batch.Put(artifacts.Plot, key, plot); err != nil {
				return ev, err
			}
		}
	}

	ev.IsCounted = a.rule.IsCounted(pred, ev.Syllables)

	a.logger.WithContext(ctx).Debug("Event scored", logging.Fields{
		"event_no":   ev.EventNo,
		"start_sec":  ev.StartSec,
		"end_sec":    ev.EndSec,
		"prediction": ev.Prediction,
		"confidence": ev.Confidence,
		"syllables":  ev.Syllables,
		"is_counted": ev.IsCounted,
	})

	return ev, nil
}
