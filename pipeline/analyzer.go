package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/analysis"
	"github.com/RyanBlaney/sonido-bulbul/artifacts"
	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/scoring"
	"github.com/RyanBlaney/sonido-bulbul/transcode"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidParams is returned before any work when the round parameters are
// unusable
var ErrInvalidParams = errors.New("invalid round parameters")

// Submission is one recording submitted for scoring
type Submission struct {
	scoring.RoundParams

	// SourceName is the uploaded file name; its stem prefixes artifact keys
	SourceName string
	Audio      []byte
}

// RoundStore persists finished rounds and serves them back as session history
type RoundStore interface {
	scoring.History
	SaveRound(ctx context.Context, result *scoring.RoundResult) (string, error)
}

// Options wires the analyzer's collaborators
type Options struct {
	// Classifier is required; Analyze fails with classifier.ErrUnavailable
	// without one
	Classifier classifier.Classifier

	// Artifacts receives spectrograms, plots and segment audio. Nil skips
	// artifact output and leaves the refs empty.
	Artifacts artifacts.Store

	// Rounds persists results and answers final-round session lookups.
	// Nil disables persistence.
	Rounds RoundStore

	// Now stamps results; defaults to time.Now
	Now func() time.Time
}

// Analyzer runs the scoring pipeline. It holds no per-invocation state and
// may be shared across goroutines.
type Analyzer struct {
	cfg *config.Config

	preprocessor *analysis.Preprocessor
	segmenter    *analysis.Segmenter
	renderer     *analysis.Renderer
	counter      *analysis.SyllableCounter
	rule         scoring.Rule
	status       *scoring.StatusEvaluator

	classifier classifier.Classifier
	artifacts  artifacts.Store
	rounds     RoundStore
	now        func() time.Time
	logger     logging.Logger
}

// NewAnalyzer validates cfg and builds the pipeline stages
func NewAnalyzer(cfg *config.Config, opts Options) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	// A nil RoundStore must stay a nil interface for the evaluator
	var history scoring.History
	if opts.Rounds != nil {
		history = opts.Rounds
	}

	return &Analyzer{
		cfg:          cfg,
		preprocessor: analysis.NewPreprocessor(cfg),
		segmenter:    analysis.NewSegmenter(cfg.Segment),
		renderer:     analysis.NewRenderer(cfg),
		counter:      analysis.NewSyllableCounter(cfg.Syllable),
		rule:         scoring.NewRule(cfg.Scoring),
		status:       scoring.NewStatusEvaluator(cfg.Scoring.PassThreshold, history),
		classifier:   opts.Classifier,
		artifacts:    opts.Artifacts,
		rounds:       opts.Rounds,
		now:          now,
		logger:       logging.WithFields(logging.Fields{"component": "analyzer"}),
	}, nil
}

// Analyze scores one submission. It either returns a complete result whose
// artifacts are all committed, or an error and no committed artifacts.
func (a *Analyzer) Analyze(ctx context.Context, sub Submission) (*scoring.RoundResult, error) {
	if err := sub.RoundParams.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if a.classifier == nil {
		return nil, classifier.ErrUnavailable
	}

	ctx = logging.ContextWithFields(ctx, logging.Fields{
		"match":    sub.MatchName,
		"cage":     sub.CageNumber,
		"round_no": sub.RoundNo,
		"source":   sub.SourceName,
	})
	logger := a.logger.WithContext(ctx)
	started := a.now()

	result := &scoring.RoundResult{
		RoundParams: sub.RoundParams,
		SourceName:  sub.SourceName,
		Events:      []scoring.Event{},
		CreatedAt:   started,
	}

	audio, err := a.preprocessor.Process(ctx, sub.Audio)
	if err != nil && !errors.Is(err, analysis.ErrEmptySignal) {
		logger.Error(err, "Preprocessing failed")
		return nil, err
	}

	batch, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed && batch != nil {
			if err := batch.Discard(); err != nil {
				logger.Error(err, "Discarding artifacts failed")
			}
		}
	}()

	if audio == nil {
		logger.Info("Recording is silent, no events")
	} else {
		events, err := a.scoreEvents(ctx, batch, artifacts.Stem(sub.SourceName), audio)
		if err != nil {
			logger.Error(err, "Scoring events failed")
			return nil, err
		}
		result.Events = events
	}

	result.TotalScore, result.TotalEvents = scoring.Aggregate(result.Events)

	result.FinalStatus, err = a.status.Evaluate(ctx, result.RoundParams, result.TotalScore)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if batch != nil {
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}
	committed = true

	if a.rounds != nil {
		if _, err := a.rounds.SaveRound(ctx, result); err != nil {
			logger.Error(err, "Saving round failed")
			return nil, fmt.Errorf("save round: %w", err)
		}
	}

	logger.Info("Round scored", logging.Fields{
		"total_score":  result.TotalScore,
		"total_events": result.TotalEvents,
		"final_status": result.FinalStatus,
		"elapsed":      a.now().Sub(started).String(),
	})

	return result, nil
}

func (a *Analyzer) begin(ctx context.Context) (artifacts.Batch, error) {
	if a.artifacts == nil {
		return nil, nil
	}
	batch, err := a.artifacts.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin artifact batch: %w", err)
	}
	return batch, nil
}

// scoreEvents segments the recording and scores the events concurrently.
// Results keep temporal order regardless of completion order.
func (a *Analyzer) scoreEvents(ctx context.Context, batch artifacts.Batch, stem string, audio *transcode.AudioData) ([]scoring.Event, error) {
	intervals := a.segmenter.Segment(audio.PCM, audio.SampleRate)
	events := make([]scoring.Event, len(intervals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(a.cfg.Workers))

	for i, iv := range intervals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := a.scoreEvent(gctx, batch, stem, audio, iv, i+1)
			if err != nil {
				return fmt.Errorf("event %d: %w", i+1, err)
			}
			events[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}

func workerLimit(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}
