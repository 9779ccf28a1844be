package scoring

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// Rule decides whether an event earns a point
type Rule struct {
	ConfidenceThreshold float64
	MinSyllables        int
}

// NewRule creates a rule from the scoring settings
func NewRule(cfg config.ScoringConfig) Rule {
	return Rule{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MinSyllables:        cfg.MinSyllables,
	}
}

// IsConfirmedSong reports whether p is confident song. Syllables are only
// counted for confirmed song.
func (r Rule) IsConfirmedSong(p classifier.Prediction) bool {
	return p.Label == classifier.Singing && p.Confidence >= r.ConfidenceThreshold
}

// IsCounted applies the full rule
func (r Rule) IsCounted(p classifier.Prediction, syllables int) bool {
	return r.IsConfirmedSong(p) && syllables >= r.MinSyllables
}

// Aggregate folds events into the round score and event count
func Aggregate(events []Event) (totalScore, totalEvents int) {
	for _, e := range events {
		if e.IsCounted {
			totalScore++
		}
	}
	return totalScore, len(events)
}

// History supplies the committed scores of earlier rounds in a session
type History interface {
	// PriorRoundScores returns the total_score of every persisted round in
	// the session with round_no below the final round
	PriorRoundScores(ctx context.Context, sessionID string) ([]int, error)
}

// StatusEvaluator computes a round's match status
type StatusEvaluator struct {
	passThreshold int
	history       History
	logger        logging.Logger
}

// NewStatusEvaluator creates an evaluator. history may be nil when no
// competition final rounds will be evaluated.
func NewStatusEvaluator(passThreshold int, history History) *StatusEvaluator {
	return &StatusEvaluator{
		passThreshold: passThreshold,
		history:       history,
		logger:        logging.WithFields(logging.Fields{"component": "status_evaluator"}),
	}
}

// Evaluate returns n/a for test rounds, pending before the final round and
// pass/fail for the final round using the session's summed score. Missing
// earlier rounds simply contribute nothing.
func (e *StatusEvaluator) Evaluate(ctx context.Context, params RoundParams, score int) (MatchStatus, error) {
	if params.Mode == Test {
		return StatusNA, nil
	}
	if params.RoundNo < FinalRound {
		return StatusPending, nil
	}
	if params.SessionID == "" {
		return "", ErrMissingSession
	}

	combined := score
	found := 0
	if e.history != nil {
		prior, err := e.history.PriorRoundScores(ctx, params.SessionID)
		if err != nil {
			return "", fmt.Errorf("load session %s: %w", params.SessionID, err)
		}
		for _, s := range prior {
			combined += s
		}
		found = len(prior)
	}

	status := StatusFail
	if combined >= e.passThreshold {
		status = StatusPass
	}

	e.logger.Debug("Final round evaluated", logging.Fields{
		"session_id":   params.SessionID,
		"prior_rounds": found,
		"combined":     combined,
		"threshold":    e.passThreshold,
		"status":       status,
	})

	return status, nil
}
