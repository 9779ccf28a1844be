package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

type fakeHistory map[string][]int

func (f fakeHistory) PriorRoundScores(ctx context.Context, sessionID string) ([]int, error) {
	return f[sessionID], nil
}

type failingHistory struct{}

func (failingHistory) PriorRoundScores(ctx context.Context, sessionID string) ([]int, error) {
	return nil, errors.New("database locked")
}

func TestRule(t *testing.T) {
	rule := NewRule(config.DefaultConfig().Scoring)

	tests := []struct {
		name      string
		pred      classifier.Prediction
		syllables int
		confirmed bool
		counted   bool
	}{
		{"confident song with syllables", classifier.Prediction{Label: classifier.Singing, Confidence: 0.9}, 3, true, true},
		{"threshold confidence counts", classifier.Prediction{Label: classifier.Singing, Confidence: 0.6}, 5, true, true},
		{"too few syllables", classifier.Prediction{Label: classifier.Singing, Confidence: 0.9}, 2, true, false},
		{"low confidence", classifier.Prediction{Label: classifier.Singing, Confidence: 0.59}, 10, false, false},
		{"noise", classifier.Prediction{Label: classifier.Noise, Confidence: 0.99}, 10, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.IsConfirmedSong(tt.pred); got != tt.confirmed {
				t.Errorf("IsConfirmedSong = %v, want %v", got, tt.confirmed)
			}
			if got := rule.IsCounted(tt.pred, tt.syllables); got != tt.counted {
				t.Errorf("IsCounted = %v, want %v", got, tt.counted)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	events := []Event{{IsCounted: true}, {IsCounted: false}, {IsCounted: true}}
	score, total := Aggregate(events)
	if score != 2 || total != 3 {
		t.Errorf("Aggregate = %d/%d, want 2/3", score, total)
	}

	score, total = Aggregate(nil)
	if score != 0 || total != 0 {
		t.Errorf("Aggregate(nil) = %d/%d", score, total)
	}
}

func TestEvaluate(t *testing.T) {
	history := fakeHistory{
		"full":    {2, 3, 2},
		"partial": {5},
	}
	eval := NewStatusEvaluator(8, history)
	ctx := context.Background()

	tests := []struct {
		name   string
		params RoundParams
		score  int
		want   MatchStatus
	}{
		{"round 1 pending", RoundParams{RoundNo: 1, Mode: Competition, SessionID: "full"}, 9, StatusPending},
		{"round 2 pending", RoundParams{RoundNo: 2, Mode: Competition}, 0, StatusPending},
		{"round 3 pending", RoundParams{RoundNo: 3, Mode: Competition, SessionID: "full"}, 12, StatusPending},
		{"final round reaches threshold", RoundParams{RoundNo: 4, Mode: Competition, SessionID: "full"}, 1, StatusPass},
		{"final round one short", RoundParams{RoundNo: 4, Mode: Competition, SessionID: "full"}, 0, StatusFail},
		{"incomplete session sums what exists", RoundParams{RoundNo: 4, Mode: Competition, SessionID: "partial"}, 3, StatusPass},
		{"unknown session", RoundParams{RoundNo: 4, Mode: Competition, SessionID: "other"}, 7, StatusFail},
		{"test mode round 1", RoundParams{RoundNo: 1, Mode: Test}, 5, StatusNA},
		{"test mode round 4", RoundParams{RoundNo: 4, Mode: Test}, 20, StatusNA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(ctx, tt.params, tt.score)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewStatusEvaluator(8, fakeHistory{}).Evaluate(ctx, RoundParams{RoundNo: 4, Mode: Competition}, 8)
	if !errors.Is(err, ErrMissingSession) {
		t.Errorf("got %v, want ErrMissingSession", err)
	}

	_, err = NewStatusEvaluator(8, failingHistory{}).Evaluate(ctx, RoundParams{RoundNo: 4, Mode: Competition, SessionID: "s"}, 8)
	if err == nil {
		t.Error("expected history error to surface")
	}
}

func TestRoundParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  RoundParams
		wantErr error
		ok      bool
	}{
		{"competition round 1", RoundParams{RoundNo: 1, Mode: Competition}, nil, true},
		{"final with session", RoundParams{RoundNo: 4, Mode: Competition, SessionID: "s"}, nil, true},
		{"test final without session", RoundParams{RoundNo: 4, Mode: Test}, nil, true},
		{"final without session", RoundParams{RoundNo: 4, Mode: Competition}, ErrMissingSession, false},
		{"test round with session", RoundParams{RoundNo: 1, Mode: Test, SessionID: "s"}, ErrUnexpectedSession, false},
		{"round 0", RoundParams{RoundNo: 0, Mode: Test}, nil, false},
		{"round 5", RoundParams{RoundNo: 5, Mode: Competition}, nil, false},
		{"bad mode", RoundParams{RoundNo: 1, Mode: "practice"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok %v", err, tt.ok)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
