package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/scoring"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func round(match, cage string, roundNo int, session string, score int, status scoring.MatchStatus, minute int) *scoring.RoundResult {
	return &scoring.RoundResult{
		RoundParams: scoring.RoundParams{
			MatchName:  match,
			CageNumber: cage,
			RoundNo:    roundNo,
			Mode:       scoring.Competition,
			SessionID:  session,
		},
		TotalScore:  score,
		TotalEvents: score + 1,
		Events: []scoring.Event{
			{EventNo: 1, StartSec: 1.2, EndSec: 2.5, DurationSec: 1.3, Prediction: classifier.Singing, Confidence: 0.9312, Syllables: 4, IsCounted: true},
		},
		FinalStatus: status,
		CreatedAt:   baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func saveAll(t *testing.T, s *Store, rounds ...*scoring.RoundResult) {
	t.Helper()
	for _, r := range rounds {
		if _, err := s.SaveRound(context.Background(), r); err != nil {
			t.Fatalf("SaveRound: %v", err)
		}
	}
}

func TestPriorRoundScores(t *testing.T) {
	s := openTestStore(t)
	saveAll(t, s,
		round("Spring Cup", "7", 2, "s1", 3, scoring.StatusPending, 2),
		round("Spring Cup", "7", 1, "s1", 2, scoring.StatusPending, 1),
		round("Spring Cup", "7", 3, "s1", 2, scoring.StatusPending, 3),
		round("Spring Cup", "7", 4, "s1", 1, scoring.StatusPass, 4),
		round("Spring Cup", "9", 1, "s2", 5, scoring.StatusPending, 5),
	)

	scores, err := s.PriorRoundScores(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 3, 2}
	if len(scores) != len(want) {
		t.Fatalf("got %v, want %v", scores, want)
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("got %v, want %v", scores, want)
		}
	}

	empty, err := s.PriorRoundScores(context.Background(), "missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown session: %v, %v", empty, err)
	}
}

func TestStoreAsStatusHistory(t *testing.T) {
	s := openTestStore(t)
	saveAll(t, s,
		round("Spring Cup", "7", 1, "s1", 2, scoring.StatusPending, 1),
		round("Spring Cup", "7", 2, "s1", 3, scoring.StatusPending, 2),
		round("Spring Cup", "7", 3, "s1", 2, scoring.StatusPending, 3),
	)

	eval := scoring.NewStatusEvaluator(8, s)
	final := scoring.RoundParams{RoundNo: 4, Mode: scoring.Competition, SessionID: "s1"}

	if got, _ := eval.Evaluate(context.Background(), final, 1); got != scoring.StatusPass {
		t.Errorf("score 1: got %s, want pass", got)
	}
	if got, _ := eval.Evaluate(context.Background(), final, 0); got != scoring.StatusFail {
		t.Errorf("score 0: got %s, want fail", got)
	}
}

func TestPracticeRoundsStayOutOfSession(t *testing.T) {
	s := openTestStore(t)
	practice := round("Spring Cup", "7", 1, "s1", 1, scoring.StatusNA, 4)
	practice.Mode = scoring.Test
	saveAll(t, s,
		round("Spring Cup", "7", 1, "s1", 2, scoring.StatusPending, 1),
		round("Spring Cup", "7", 2, "s1", 3, scoring.StatusPending, 2),
		round("Spring Cup", "7", 3, "s1", 2, scoring.StatusPending, 3),
		practice,
	)

	scores, err := s.PriorRoundScores(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("got %v, want the three competition scores", scores)
	}

	eval := scoring.NewStatusEvaluator(8, s)
	final := scoring.RoundParams{RoundNo: 4, Mode: scoring.Competition, SessionID: "s1"}
	if got, _ := eval.Evaluate(context.Background(), final, 0); got != scoring.StatusFail {
		t.Errorf("score 0 after 7 prior points: got %s, want fail", got)
	}

	summary, err := s.SessionSummary(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalScore != 7 || len(summary.Rounds) != 3 {
		t.Errorf("summary = %d points over %d rounds, want 7 over 3", summary.TotalScore, len(summary.Rounds))
	}
}

func TestSessionSummary(t *testing.T) {
	s := openTestStore(t)
	saveAll(t, s,
		round("Spring Cup", "7", 4, "s1", 1, scoring.StatusPass, 4),
		round("Spring Cup", "7", 1, "s1", 2, scoring.StatusPending, 1),
		round("Spring Cup", "7", 3, "s1", 2, scoring.StatusPending, 3),
		round("Spring Cup", "7", 2, "s1", 3, scoring.StatusPending, 2),
	)

	summary, err := s.SessionSummary(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalScore != 8 || summary.FinalStatus != scoring.StatusPass {
		t.Errorf("summary = %d/%s, want 8/pass", summary.TotalScore, summary.FinalStatus)
	}
	if summary.MatchName != "Spring Cup" || summary.CageNumber != "7" {
		t.Errorf("summary identity = %s/%s", summary.MatchName, summary.CageNumber)
	}
	for i, r := range summary.Rounds {
		if r.RoundNo != i+1 {
			t.Errorf("round %d has round_no %d", i, r.RoundNo)
		}
	}

	ev := summary.Rounds[0].Events
	if len(ev) != 1 || ev[0].Prediction != classifier.Singing || ev[0].Confidence != 0.9312 {
		t.Errorf("events not round-tripped: %+v", ev)
	}
	if !summary.Rounds[0].CreatedAt.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("created_at = %v", summary.Rounds[0].CreatedAt)
	}

	if _, err := s.SessionSummary(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session: got %v, want ErrNotFound", err)
	}
}

func TestHistory(t *testing.T) {
	s := openTestStore(t)
	saveAll(t, s,
		round("Spring Cup", "7", 1, "s1", 2, scoring.StatusPending, 1),
		round("spring cup", "9", 1, "s2", 1, scoring.StatusPending, 2),
		round("Autumn Open", "7", 1, "s3", 4, scoring.StatusPending, 3),
		round("Spring Cup", "7", 2, "s1", 3, scoring.StatusPending, 4),
	)

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []int // minutes of the expected rounds, newest first
	}{
		{"all", HistoryFilter{}, []int{4, 3, 2, 1}},
		{"match substring any case", HistoryFilter{MatchName: "SPRING"}, []int{4, 2, 1}},
		{"cage exact", HistoryFilter{CageNumber: "7"}, []int{4, 3, 1}},
		{"both", HistoryFilter{MatchName: "cup", CageNumber: "9"}, []int{2}},
		{"limit", HistoryFilter{Limit: 2}, []int{4, 3}},
		{"cage is not a substring match", HistoryFilter{CageNumber: "77"}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.History(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rounds, want %d", len(got), len(tt.want))
			}
			for i, minute := range tt.want {
				if !got[i].CreatedAt.Equal(baseTime.Add(time.Duration(minute) * time.Minute)) {
					t.Errorf("result %d created at %v, want minute %d", i, got[i].CreatedAt, minute)
				}
			}
		})
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == b || len(a) != 36 {
		t.Errorf("session ids %q, %q", a, b)
	}
}
