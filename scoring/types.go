package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/classifier"
)

// ErrMissingSession is returned for a final competition round submitted
// without the session id its verdict depends on
var ErrMissingSession = errors.New("final competition round requires a session id")

// ErrUnexpectedSession is returned for a test-mode round carrying a session
// id; practice rounds never join a competition session
var ErrUnexpectedSession = errors.New("test mode rounds cannot belong to a session")

// FinalRound is the round whose status is pass or fail
const FinalRound = 4

// Mode distinguishes scored contest rounds from practice runs
type Mode string

const (
	Competition Mode = "competition"
	Test        Mode = "test"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Competition, Test:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want competition or test)", s)
	}
}

// MatchStatus is the verdict attached to a round
type MatchStatus string

const (
	StatusNA      MatchStatus = "n/a"
	StatusPending MatchStatus = "pending"
	StatusPass    MatchStatus = "pass"
	StatusFail    MatchStatus = "fail"
)

// Event is one detected vocalization burst and its verdict
type Event struct {
	EventNo         int              `json:"event_no"`
	StartSec        float64          `json:"start_sec"`
	EndSec          float64          `json:"end_sec"`
	DurationSec     float64          `json:"duration_sec"`
	Prediction      classifier.Label `json:"prediction"`
	Confidence      float64          `json:"confidence"`
	Syllables       int              `json:"syllables"`
	IsCounted       bool             `json:"is_counted"`
	SpectrogramRef  string           `json:"spectrogram_ref"`
	PlotRef         string           `json:"plot_ref"`
	SegmentAudioRef string           `json:"segment_audio_ref"`
}

// RoundParams identifies a submitted round
type RoundParams struct {
	MatchName  string `json:"match_name"`
	CageNumber string `json:"cage_number"`
	RoundNo    int    `json:"round_no"`
	Mode       Mode   `json:"mode"`
	SessionID  string `json:"session_id,omitempty"`
}

// Validate checks the round number, mode and session rule
func (p RoundParams) Validate() error {
	if p.RoundNo < 1 || p.RoundNo > FinalRound {
		return fmt.Errorf("round_no must be between 1 and %d: %d", FinalRound, p.RoundNo)
	}
	if _, err := ParseMode(string(p.Mode)); err != nil {
		return err
	}
	if p.Mode == Competition && p.RoundNo == FinalRound && p.SessionID == "" {
		return ErrMissingSession
	}
	if p.Mode == Test && p.SessionID != "" {
		return ErrUnexpectedSession
	}
	return nil
}

// RoundResult is the scored outcome of one submitted recording
type RoundResult struct {
	RoundParams

	SourceName  string      `json:"source_name"`
	TotalScore  int         `json:"total_score"`
	TotalEvents int         `json:"total_events"`
	Events      []Event     `json:"events"`
	FinalStatus MatchStatus `json:"final_status"`
	CreatedAt   time.Time   `json:"created_at"`
}
