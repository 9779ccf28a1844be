package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/scoring"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session has no persisted rounds
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit caps History when the filter sets no limit
const DefaultHistoryLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id           TEXT PRIMARY KEY,
	match_name   TEXT NOT NULL,
	cage_number  TEXT NOT NULL,
	round_no     INTEGER NOT NULL,
	mode         TEXT NOT NULL,
	session_id   TEXT NOT NULL DEFAULT '',
	source_name  TEXT NOT NULL DEFAULT '',
	total_score  INTEGER NOT NULL,
	total_events INTEGER NOT NULL,
	final_status TEXT NOT NULL,
	events       TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, round_no);
CREATE INDEX IF NOT EXISTS idx_rounds_created ON rounds(created_at);
`

const roundColumns = `id, match_name, cage_number, round_no, mode, session_id, source_name,
	total_score, total_events, final_status, events, created_at`

// Round is a persisted round result
type Round struct {
	ID string `json:"id"`
	scoring.RoundResult
}

// SessionSummary folds the rounds of one session
type SessionSummary struct {
	SessionID   string              `json:"session_id"`
	MatchName   string              `json:"match_name"`
	CageNumber  string              `json:"cage_number"`
	TotalScore  int                 `json:"total_score"`
	FinalStatus scoring.MatchStatus `json:"final_status"`
	Rounds      []Round             `json:"rounds"`
}

// HistoryFilter narrows History. Empty fields match everything.
type HistoryFilter struct {
	MatchName  string // case-insensitive substring
	CageNumber string // exact
	Limit      int
}

// Store persists round results in SQLite
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: keeps :memory: a single database and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{
		db:     db,
		logger: logging.WithFields(logging.Fields{"component": "round_store"}),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSessionID returns a fresh session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// SaveRound persists result and returns its id
func (s *Store) SaveRound(ctx context.Context, result *scoring.RoundResult) (string, error) {
	events := result.Events
	if events == nil {
		events = []scoring.Event{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode events: %w", err)
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (`+roundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, result.MatchName, result.CageNumber, result.RoundNo, string(result.Mode),
		result.SessionID, result.SourceName, result.TotalScore, result.TotalEvents,
		string(result.FinalStatus), string(eventsJSON), createdAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert round: %w", err)
	}

	s.logger.Debug("Round saved", logging.Fields{
		"id":         id,
		"session_id": result.SessionID,
		"round_no":   result.RoundNo,
		"score":      result.TotalScore,
	})
	return id, nil
}

// PriorRoundScores returns the scores of the session's competition rounds
// before the final one, ordered by round number
func (s *Store) PriorRoundScores(ctx context.Context, sessionID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT total_score
		FROM rounds
		WHERE session_id = ? AND mode = ? AND round_no < ?
		ORDER BY round_no ASC, created_at ASC
	`, sessionID, string(scoring.Competition), scoring.FinalRound)
	if err != nil {
		return nil, fmt.Errorf("query prior rounds: %w", err)
	}
	defer rows.Close()

	scores := []int{}
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// SessionRounds returns up to four competition rounds of a session ordered by
// round number
func (s *Store) SessionRounds(ctx context.Context, sessionID string) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roundColumns+`
		FROM rounds
		WHERE session_id = ? AND mode = ?
		ORDER BY round_no ASC, created_at ASC
		LIMIT ?
	`, sessionID, string(scoring.Competition), scoring.FinalRound)
	if err != nil {
		return nil, fmt.Errorf("query session rounds: %w", err)
	}
	defer rows.Close()

	return scanRounds(rows)
}

// SessionSummary sums a session's rounds; the status is the last round's
func (s *Store) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	rounds, err := s.SessionRounds(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	summary := &SessionSummary{
		SessionID:   sessionID,
		MatchName:   rounds[0].MatchName,
		CageNumber:  rounds[0].CageNumber,
		FinalStatus: rounds[len(rounds)-1].FinalStatus,
		Rounds:      rounds,
	}
	for _, r := range rounds {
		summary.TotalScore += r.TotalScore
	}
	return summary, nil
}

// History lists rounds newest first
func (s *Store) History(ctx context.Context, filter HistoryFilter) ([]Round, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roundColumns+`
		FROM rounds
		WHERE (? = '' OR instr(lower(match_name), lower(?)) > 0)
		  AND (? = '' OR cage_number = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, filter.MatchName, filter.MatchName, filter.CageNumber, filter.CageNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanRounds(rows)
}

func scanRounds(rows *sql.Rows) ([]Round, error) {
	rounds := []Round{}
	for rows.Next() {
		var r Round
		var mode, status, eventsJSON string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.MatchName, &r.CageNumber, &r.RoundNo, &mode,
			&r.SessionID, &r.SourceName, &r.TotalScore, &r.TotalEvents, &status,
			&eventsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.Mode = scoring.Mode(mode)
		r.FinalStatus = scoring.MatchStatus(status)
		r.CreatedAt = time.Unix(0, createdAt)
		if err := json.Unmarshal([]byte(eventsJSON), &r.Events); err != nil {
			return nil, fmt.Errorf("decode events of round %s: %w", r.ID, err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
