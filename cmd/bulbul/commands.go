package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/RyanBlaney/sonido-bulbul/artifacts"
	"github.com/RyanBlaney/sonido-bulbul/classifier"
	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/RyanBlaney/sonido-bulbul/pipeline"
	"github.com/RyanBlaney/sonido-bulbul/scoring"
	"github.com/RyanBlaney/sonido-bulbul/store"
)

type ScoreCmd struct {
	File    string `arg:"" type:"existingfile" help:"Round recording"`
	Match   string `required:"" help:"Match name"`
	Cage    string `required:"" help:"Cage number"`
	Round   int    `required:"" help:"Round number (1-4)"`
	Mode    string `default:"competition" enum:"competition,test" help:"Scoring mode"`
	Session string `help:"Session id linking the four rounds of one bird"`

	ClassifierURL  string  `name:"classifier-url" help:"Model server predict endpoint; overrides the config file"`
	StubLabel      string  `help:"Skip the model server and answer every event with this label"`
	StubConfidence float64 `default:"1.0" help:"Confidence reported with --stub-label"`

	Artifacts string `type:"path" default:"uploads" help:"Directory receiving spectrograms, plots and segments"`
	NoStore   bool   `help:"Do not persist the round to the database"`
}

func (s *ScoreCmd) Run(rt *runtime) error {
	mode, err := scoring.ParseMode(s.Mode)
	if err != nil {
		return err
	}

	c, err := s.classifier(rt)
	if err != nil {
		return err
	}

	audio, err := os.ReadFile(s.File)
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}

	files, err := artifacts.NewFileStore(s.Artifacts)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Classifier: c, Artifacts: files}
	if !s.NoStore {
		db, err := store.Open(rt.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Rounds = db
	}

	analyzer, err := pipeline.NewAnalyzer(rt.cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := analyzer.Analyze(ctx, pipeline.Submission{
		RoundParams: scoring.RoundParams{
			MatchName:  s.Match,
			CageNumber: s.Cage,
			RoundNo:    s.Round,
			Mode:       mode,
			SessionID:  s.Session,
		},
		SourceName: filepath.Base(s.File),
		Audio:      audio,
	})
	if err != nil {
		return err
	}

	return writeJSON(os.Stdout, result)
}

func (s *ScoreCmd) classifier(rt *runtime) (classifier.Classifier, error) {
	if s.StubLabel != "" {
		label, err := classifier.ParseLabel(s.StubLabel)
		if err != nil {
			return nil, err
		}
		if s.StubConfidence < 0 || s.StubConfidence > 1 {
			return nil, fmt.Errorf("stub confidence %v outside [0, 1]", s.StubConfidence)
		}
		logging.Warn("Using stub classifier", logging.Fields{"label": label, "confidence": s.StubConfidence})
		return classifier.NewStub(label, s.StubConfidence), nil
	}

	url := rt.cfg.Classifier.URL
	if s.ClassifierURL != "" {
		url = s.ClassifierURL
	}
	if url == "" {
		return nil, fmt.Errorf("%w: set --classifier-url, classifier.url or --stub-label", classifier.ErrUnavailable)
	}
	// One inference at a time keeps a single model server from being flooded
	return classifier.NewSerialized(classifier.NewHTTP(url, rt.cfg.Classifier.Timeout)), nil
}

type SessionCmd struct {
	ID string `arg:"" help:"Session id"`
}

func (s *SessionCmd) Run(rt *runtime) error {
	db, err := store.Open(rt.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.SessionSummary(context.Background(), s.ID)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, summary)
}

type HistoryCmd struct {
	Match string `help:"Match name substring, any case"`
	Cage  string `help:"Exact cage number"`
	Limit int    `default:"100" help:"Maximum rounds listed"`
}

func (h *HistoryCmd) Run(rt *runtime) error {
	db, err := store.Open(rt.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rounds, err := db.History(context.Background(), store.HistoryFilter{
		MatchName:  h.Match,
		CageNumber: h.Cage,
		Limit:      h.Limit,
	})
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, rounds)
}

type NewSessionCmd struct{}

func (n *NewSessionCmd) Run() error {
	fmt.Println(store.NewSessionID())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
