package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/RyanBlaney/sonido-bulbul/analysis"
)

// ErrUnavailable is returned when no classifier is configured or the
// configured one cannot be reached. It aborts the whole invocation.
var ErrUnavailable = errors.New("classifier unavailable")

// Label is a classifier output class
type Label string

const (
	Noise   Label = "noise"
	Singing Label = "singing"
)

// Classes is the model's output order
var Classes = []Label{Noise, Singing}

// ParseLabel accepts "noise"/"singing" and the model's raw class directory
// names ("0_noise", "1_singing")
func ParseLabel(s string) (Label, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(name, '_'); i > 0 {
		name = name[i+1:]
	}
	switch Label(name) {
	case Noise:
		return Noise, nil
	case Singing:
		return Singing, nil
	default:
		return "", fmt.Errorf("unknown label %q", s)
	}
}

// Prediction is a classifier verdict for one spectrogram
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps a spectrogram image to a label. Implementations must be
// safe for concurrent use; wrap non-reentrant ones in Serialized.
type Classifier interface {
	Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error)
}

// Stub always returns the same prediction
type Stub struct {
	Prediction Prediction
}

// NewStub creates a stub classifier
func NewStub(label Label, confidence float64) *Stub {
	return &Stub{Prediction: Prediction{Label: label, Confidence: confidence}}
}

func (s *Stub) Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	return s.Prediction, nil
}

// Func adapts a function to the Classifier interface
type Func func(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error)

func (f Func) Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error) {
	return f(ctx, spec)
}

// Scripted returns its predictions in call order and fails once they run
// out. Calls must be sequential for the order to be meaningful.
type Scripted struct {
	mu          sync.Mutex
	predictions []Prediction
	calls       int
}

// NewScripted creates a scripted classifier
func NewScripted(predictions ...Prediction) *Scripted {
	return &Scripted{predictions: predictions}
}

func (s *Scripted) Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls >= len(s.predictions) {
		return Prediction{}, fmt.Errorf("scripted classifier exhausted after %d calls", s.calls)
	}
	p := s.predictions[s.calls]
	s.calls++
	return p, nil
}

// Calls returns how many times Classify was invoked
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Serialized lets one call at a time through to the wrapped classifier
type Serialized struct {
	mu    sync.Mutex
	inner Classifier
}

// NewSerialized wraps inner
func NewSerialized(inner Classifier) *Serialized {
	return &Serialized{inner: inner}
}

func (s *Serialized) Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Classify(ctx, spec)
}
