package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrWrite wraps every failure to stage or commit an artifact
var ErrWrite = errors.New("artifact write failed")

// ErrConflict is returned, wrapped in ErrWrite, when a commit would replace a
// committed artifact with different content
var ErrConflict = errors.New("artifact already exists with different content")

// Kind is the type of a per-event artifact
type Kind int

const (
	Spectrogram Kind = iota
	Plot
	SegmentAudio
)

// Dir is the directory a kind is committed under
func (k Kind) Dir() string {
	switch k {
	case Spectrogram:
		return "spectrograms"
	case Plot:
		return "plots"
	default:
		return "segments"
	}
}

// Suffix is appended to the event key
func (k Kind) Suffix() string {
	switch k {
	case Spectrogram:
		return "_spec.png"
	case Plot:
		return "_plot.png"
	default:
		return "_seg.wav"
	}
}

// Ref is the root-relative slash path a committed artifact is served from
func Ref(kind Kind, key string) string {
	return kind.Dir() + "/" + key + kind.Suffix()
}

// Stem strips directories and the extension from a source file name
func Stem(sourceName string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "recording"
	}
	return stem
}

// Key names an event's artifacts: {stem}_{start}s-{end}s with seconds at two
// decimals and the decimal point written as "_"
func Key(stem string, startSec, endSec float64) string {
	seconds := func(v float64) string {
		return strings.ReplaceAll(fmt.Sprintf("%.2f", v), ".", "_")
	}
	return fmt.Sprintf("%s_%ss-%ss", stem, seconds(startSec), seconds(endSec))
}

// Store hands out batches. Nothing staged in a batch is visible until the
// batch commits.
type Store interface {
	Begin(ctx context.Context) (Batch, error)
}

// Batch collects the artifacts of one invocation. Put is safe for concurrent
// use. After Commit or Discard the batch must not be reused.
type Batch interface {
	// Put stages data and returns the ref it will have once committed
	Put(kind Kind, key string, data []byte) (string, error)
	Commit() error
	Discard() error
}
