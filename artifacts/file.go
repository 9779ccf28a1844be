package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/RyanBlaney/sonido-bulbul/logging"
	"github.com/google/uuid"
)

// FileStore keeps artifacts under a root directory. Batches are staged in a
// hidden directory under the root and moved into place by rename on commit,
// so readers never see a half-written round.
type FileStore struct {
	root   string
	logger logging.Logger

	// mu serializes commits so the conflict check and the renames of one
	// batch are not interleaved with another batch's
	mu sync.Mutex
}

// NewFileStore creates the root directory if needed
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create artifact root: %v", ErrWrite, err)
	}
	return &FileStore{
		root:   root,
		logger: logging.WithFields(logging.Fields{"component": "artifact_store", "root": root}),
	}, nil
}

// Root returns the artifact root directory
func (s *FileStore) Root() string {
	return s.root
}

// Path resolves a ref to its file path
func (s *FileStore) Path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func (s *FileStore) Begin(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	staging := filepath.Join(s.root, ".staging-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging dir: %v", ErrWrite, err)
	}
	return &fileBatch{store: s, staging: staging}, nil
}

type fileBatch struct {
	store   *FileStore
	staging string

	mu     sync.Mutex
	refs   []string
	closed bool
}

func (b *fileBatch) Put(kind Kind, key string, data []byte) (string, error) {
	ref := Ref(kind, key)
	path := filepath.Join(b.staging, filepath.FromSlash(ref))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", fmt.Errorf("%w: batch already closed", ErrWrite)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	b.refs = append(b.refs, ref)
	return ref, nil
}

func (b *fileBatch) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("%w: batch already closed", ErrWrite)
	}
	b.closed = true
	defer os.RemoveAll(b.staging)

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	// Check every ref before moving anything so a conflict leaves the
	// committed tree untouched
	pending := make([]string, 0, len(b.refs))
	for _, ref := range b.refs {
		same, err := b.matchesCommitted(ref)
		if err != nil {
			b.store.logger.Error(err, "Artifact commit refused", logging.Fields{"ref": ref})
			return err
		}
		if !same {
			pending = append(pending, ref)
		}
	}

	for _, ref := range pending {
		src := filepath.Join(b.staging, filepath.FromSlash(ref))
		dst := b.store.Path(ref)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("%w: commit %s: %v", ErrWrite, ref, err)
		}
	}

	b.store.logger.Debug("Artifacts committed", logging.Fields{
		"count":     len(pending),
		"unchanged": len(b.refs) - len(pending),
	})
	return nil
}

// matchesCommitted reports whether ref is already committed with the staged
// content. A committed file with other content is an ErrConflict.
func (b *fileBatch) matchesCommitted(ref string) (bool, error) {
	existing, err := os.ReadFile(b.store.Path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", ErrWrite, ref, err)
	}

	staged, err := os.ReadFile(filepath.Join(b.staging, filepath.FromSlash(ref)))
	if err != nil {
		return false, fmt.Errorf("%w: read staged %s: %v", ErrWrite, ref, err)
	}
	if !bytes.Equal(existing, staged) {
		return false, fmt.Errorf("%w: %w: %s", ErrWrite, ErrConflict, ref)
	}
	return true, nil
}

func (b *fileBatch) Discard() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if err := os.RemoveAll(b.staging); err != nil {
		return fmt.Errorf("%w: discard staging dir: %v", ErrWrite, err)
	}
	b.store.logger.Debug("Artifacts discarded", logging.Fields{"count": len(b.refs)})
	return nil
}
