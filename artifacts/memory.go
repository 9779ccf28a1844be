package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// MemoryStore keeps committed artifacts in a map
type MemoryStore struct {
	mu        sync.Mutex
	committed map[string][]byte

	// FailOn makes Put fail for the given kind, for exercising error paths
	FailOn *Kind
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{committed: make(map[string][]byte)}
}

func (s *MemoryStore) Begin(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryBatch{store: s, staged: make(map[string][]byte)}, nil
}

// Get returns a committed artifact
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.committed[ref]
	return data, ok
}

// Refs lists committed refs in sorted order
func (s *MemoryStore) Refs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, 0, len(s.committed))
	for ref := range s.committed {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

type memoryBatch struct {
	store *MemoryStore

	mu     sync.Mutex
	staged map[string][]byte
	closed bool
}

func (b *memoryBatch) Put(kind Kind, key string, data []byte) (string, error) {
	if b.store.FailOn != nil && *b.store.FailOn == kind {
		return "", fmt.Errorf("%w: injected failure for %s", ErrWrite, kind.Dir())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", fmt.Errorf("%w: batch already closed", ErrWrite)
	}

	ref := Ref(kind, key)
	b.staged[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (b *memoryBatch) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("%w: batch already closed", ErrWrite)
	}
	b.closed = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for ref, data := range b.staged {
		if existing, ok := b.store.committed[ref]; ok && !bytes.Equal(existing, data) {
			return fmt.Errorf("%w: %w: %s", ErrWrite, ErrConflict, ref)
		}
	}
	maps.Copy(b.store.committed, b.staged)
	return nil
}

func (b *memoryBatch) Discard() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.staged = nil
	return nil
}
