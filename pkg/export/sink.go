package export

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by MemorySink.Get for unknown or evicted artifacts.
var ErrNotFound = errors.New("artifact not found")

// Sink stores or forwards a delivered artifact.
type Sink interface {
	Name() string
	Put(ctx context.Context, a *Artifact) error
}

// DefaultMemoryKeep is the MemorySink capacity used when keep <= 0.
const DefaultMemoryKeep = 16

// MemorySink keeps the most recent artifacts in memory for download.
type MemorySink struct {
	mu    sync.RWMutex
	keep  int
	order []string
	byID  map[string]*Artifact
}

// NewMemorySink creates a sink holding at most keep artifacts; older ones are evicted first.
func NewMemorySink(keep int) *MemorySink {
	if keep <= 0 {
		keep = DefaultMemoryKeep
	}
	return &MemorySink{
		keep: keep,
		byID: make(map[string]*Artifact, keep),
	}
}

// Name implements Sink.
func (s *MemorySink) Name() string { return "memory" }

// Put implements Sink.
func (s *MemorySink) Put(_ context.Context, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.byID[a.ID] = a

	for len(s.order) > s.keep {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get returns the artifact with the given id.
func (s *MemorySink) Get(id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns the stored artifacts, newest first.
func (s *MemorySink) List() []*Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Artifact, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out
}
