package histo

import (
	"fmt"
	"sort"
	"sync"

	zerrors "zastat/internal/errors"
)

// Store looks up histograms by name.
type Store interface {
	Get(name string) (*Histogram, error)
	Names() []string
}

// MemStore is a Store held in memory.
type MemStore struct {
	mu    sync.RWMutex
	hists map[string]*Histogram
}

// NewMemStore returns a store holding hists, keyed by their names.
func NewMemStore(hists ...*Histogram) *MemStore {
	s := &MemStore{hists: make(map[string]*Histogram, len(hists))}
	for _, h := range hists {
		s.Put(h)
	}
	return s
}

// Put adds or replaces h.
func (s *MemStore) Put(h *Histogram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hists[h.Name] = h
}

// Get returns the named histogram or a HISTOGRAM_NOT_FOUND error.
func (s *MemStore) Get(name string) (*Histogram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hists[name]
	if !ok {
		return nil, zerrors.New(zerrors.HistogramNotFound, fmt.Sprintf("no histogram named %q", name), nil)
	}
	return h, nil
}

// Names returns the stored names in sorted order.
func (s *MemStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.hists))
	for name := range s.hists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the stored histograms sorted by name.
func (s *MemStore) All() []*Histogram {
	names := s.Names()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Histogram, 0, len(names))
	for _, name := range names {
		out = append(out, s.hists[name])
	}
	return out
}
