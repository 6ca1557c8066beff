package workflow

import (
	"sort"
	"sync"
)

// Store holds workflows for the engine.
type Store interface {
	Put(wf *Workflow)
	Get(id string) (*Workflow, bool)
	Delete(id string)
	List() []*Workflow
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]*Workflow)}
}

func (s *MemoryStore) Put(wf *Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.id] = wf
}

func (s *MemoryStore) Get(id string) (*Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	return wf, ok
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
}

// List returns workflows ordered by creation time.
func (s *MemoryStore) List() []*Workflow {
	s.mu.RLock()
	out := make([]*Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}
