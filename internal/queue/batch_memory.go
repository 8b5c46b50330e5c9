package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/fekuna/shopsync-service/internal/apperr"
)

type MemoryBatchStore struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{batches: make(map[string]*Batch)}
}

func (s *MemoryBatchStore) Create(_ context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *MemoryBatchStore) Get(_ context.Context, id string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryBatchStore) update(id string, fn func(b *Batch)) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, apperr.ErrNotFound)
	}
	fn(b)
	cp := *b
	return &cp, nil
}

func (s *MemoryBatchStore) AddJobs(_ context.Context, id string, n int) error {
	_, err := s.update(id, func(b *Batch) {
		b.Total += n
		b.Pending += n
	})
	return err
}

func (s *MemoryBatchStore) JobSucceeded(_ context.Context, id string) (*Batch, error) {
	return s.update(id, func(b *Batch) { b.Pending-- })
}

func (s *MemoryBatchStore) JobFailed(_ context.Context, id string) (*Batch, error) {
	return s.update(id, func(b *Batch) {
		b.Pending--
		b.Failed++
	})
}

func (s *MemoryBatchStore) Cancel(_ context.Context, id string) error {
	_, err := s.update(id, func(b *Batch) { b.Cancelled = true })
	return err
}

func (s *MemoryBatchStore) Cancelled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	return ok && b.Cancelled, nil
}
