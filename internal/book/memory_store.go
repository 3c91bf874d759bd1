package book

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 内存实现，用于测试和单次命令行调用
type MemoryStore struct {
	mu        sync.RWMutex
	books     map[string]*Book
	summaries map[string]*Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:     make(map[string]*Book),
		summaries: make(map[string]*Summary),
	}
}

func (s *MemoryStore) PutBook(b *Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = b
}

func (s *MemoryStore) PutSummary(sum *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.ID] = sum
}

func (s *MemoryStore) Book(ctx context.Context, id string) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return b, nil
}

func (s *MemoryStore) Summary(ctx context.Context, id string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return sum, nil
}
