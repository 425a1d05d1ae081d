package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 1024

// MemoryStore is an in-process Store bounded by size.
type MemoryStore struct {
	lru *expirable.LRU[string, Entry]
}

// NewMemoryStore keeps at most size entries, each for ttl.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryStore{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	s.lru.Add(key, Entry{Status: e.Status, ContentType: e.ContentType, Body: body})
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.lru.Purge()
	return nil
}
