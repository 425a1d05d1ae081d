// Package cache memoizes rendered responses for a fixed window.
//
// A Store never invalidates single keys: entries leave either by expiring or
// through Clear, which drops all of them at once.
package cache

import (
	"context"
	"errors"
)

// Entry is one rendered response.
type Entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store is a keyed response cache with a fixed TTL.
type Store interface {
	// Get returns the entry stored under key, if it is still fresh.
	Get(ctx context.Context, key string) (*Entry, bool, error)
	// Set stores e under key for the store's TTL.
	Set(ctx context.Context, key string, e *Entry) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

var ErrNilEntry = errors.New("cache: nil entry")
