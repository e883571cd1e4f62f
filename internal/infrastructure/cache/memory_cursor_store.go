package cache

import (
	"context"
	"sync"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

// MemoryCursorStore implements feed.CursorStore in process memory. Suitable
// for single-instance deployments and tests; cursors reset on restart,
// which only costs a wider first poll.
type MemoryCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string
}

// NewMemoryCursorStore creates an empty in-memory cursor store
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

func memKey(sellerCode string, marketplace feed.Marketplace) string {
	return string(marketplace) + ":" + sellerCode
}

// Get returns the stored cursor, or "" when none exists yet
func (s *MemoryCursorStore) Get(_ context.Context, sellerCode string, marketplace feed.Marketplace) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[memKey(sellerCode, marketplace)], nil
}

// Set stores the cursor
func (s *MemoryCursorStore) Set(_ context.Context, sellerCode string, marketplace feed.Marketplace, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[memKey(sellerCode, marketplace)] = cursor
	return nil
}
