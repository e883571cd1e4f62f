package feedhttp

import (
	"fmt"
	"sync"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

// FeedRegistry implements feed.Registry over a fixed adapter set built at
// startup from configuration
type FeedRegistry struct {
	mu    sync.RWMutex
	feeds map[feed.Marketplace]feed.MarketplaceFeed
}

// NewFeedRegistry creates an empty registry
func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{feeds: make(map[feed.Marketplace]feed.MarketplaceFeed)}
}

// Register adds a feed adapter; registering a marketplace twice replaces
// the previous adapter
func (r *FeedRegistry) Register(adapter feed.MarketplaceFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[adapter.Marketplace()] = adapter
}

// GetFeed returns the feed adapter for the marketplace
func (r *FeedRegistry) GetFeed(marketplace feed.Marketplace) (feed.MarketplaceFeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.feeds[marketplace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", feed.ErrFeedNotConfigured, marketplace)
	}
	return adapter, nil
}

// ListFeeds returns all registered feed adapters
func (r *FeedRegistry) ListFeeds() []feed.MarketplaceFeed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]feed.MarketplaceFeed, 0, len(r.feeds))
	for _, adapter := range r.feeds {
		out = append(out, adapter)
	}
	return out
}
