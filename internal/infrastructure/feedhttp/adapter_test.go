package feedhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *HTTPAdapter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewHTTPAdapter(AdapterConfig{
		Marketplace: feed.MarketplaceMercari,
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	return adapter
}

func TestHTTPAdapterFetchBatch(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/records", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "seller-1", r.URL.Query().Get("seller"))
		assert.Equal(t, "new", r.URL.Query().Get("mode"))
		assert.Equal(t, "c-41", r.URL.Query().Get("cursor"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"records": [
				{"kind": "order", "payload": {"order_id": "ord-1"}},
				{"kind": "message", "payload": {"message_id": "msg-1"}}
			],
			"next_cursor": "c-42",
			"has_more": true
		}`))
	})

	batch, err := adapter.FetchBatch(context.Background(), "seller-1", feed.NewSinceCursor("c-41"))
	require.NoError(t, err)

	assert.Len(t, batch.Records, 2)
	assert.Equal(t, feed.RecordKindOrder, batch.Records[0].Kind)
	assert.Equal(t, "c-42", batch.NextCursor)
	assert.True(t, batch.HasMore)
}

func TestHTTPAdapterWindowScope(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "updated", r.URL.Query().Get("mode"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"records": [], "has_more": false}`))
	})

	batch, err := adapter.FetchBatch(context.Background(), "seller-1", feed.UpdatedWithin(from, to))
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.False(t, batch.HasMore)
}

func TestHTTPAdapterErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, feed.ErrFeedRateLimited},
		{"server error", http.StatusBadGateway, feed.ErrFeedUnavailable},
		{"auth rejected", http.StatusUnauthorized, feed.ErrFeedRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := adapter.FetchBatch(context.Background(), "seller-1", feed.NewSinceCursor(""))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPAdapterInvalidResponse(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := adapter.FetchBatch(context.Background(), "seller-1", feed.NewSinceCursor(""))
	assert.ErrorIs(t, err, feed.ErrFeedInvalidResponse)
}

func TestFeedRegistry(t *testing.T) {
	registry := NewFeedRegistry()

	_, err := registry.GetFeed(feed.MarketplaceMercari)
	assert.ErrorIs(t, err, feed.ErrFeedNotConfigured)

	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	registry.Register(adapter)

	got, err := registry.GetFeed(feed.MarketplaceMercari)
	require.NoError(t, err)
	assert.Equal(t, adapter, got)
	assert.Len(t, registry.ListFeeds(), 1)
}
