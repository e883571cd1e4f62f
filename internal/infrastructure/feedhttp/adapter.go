package feedhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

// maxResponseSize caps a single feed response (10MB)
const maxResponseSize = 10 * 1024 * 1024

// AdapterConfig holds one marketplace feed endpoint's settings
type AdapterConfig struct {
	Marketplace feed.Marketplace
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
}

// Validate checks the adapter configuration
func (c *AdapterConfig) Validate() error {
	if !c.Marketplace.IsValid() {
		return fmt.Errorf("feed adapter: unknown marketplace %q", c.Marketplace)
	}
	if c.BaseURL == "" {
		return errors.New("feed adapter: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("feed adapter: invalid base URL: %w", err)
	}
	return nil
}

// HTTPAdapter implements feed.MarketplaceFeed against a marketplace's HTTP
// export endpoint. All four marketplaces share the export wire format, so
// one adapter type configured per marketplace covers them.
type HTTPAdapter struct {
	config     AdapterConfig
	httpClient *http.Client
}

// NewHTTPAdapter creates an adapter for one marketplace endpoint
func NewHTTPAdapter(config AdapterConfig) (*HTTPAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Marketplace returns the marketplace this adapter serves
func (a *HTTPAdapter) Marketplace() feed.Marketplace {
	return a.config.Marketplace
}

// wire envelope of the export endpoint
type batchEnvelope struct {
	Records    []feed.RawRecord `json:"records"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// FetchBatch fetches one page of raw records for the seller within scope
func (a *HTTPAdapter) FetchBatch(ctx context.Context, sellerCode string, scope feed.FetchScope) (*feed.Batch, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrFeedRequestFailed, err)
	}

	endpoint, err := a.buildURL(sellerCode, scope)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrFeedRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", feed.ErrFeedRateLimited, resp.Status)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", feed.ErrFeedUnavailable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s", feed.ErrFeedRequestFailed, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrFeedUnavailable, err)
	}

	var envelope batchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrFeedInvalidResponse, err)
	}
	return &feed.Batch{
		Records:    envelope.Records,
		NextCursor: envelope.NextCursor,
		HasMore:    envelope.HasMore,
	}, nil
}

func (a *HTTPAdapter) buildURL(sellerCode string, scope feed.FetchScope) (string, error) {
	u, err := url.Parse(a.config.BaseURL + "/v1/records")
	if err != nil {
		return "", fmt.Errorf("%w: %v", feed.ErrFeedRequestFailed, err)
	}
	q := u.Query()
	q.Set("seller", sellerCode)
	switch scope.Kind {
	case feed.ScopeNewSinceCursor:
		q.Set("mode", "new")
		if scope.Cursor != "" {
			q.Set("cursor", scope.Cursor)
		}
	case feed.ScopeUpdatedWindow:
		q.Set("mode", "updated")
		q.Set("from", strconv.FormatInt(scope.From.Unix(), 10))
		q.Set("to", strconv.FormatInt(scope.To.Unix(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
