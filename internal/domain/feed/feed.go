package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Feed Errors
// ---------------------------------------------------------------------------

var (
	// ErrFeedNotConfigured indicates no feed adapter exists for the marketplace
	ErrFeedNotConfigured = errors.New("feed: marketplace feed not configured")
	// ErrFeedUnavailable indicates the remote feed is temporarily unreachable
	ErrFeedUnavailable = errors.New("feed: marketplace feed temporarily unavailable")
	// ErrFeedRequestFailed indicates the feed rejected or failed the request
	ErrFeedRequestFailed = errors.New("feed: marketplace feed request failed")
	// ErrFeedInvalidResponse indicates the feed returned an unparseable payload
	ErrFeedInvalidResponse = errors.New("feed: invalid marketplace feed response")
	// ErrFeedRateLimited indicates the feed throttled the caller
	ErrFeedRateLimited = errors.New("feed: marketplace feed rate limited")
)

// IsRetryable reports whether a feed error is worth retrying on a later poll.
// Feed failures never corrupt local state, so every feed error is safe to
// retry; this distinguishes transient transport failures from contract bugs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFeedUnavailable) ||
		errors.Is(err, ErrFeedRequestFailed) ||
		errors.Is(err, ErrFeedRateLimited)
}

// ---------------------------------------------------------------------------
// Marketplace
// ---------------------------------------------------------------------------

// Marketplace identifies the remote marketplace a record originates from
type Marketplace string

const (
	// MarketplaceMercari represents the Mercari marketplace
	MarketplaceMercari Marketplace = "MERCARI"
	// MarketplaceEbay represents the eBay marketplace
	MarketplaceEbay Marketplace = "EBAY"
	// MarketplaceEtsy represents the Etsy marketplace
	MarketplaceEtsy Marketplace = "ETSY"
	// MarketplacePoshmark represents the Poshmark marketplace
	MarketplacePoshmark Marketplace = "POSHMARK"
)

// IsValid returns true if the marketplace code is valid
func (m Marketplace) IsValid() bool {
	switch m {
	case MarketplaceMercari, MarketplaceEbay, MarketplaceEtsy, MarketplacePoshmark:
		return true
	default:
		return false
	}
}

// String returns the string representation of Marketplace
func (m Marketplace) String() string {
	return string(m)
}

// ---------------------------------------------------------------------------
// Raw Records & Fetch Scope
// ---------------------------------------------------------------------------

// RecordKind identifies the entity kind carried by a raw feed record
type RecordKind string

const (
	RecordKindOrder   RecordKind = "order"
	RecordKindReturn  RecordKind = "return"
	RecordKindMessage RecordKind = "message"
)

// IsValid returns true if the record kind is valid
func (k RecordKind) IsValid() bool {
	switch k {
	case RecordKindOrder, RecordKindReturn, RecordKindMessage:
		return true
	default:
		return false
	}
}

// RawRecord is a single opaque record from the marketplace feed.
// The payload shape is marketplace-specific; only the normalizer reads it.
type RawRecord struct {
	Kind    RecordKind      `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// ScopeKind distinguishes the two ways a fetch can be bounded
type ScopeKind string

const (
	// ScopeNewSinceCursor requests only records not seen before the cursor
	ScopeNewSinceCursor ScopeKind = "NEW_SINCE_CURSOR"
	// ScopeUpdatedWindow requests records touched within a time window
	ScopeUpdatedWindow ScopeKind = "UPDATED_WINDOW"
)

// FetchScope bounds a feed fetch: either "new since cursor X" or
// "updated within [From, To]". Re-fetching the same scope is safe; the
// reconciler tolerates duplicates.
type FetchScope struct {
	Kind   ScopeKind
	Cursor string
	From   time.Time
	To     time.Time
}

// NewSinceCursor builds a scope requesting records newer than the cursor.
// An empty cursor means "from the beginning".
func NewSinceCursor(cursor string) FetchScope {
	return FetchScope{Kind: ScopeNewSinceCursor, Cursor: cursor}
}

// UpdatedWithin builds a scope requesting records touched in [from, to]
func UpdatedWithin(from, to time.Time) FetchScope {
	return FetchScope{Kind: ScopeUpdatedWindow, From: from, To: to}
}

// Validate checks the scope for internal consistency
func (s FetchScope) Validate() error {
	switch s.Kind {
	case ScopeNewSinceCursor:
		return nil
	case ScopeUpdatedWindow:
		if s.From.IsZero() || s.To.IsZero() {
			return errors.New("feed: window scope requires from and to")
		}
		if s.From.After(s.To) {
			return errors.New("feed: window scope from must not be after to")
		}
		return nil
	default:
		return errors.New("feed: unknown scope kind")
	}
}

// Batch is one page of raw records from the feed
type Batch struct {
	Records []RawRecord
	// NextCursor is the watermark to persist after a successful new-only
	// pass; empty when the feed does not support cursors.
	NextCursor string
	// HasMore indicates another page is available for the same scope
	HasMore bool
}

// ---------------------------------------------------------------------------
// MarketplaceFeed Port
// ---------------------------------------------------------------------------

// MarketplaceFeed is the port interface for a remote marketplace feed.
// Concrete adapters live in the infrastructure layer; the sync pipeline
// only depends on this contract.
type MarketplaceFeed interface {
	// Marketplace returns the marketplace this adapter serves
	Marketplace() Marketplace

	// FetchBatch fetches one page of raw records for the seller within the
	// given scope. Must be retry-safe: re-fetching the same scope returns a
	// superset-safe result and duplicates are tolerated downstream.
	FetchBatch(ctx context.Context, sellerCode string, scope FetchScope) (*Batch, error)
}

// Registry provides access to the configured marketplace feeds
type Registry interface {
	// GetFeed returns the feed adapter for the marketplace
	GetFeed(marketplace Marketplace) (MarketplaceFeed, error)

	// ListFeeds returns all registered feed adapters
	ListFeeds() []MarketplaceFeed
}

// CursorStore persists the per-seller feed watermark between polls
type CursorStore interface {
	// Get returns the stored cursor, or "" when none exists yet
	Get(ctx context.Context, sellerCode string, marketplace Marketplace) (string, error)

	// Set stores the cursor after a successful new-only pass
	Set(ctx context.Context, sellerCode string, marketplace Marketplace, cursor string) error
}
