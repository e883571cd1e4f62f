package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/sellers"
	"github.com/sellerdesk/backend/internal/domain/shared"
	domainsync "github.com/sellerdesk/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubSellerRepo struct {
	enabled []sellers.Seller
}

func (s *stubSellerRepo) FindByCode(_ context.Context, code string, marketplace feed.Marketplace) (*sellers.Seller, error) {
	for i := range s.enabled {
		if s.enabled[i].Code == code && s.enabled[i].Marketplace == marketplace {
			return &s.enabled[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubSellerRepo) FindAll(_ context.Context) ([]sellers.Seller, error) {
	return s.enabled, nil
}

func (s *stubSellerRepo) FindEnabled(_ context.Context) ([]sellers.Seller, error) {
	return s.enabled, nil
}

func (s *stubSellerRepo) Save(_ context.Context, _ *sellers.Seller) error {
	return nil
}

type stubFeed struct {
	marketplace feed.Marketplace
	// pages served per scope kind, one batch per call
	newPages    []*feed.Batch
	windowPages []*feed.Batch
	err         error

	newCalls    int
	windowCalls int
	lastScope   feed.FetchScope
}

func (f *stubFeed) Marketplace() feed.Marketplace {
	return f.marketplace
}

func (f *stubFeed) FetchBatch(_ context.Context, _ string, scope feed.FetchScope) (*feed.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastScope = scope
	switch scope.Kind {
	case feed.ScopeNewSinceCursor:
		if f.newCalls >= len(f.newPages) {
			return &feed.Batch{}, nil
		}
		page := f.newPages[f.newCalls]
		f.newCalls++
		return page, nil
	default:
		if f.windowCalls >= len(f.windowPages) {
			return &feed.Batch{}, nil
		}
		page := f.windowPages[f.windowCalls]
		f.windowCalls++
		return page, nil
	}
}

type stubRegistry struct {
	feeds map[feed.Marketplace]feed.MarketplaceFeed
}

func (r *stubRegistry) GetFeed(marketplace feed.Marketplace) (feed.MarketplaceFeed, error) {
	f, ok := r.feeds[marketplace]
	if !ok {
		return nil, feed.ErrFeedNotConfigured
	}
	return f, nil
}

func (r *stubRegistry) ListFeeds() []feed.MarketplaceFeed {
	out := make([]feed.MarketplaceFeed, 0, len(r.feeds))
	for _, f := range r.feeds {
		out = append(out, f)
	}
	return out
}

type memCursorStore struct {
	cursors map[string]string
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]string)}
}

func (c *memCursorStore) Get(_ context.Context, sellerCode string, marketplace feed.Marketplace) (string, error) {
	return c.cursors[sellerCode+"/"+string(marketplace)], nil
}

func (c *memCursorStore) Set(_ context.Context, sellerCode string, marketplace feed.Marketplace, cursor string) error {
	c.cursors[sellerCode+"/"+string(marketplace)] = cursor
	return nil
}

type stubOrderLookup struct {
	orders.Repository
	known map[string]bool
}

func (s *stubOrderLookup) KnownIDs(_ context.Context, _ feed.Marketplace, orderIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range orderIDs {
		if s.known[id] {
			out[id] = true
		}
	}
	return out, nil
}

// fakeReconciler scripts merge outcomes per record id
type fakeReconciler struct {
	updatedFields map[string][]string // order id -> changed fields; absent means created
	unchanged     map[string]bool
}

func (f *fakeReconciler) event(kind feed.RecordKind, marketplace feed.Marketplace, sellerCode, id string) *domainsync.ChangeEvent {
	if f.unchanged[id] {
		return nil
	}
	if fields, ok := f.updatedFields[id]; ok {
		changes := make([]domainsync.FieldChange, 0, len(fields))
		for _, name := range fields {
			changes = append(changes, domainsync.FieldChange{Field: name})
		}
		return &domainsync.ChangeEvent{
			RecordKind: kind, RecordID: id, Marketplace: marketplace,
			SellerCode: sellerCode, Kind: domainsync.KindUpdated, Changes: changes,
		}
	}
	return &domainsync.ChangeEvent{
		RecordKind: kind, RecordID: id, Marketplace: marketplace,
		SellerCode: sellerCode, Kind: domainsync.KindCreated,
	}
}

func (f *fakeReconciler) ReconcileOrder(_ context.Context, in feed.CanonicalOrder) (*orders.Order, *domainsync.ChangeEvent, error) {
	return nil, f.event(feed.RecordKindOrder, in.Marketplace, in.SellerCode, in.OrderID), nil
}

func (f *fakeReconciler) ReconcileReturn(_ context.Context, in feed.CanonicalReturn) (*returns.Return, *domainsync.ChangeEvent, error) {
	return nil, f.event(feed.RecordKindReturn, in.Marketplace, in.SellerCode, in.ReturnID), nil
}

func (f *fakeReconciler) IngestMessage(_ context.Context, in feed.CanonicalMessage) (*messages.Message, *domainsync.ChangeEvent, error) {
	return nil, f.event(feed.RecordKindMessage, in.Marketplace, in.SellerCode, in.MessageID), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func orderRecord(orderID string) feed.RawRecord {
	payload, _ := json.Marshal(map[string]interface{}{"order_id": orderID})
	return feed.RawRecord{Kind: feed.RecordKindOrder, Payload: payload}
}

func messageRecord(messageID string) feed.RawRecord {
	payload, _ := json.Marshal(map[string]interface{}{"message_id": messageID, "buyer_id": "b", "item_id": "i"})
	return feed.RawRecord{Kind: feed.RecordKindMessage, Payload: payload}
}

func testSeller(code string, marketplace feed.Marketplace) sellers.Seller {
	return sellers.Seller{Code: code, Marketplace: marketplace, Enabled: true}
}

func newTestService(sellerRepo *stubSellerRepo, registry *stubRegistry, cursors feed.CursorStore, known map[string]bool, rec Reconciler) *PollService {
	return NewPollService(
		sellerRepo,
		registry,
		cursors,
		&stubOrderLookup{known: known},
		rec,
		Config{UpdatesWindowDays: 7, SellerParallelism: 2},
		zap.NewNop(),
	)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPollRunNewOnly(t *testing.T) {
	mercari := &stubFeed{
		marketplace: feed.MarketplaceMercari,
		newPages: []*feed.Batch{
			{Records: []feed.RawRecord{orderRecord("ord-1"), orderRecord("ord-2")}, NextCursor: "c-1", HasMore: true},
			{Records: []feed.RawRecord{orderRecord("ord-3")}, NextCursor: "c-2"},
		},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{feed.MarketplaceMercari: mercari}}
	cursors := newMemCursorStore()
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-1", feed.MarketplaceMercari)}},
		registry, cursors, nil, &fakeReconciler{},
	)

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err)

	assert.True(t, summary.Succeeded())
	assert.Equal(t, 3, summary.TotalNew)
	assert.Zero(t, summary.TotalUpdated)
	require.Len(t, summary.Sellers, 1)
	assert.ElementsMatch(t,
		[]RecordRef{
			{Kind: feed.RecordKindOrder, ID: "ord-1"},
			{Kind: feed.RecordKindOrder, ID: "ord-2"},
			{Kind: feed.RecordKindOrder, ID: "ord-3"},
		},
		summary.Sellers[0].NewRecords,
	)

	// cursor advances to the last page's watermark after a clean pass
	stored, _ := cursors.Get(context.Background(), "s-1", feed.MarketplaceMercari)
	assert.Equal(t, "c-2", stored)
}

func TestPollRunSkipsKnownOrdersInNewPass(t *testing.T) {
	mercari := &stubFeed{
		marketplace: feed.MarketplaceMercari,
		newPages: []*feed.Batch{
			{Records: []feed.RawRecord{orderRecord("ord-known"), orderRecord("ord-new")}},
		},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{feed.MarketplaceMercari: mercari}}
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-1", feed.MarketplaceMercari)}},
		registry, newMemCursorStore(), map[string]bool{"ord-known": true}, &fakeReconciler{},
	)

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err)

	require.Len(t, summary.Sellers, 1)
	assert.Equal(t, []RecordRef{{Kind: feed.RecordKindOrder, ID: "ord-new"}}, summary.Sellers[0].NewRecords)
	assert.Zero(t, summary.Sellers[0].Unchanged, "known ids are skipped, not re-diffed")
}

func TestPollRunUpdatesWindow(t *testing.T) {
	ebay := &stubFeed{
		marketplace: feed.MarketplaceEbay,
		windowPages: []*feed.Batch{
			{Records: []feed.RawRecord{orderRecord("ord-1"), orderRecord("ord-2")}},
		},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{feed.MarketplaceEbay: ebay}}
	rec := &fakeReconciler{
		updatedFields: map[string][]string{"ord-1": {"trackingNumber"}},
		unchanged:     map[string]bool{"ord-2": true},
	}
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-2", feed.MarketplaceEbay)}},
		registry, newMemCursorStore(), nil, rec,
	)

	summary, err := svc.Run(context.Background(), PollUpdatesOnly)
	require.NoError(t, err)

	assert.Equal(t, feed.ScopeUpdatedWindow, ebay.lastScope.Kind)
	assert.False(t, ebay.lastScope.From.IsZero())
	assert.True(t, ebay.lastScope.From.Before(ebay.lastScope.To))

	require.Len(t, summary.Sellers, 1)
	result := summary.Sellers[0]
	require.Len(t, result.Updates, 1)
	assert.Equal(t, "ord-1", result.Updates[0].ID)
	assert.Equal(t, []string{"trackingNumber"}, result.Updates[0].ChangedFields)
	assert.Equal(t, 1, result.Unchanged)
}

func TestPollRunSellerFailureIsolated(t *testing.T) {
	broken := &stubFeed{marketplace: feed.MarketplaceMercari, err: feed.ErrFeedUnavailable}
	healthy := &stubFeed{
		marketplace: feed.MarketplaceEbay,
		newPages:    []*feed.Batch{{Records: []feed.RawRecord{orderRecord("ord-1")}}},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{
		feed.MarketplaceMercari: broken,
		feed.MarketplaceEbay:    healthy,
	}}
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{
			testSeller("s-broken", feed.MarketplaceMercari),
			testSeller("s-ok", feed.MarketplaceEbay),
		}},
		registry, newMemCursorStore(), nil, &fakeReconciler{},
	)

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err, "a failing seller must not fail the run")

	assert.False(t, summary.Succeeded())
	assert.Equal(t, 1, summary.FailedSellers)
	assert.Equal(t, 1, summary.TotalNew)

	byCode := make(map[string]SellerResult)
	for _, r := range summary.Sellers {
		byCode[r.SellerCode] = r
	}
	assert.False(t, byCode["s-broken"].Succeeded)
	assert.NotEmpty(t, byCode["s-broken"].Error)
	assert.True(t, byCode["s-ok"].Succeeded)
}

func TestPollRunFeedNotConfigured(t *testing.T) {
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-1", feed.MarketplacePoshmark)}},
		&stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{}},
		newMemCursorStore(), nil, &fakeReconciler{},
	)

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err)
	assert.False(t, summary.Succeeded())
	assert.Contains(t, summary.Sellers[0].Error, "not configured")
}

func TestPollRunRecordFailureIsolated(t *testing.T) {
	malformed := feed.RawRecord{Kind: feed.RecordKindOrder, Payload: json.RawMessage(`{"buyer_id":"b"}`)}
	mercari := &stubFeed{
		marketplace: feed.MarketplaceMercari,
		newPages: []*feed.Batch{
			{Records: []feed.RawRecord{malformed, orderRecord("ord-good"), messageRecord("msg-1")}},
		},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{feed.MarketplaceMercari: mercari}}
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-1", feed.MarketplaceMercari)}},
		registry, newMemCursorStore(), nil, &fakeReconciler{},
	)

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err)

	require.Len(t, summary.Sellers, 1)
	result := summary.Sellers[0]
	assert.True(t, result.Succeeded, "a record failure must not fail the seller")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, feed.RecordKindOrder, result.Failures[0].Kind)
	assert.Len(t, result.NewRecords, 2)
}

func TestPollRunInvalidMode(t *testing.T) {
	svc := newTestService(&stubSellerRepo{}, &stubRegistry{}, newMemCursorStore(), nil, &fakeReconciler{})

	_, err := svc.Run(context.Background(), PollMode("BOGUS"))
	require.Error(t, err)
}

func TestPollRunFullRunsBothPasses(t *testing.T) {
	mercari := &stubFeed{
		marketplace: feed.MarketplaceMercari,
		newPages:    []*feed.Batch{{Records: []feed.RawRecord{orderRecord("ord-new")}}},
		windowPages: []*feed.Batch{{Records: []feed.RawRecord{orderRecord("ord-upd")}}},
	}
	registry := &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{feed.MarketplaceMercari: mercari}}
	rec := &fakeReconciler{updatedFields: map[string][]string{"ord-upd": {"fees"}}}
	svc := newTestService(
		&stubSellerRepo{enabled: []sellers.Seller{testSeller("s-1", feed.MarketplaceMercari)}},
		registry, newMemCursorStore(), nil, rec,
	)

	summary, err := svc.Run(context.Background(), PollFull)
	require.NoError(t, err)

	assert.Equal(t, 1, mercari.newCalls)
	assert.Equal(t, 1, mercari.windowCalls)
	assert.Equal(t, 1, summary.TotalNew)
	assert.Equal(t, 1, summary.TotalUpdated)
}

func TestLastRunRetained(t *testing.T) {
	svc := newTestService(&stubSellerRepo{}, &stubRegistry{feeds: map[feed.Marketplace]feed.MarketplaceFeed{}}, newMemCursorStore(), nil, &fakeReconciler{})

	assert.Nil(t, svc.LastRun())

	summary, err := svc.Run(context.Background(), PollNewOnly)
	require.NoError(t, err)
	assert.Equal(t, summary, svc.LastRun())
}
