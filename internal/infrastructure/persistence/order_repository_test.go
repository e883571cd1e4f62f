package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&orders.Order{}, &orders.OrderLine{}, &orders.OrderRefund{}))
	return db
}

func canonicalTestOrder(orderID string, soldAt time.Time) feed.CanonicalOrder {
	return feed.CanonicalOrder{
		OrderID:     orderID,
		Marketplace: feed.MarketplaceMercari,
		SellerCode:  "seller-1",
		BuyerID:     "buyer-7",
		BuyerName:   "Dana Field",
		Lines: []feed.CanonicalLine{
			{ItemID: "item-1", SKU: "SKU-1", Title: "Vintage Lamp", Quantity: 1, UnitPrice: decimal.NewFromFloat(24.50)},
		},
		Subtotal: decimal.NewFromFloat(24.50),
		Shipping: decimal.NewFromFloat(5.99),
		Fees:     decimal.NewFromFloat(3.19),
		SoldAt:   soldAt,
	}
}

func TestOrderRepositoryCreateAndFind(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := orders.NewFromCanonical(canonicalTestOrder("ord-1", time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)))
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Field", found.BuyerName)
	assert.Equal(t, orders.MessagingNotStarted, found.MessagingStatus)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "Vintage Lamp", found.Lines[0].Title)
	assert.True(t, found.Subtotal.Equal(decimal.NewFromFloat(24.50)))

	_, err = repo.FindByID(ctx, feed.MarketplaceMercari, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// same order id under another marketplace is a distinct identity
	_, err = repo.FindByID(ctx, feed.MarketplaceEbay, "ord-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderRepositorySaveSyncedPreservesWorkflow(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	in := canonicalTestOrder("ord-1", time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	order := orders.NewFromCanonical(in)
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.UpdateWorkflowField(ctx, feed.MarketplaceMercari, "ord-1",
		orders.FieldNotes, "waiting on buyer"))
	require.NoError(t, repo.UpdateWorkflowField(ctx, feed.MarketplaceMercari, "ord-1",
		orders.FieldMessagingStatus, string(orders.MessagingOngoing)))

	loaded, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	require.NoError(t, err)

	in.TrackingNumber = "1Z999"
	in.Lines = append(in.Lines, feed.CanonicalLine{ItemID: "item-2", Title: "Desk Fan", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.99)})
	loaded.ApplySynced(in)
	require.NoError(t, repo.SaveSynced(ctx, loaded))

	after, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "1Z999", after.TrackingNumber)
	assert.Len(t, after.Lines, 2)
	assert.Equal(t, "waiting on buyer", after.Notes)
	assert.Equal(t, orders.MessagingOngoing, after.MessagingStatus)
	assert.Equal(t, 2, after.Version)
}

func TestOrderRepositorySaveSyncedVersionConflict(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	in := canonicalTestOrder("ord-1", time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(in)))

	first, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	require.NoError(t, err)

	in.TrackingNumber = "A"
	first.ApplySynced(in)
	require.NoError(t, repo.SaveSynced(ctx, first))

	in.TrackingNumber = "B"
	second.ApplySynced(in)
	err = repo.SaveSynced(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestOrderRepositoryKnownIDs(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	soldAt := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(canonicalTestOrder("ord-1", soldAt))))
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(canonicalTestOrder("ord-2", soldAt))))

	known, err := repo.KnownIDs(ctx, feed.MarketplaceMercari, []string{"ord-1", "ord-2", "ord-3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ord-1": true, "ord-2": true}, known)

	known, err = repo.KnownIDs(ctx, feed.MarketplaceEbay, []string{"ord-1"})
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestOrderRepositoryPaginationStable(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	// same sold date everywhere, so ordering falls to the id tie-break
	soldAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		in := canonicalTestOrder(fmt.Sprintf("ord-%d", i), soldAt)
		require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(in)))
	}

	filter := shared.DefaultFilter()
	filter.PageSize = 2

	var seen []string
	for page := 1; page <= 3; page++ {
		filter.Page = page
		items, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		for _, o := range items {
			seen = append(seen, o.OrderID)
		}
	}
	assert.Equal(t, []string{"ord-0", "ord-1", "ord-2", "ord-3", "ord-4"}, seen,
		"pages must cover every record exactly once")

	total, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestOrderRepositoryFilters(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	march14 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	march15 := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(canonicalTestOrder("ord-1", march14))))
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(canonicalTestOrder("ord-2", march15))))

	other := canonicalTestOrder("ord-3", march15)
	other.Marketplace = feed.MarketplaceEbay
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(other)))

	filter := shared.DefaultFilter()
	filter.Filters["marketplace"] = "MERCARI"
	filter.Filters["sold_from"] = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	filter.Filters["sold_before"] = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	items, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ord-1", items[0].OrderID)

	search := shared.DefaultFilter()
	search.Search = "dana"
	count, err := repo.Count(ctx, search)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestOrderRepositoryDelete(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	in := canonicalTestOrder("ord-1", time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, orders.NewFromCanonical(in)))

	require.NoError(t, repo.Delete(ctx, feed.MarketplaceMercari, "ord-1"))
	_, err := repo.FindByID(ctx, feed.MarketplaceMercari, "ord-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var lineCount int64
	require.NoError(t, db.Model(&orders.OrderLine{}).Count(&lineCount).Error)
	assert.Zero(t, lineCount, "child rows are removed with the order")

	assert.ErrorIs(t, repo.Delete(ctx, feed.MarketplaceMercari, "ord-1"), shared.ErrNotFound)
}
