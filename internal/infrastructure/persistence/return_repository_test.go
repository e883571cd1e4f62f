package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

func setupReturnTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&returns.Return{}))
	return db
}

func canonicalTestReturn(returnID string) feed.CanonicalReturn {
	return feed.CanonicalReturn{
		ReturnID:     returnID,
		Marketplace:  feed.MarketplaceEbay,
		SellerCode:   "seller-1",
		OrderID:      "ord-9",
		Status:       "REQUESTED",
		Reason:       "doesn't fit",
		RefundAmount: decimal.NewFromFloat(24.50),
		OpenedAt:     time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestReturnRepositoryRoundTrip(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, returns.NewFromCanonical(canonicalTestReturn("ret-1"))))

	found, err := repo.FindByID(ctx, feed.MarketplaceEbay, "ret-1")
	require.NoError(t, err)
	assert.Equal(t, "REQUESTED", found.Status)
	assert.Equal(t, returns.WorksheetOpen, found.WorksheetStatus)

	byOrder, err := repo.FindByOrderID(ctx, feed.MarketplaceEbay, "ord-9")
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)
}

func TestReturnRepositorySaveSyncedPreservesWorksheet(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()

	in := canonicalTestReturn("ret-1")
	require.NoError(t, repo.Create(ctx, returns.NewFromCanonical(in)))
	require.NoError(t, repo.UpdateWorksheetStatus(ctx, feed.MarketplaceEbay, "ret-1", returns.WorksheetAttended))

	loaded, err := repo.FindByID(ctx, feed.MarketplaceEbay, "ret-1")
	require.NoError(t, err)

	in.Status = "CLOSED"
	loaded.ApplySynced(in)
	require.NoError(t, repo.SaveSynced(ctx, loaded))

	after, err := repo.FindByID(ctx, feed.MarketplaceEbay, "ret-1")
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", after.Status)
	assert.Equal(t, returns.WorksheetAttended, after.WorksheetStatus)
	assert.Equal(t, 2, after.Version)
}

func TestReturnRepositorySaveSyncedVersionConflict(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()

	in := canonicalTestReturn("ret-1")
	require.NoError(t, repo.Create(ctx, returns.NewFromCanonical(in)))

	first, err := repo.FindByID(ctx, feed.MarketplaceEbay, "ret-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, feed.MarketplaceEbay, "ret-1")
	require.NoError(t, err)

	in.Status = "APPROVED"
	first.ApplySynced(in)
	require.NoError(t, repo.SaveSynced(ctx, first))

	in.Status = "CLOSED"
	second.ApplySynced(in)
	assert.ErrorIs(t, repo.SaveSynced(ctx, second), shared.ErrConcurrencyConflict)
}

func TestReturnRepositoryWorksheetFilter(t *testing.T) {
	db := setupReturnTestDB(t)
	repo := NewGormReturnRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, returns.NewFromCanonical(canonicalTestReturn("ret-1"))))
	require.NoError(t, repo.Create(ctx, returns.NewFromCanonical(canonicalTestReturn("ret-2"))))
	require.NoError(t, repo.UpdateWorksheetStatus(ctx, feed.MarketplaceEbay, "ret-1", returns.WorksheetResolved))

	filter := shared.DefaultFilter()
	filter.Filters["worksheet_status"] = "OPEN"
	items, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ret-2", items[0].ReturnID)
}
