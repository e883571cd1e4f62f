package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

func setupMessageTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&messages.Message{}))
	return db
}

func testMessage(messageID string, sentAt time.Time) *messages.Message {
	return messages.NewFromCanonical(feed.CanonicalMessage{
		MessageID:   messageID,
		Marketplace: feed.MarketplaceEtsy,
		SellerCode:  "seller-1",
		OrderID:     "ord-9",
		BuyerID:     "buyer-2",
		Body:        "hello",
		Inbound:     true,
		SentAt:      sentAt,
	})
}

func TestMessageRepositoryAppendDedupes(t *testing.T) {
	db := setupMessageTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	msg := testMessage("msg-1", time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	created, err := repo.Append(ctx, msg)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Append(ctx, testMessage("msg-1", time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.False(t, created, "same identity must not insert twice")

	count, err := repo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMessageRepositoryFindThreadOrdering(t *testing.T) {
	db := setupMessageTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"msg-c", "msg-a", "msg-b"} {
		m := testMessage(id, base.Add(time.Duration(2-i)*time.Hour))
		_, err := repo.Append(ctx, m)
		require.NoError(t, err)
	}

	thread, err := repo.FindThread(ctx, "ord-9")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "msg-b", thread[0].MessageID)
	assert.Equal(t, "msg-a", thread[1].MessageID)
	assert.Equal(t, "msg-c", thread[2].MessageID)
}

func TestMessageRepositoryMarkRead(t *testing.T) {
	db := setupMessageTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	_, err := repo.Append(ctx, testMessage("msg-1", time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, "ord-9", "msg-1", true))

	thread, err := repo.FindThread(ctx, "ord-9")
	require.NoError(t, err)
	assert.True(t, thread[0].Read)

	assert.ErrorIs(t, repo.MarkRead(ctx, "ord-9", "missing", true), shared.ErrNotFound)
}

func TestMessageRepositoryUnreadFilter(t *testing.T) {
	db := setupMessageTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	_, err := repo.Append(ctx, testMessage("msg-1", time.Now()))
	require.NoError(t, err)
	_, err = repo.Append(ctx, testMessage("msg-2", time.Now()))
	require.NoError(t, err)
	require.NoError(t, repo.MarkRead(ctx, "ord-9", "msg-1", true))

	filter := shared.DefaultFilter()
	filter.Filters["read"] = false
	items, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "msg-2", items[0].MessageID)
}
