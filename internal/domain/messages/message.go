package messages

import (
	"context"
	"time"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// Message is one buyer/seller message. Identity is (ThreadKey, MessageID).
// Messages are append-only: once stored they are never mutated except for
// the operator-owned read flag.
type Message struct {
	ThreadKey   string           `gorm:"size:200;primaryKey"`
	MessageID   string           `gorm:"size:64;primaryKey"`
	Marketplace feed.Marketplace `gorm:"size:16;index;not null"`
	SellerCode  string           `gorm:"size:64;index;not null"`

	// OrderID is set when the thread belongs to an order
	OrderID string `gorm:"size:64;index"`
	BuyerID string `gorm:"size:64"`
	ItemID  string `gorm:"size:64"`

	Body    string    `gorm:"type:text"`
	Inbound bool      `gorm:"not null"`
	SentAt  time.Time `gorm:"index;not null"`

	// Read is the only mutable field after creation
	Read bool `gorm:"not null;default:false"`

	CreatedAt time.Time
}

// TableName returns the messages table name
func (Message) TableName() string {
	return "messages"
}

// NewFromCanonical creates a message from its first sighting in the feed
func NewFromCanonical(in feed.CanonicalMessage) *Message {
	return &Message{
		ThreadKey:   in.ThreadKey(),
		MessageID:   in.MessageID,
		Marketplace: in.Marketplace,
		SellerCode:  in.SellerCode,
		OrderID:     in.OrderID,
		BuyerID:     in.BuyerID,
		ItemID:      in.ItemID,
		Body:        in.Body,
		Inbound:     in.Inbound,
		SentAt:      in.SentAt,
		CreatedAt:   time.Now(),
	}
}

// Repository persists messages
type Repository interface {
	// Append stores a message if its identity is unseen; re-sent duplicates
	// are ignored and reported via the created flag.
	Append(ctx context.Context, msg *Message) (created bool, err error)

	// FindThread returns a thread's messages ordered by sent time ascending
	FindThread(ctx context.Context, threadKey string) ([]Message, error)

	// FindAll lists messages matching the filter, newest thread activity first
	FindAll(ctx context.Context, filter shared.Filter) ([]Message, error)

	// Count counts messages matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// MarkRead flips the read flag on a single message
	MarkRead(ctx context.Context, threadKey, messageID string, read bool) error
}
