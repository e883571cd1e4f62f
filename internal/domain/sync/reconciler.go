package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// conflictRetries bounds re-read-and-merge attempts after a version conflict.
// Per-identity locking makes conflicts rare; the retry is a backstop for
// writes arriving from outside the lock, not a steady-state path.
const conflictRetries = 3

// Reconciler folds normalized feed records into stored state. All writes to
// one identity are serialized through a keyed lock, so re-processing the
// same batch or overlapping poll windows converge on the same stored state.
// It only ever touches synchronized fields; workflow fields pass through
// every merge untouched.
type Reconciler struct {
	orders   orders.Repository
	returns  returns.Repository
	messages messages.Repository
	locks    *KeyedMutex
	logger   *zap.Logger
}

// NewReconciler creates a reconciler over the given repositories
func NewReconciler(
	orderRepo orders.Repository,
	returnRepo returns.Repository,
	messageRepo messages.Repository,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		orders:   orderRepo,
		returns:  returnRepo,
		messages: messageRepo,
		locks:    NewKeyedMutex(),
		logger:   logger,
	}
}

func lockKey(marketplace feed.Marketplace, id string) string {
	return string(marketplace) + "/" + id
}

// ReconcileOrder merges one canonical order into the store. First sighting
// creates the record with default workflow fields and yields a created
// event; a known identity is diffed field by field and yields an updated
// event only when a synchronized field actually changed. A byte-identical
// re-delivery returns a nil event.
func (r *Reconciler) ReconcileOrder(ctx context.Context, in feed.CanonicalOrder) (*orders.Order, *ChangeEvent, error) {
	unlock := r.locks.Lock(lockKey(in.Marketplace, in.OrderID))
	defer unlock()

	for attempt := 0; ; attempt++ {
		existing, err := r.orders.FindByID(ctx, in.Marketplace, in.OrderID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, nil, err
			}
			order := orders.NewFromCanonical(in)
			if err := r.orders.Create(ctx, order); err != nil {
				return nil, nil, err
			}
			return order, &ChangeEvent{
				RecordKind:  feed.RecordKindOrder,
				RecordID:    in.OrderID,
				Marketplace: in.Marketplace,
				SellerCode:  in.SellerCode,
				Kind:        KindCreated,
			}, nil
		}

		changes := diffOrder(existing, in)
		if len(changes) == 0 {
			return existing, nil, nil
		}

		existing.ApplySynced(in)
		err = r.orders.SaveSynced(ctx, existing)
		if err == nil {
			return existing, &ChangeEvent{
				RecordKind:  feed.RecordKindOrder,
				RecordID:    in.OrderID,
				Marketplace: in.Marketplace,
				SellerCode:  in.SellerCode,
				Kind:        KindUpdated,
				Changes:     changes,
			}, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= conflictRetries {
			return nil, nil, err
		}
		r.logger.Warn("Version conflict on order merge, re-reading",
			zap.String("marketplace", string(in.Marketplace)),
			zap.String("order_id", in.OrderID),
			zap.Int("attempt", attempt+1))
	}
}

// ReconcileReturn merges one canonical return into the store, following the
// same create-or-diff contract as orders.
func (r *Reconciler) ReconcileReturn(ctx context.Context, in feed.CanonicalReturn) (*returns.Return, *ChangeEvent, error) {
	unlock := r.locks.Lock(lockKey(in.Marketplace, in.ReturnID))
	defer unlock()

	for attempt := 0; ; attempt++ {
		existing, err := r.returns.FindByID(ctx, in.Marketplace, in.ReturnID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, nil, err
			}
			ret := returns.NewFromCanonical(in)
			if err := r.returns.Create(ctx, ret); err != nil {
				return nil, nil, err
			}
			return ret, &ChangeEvent{
				RecordKind:  feed.RecordKindReturn,
				RecordID:    in.ReturnID,
				Marketplace: in.Marketplace,
				SellerCode:  in.SellerCode,
				Kind:        KindCreated,
			}, nil
		}

		changes := diffReturn(existing, in)
		if len(changes) == 0 {
			return existing, nil, nil
		}

		existing.ApplySynced(in)
		err = r.returns.SaveSynced(ctx, existing)
		if err == nil {
			return existing, &ChangeEvent{
				RecordKind:  feed.RecordKindReturn,
				RecordID:    in.ReturnID,
				Marketplace: in.Marketplace,
				SellerCode:  in.SellerCode,
				Kind:        KindUpdated,
				Changes:     changes,
			}, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= conflictRetries {
			return nil, nil, err
		}
		r.logger.Warn("Version conflict on return merge, re-reading",
			zap.String("marketplace", string(in.Marketplace)),
			zap.String("return_id", in.ReturnID),
			zap.Int("attempt", attempt+1))
	}
}

// IngestMessage appends one canonical message. Messages are append-only,
// so the only possible event is created; a re-delivered identity is a
// no-op with a nil event.
func (r *Reconciler) IngestMessage(ctx context.Context, in feed.CanonicalMessage) (*messages.Message, *ChangeEvent, error) {
	msg := messages.NewFromCanonical(in)

	unlock := r.locks.Lock(lockKey(in.Marketplace, msg.ThreadKey+"|"+msg.MessageID))
	defer unlock()

	created, err := r.messages.Append(ctx, msg)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		return msg, nil, nil
	}
	return msg, &ChangeEvent{
		RecordKind:  feed.RecordKindMessage,
		RecordID:    msg.MessageID,
		Marketplace: in.Marketplace,
		SellerCode:  in.SellerCode,
		Kind:        KindCreated,
	}, nil
}
