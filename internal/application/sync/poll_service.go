package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/sellers"
	"github.com/sellerdesk/backend/internal/domain/shared"
	domainsync "github.com/sellerdesk/backend/internal/domain/sync"
)

// maxPages bounds a single fetch loop so a misbehaving feed that always
// reports HasMore cannot spin a poll forever
const maxPages = 1000

// Reconciler is the merge contract the poll pipeline depends on
type Reconciler interface {
	ReconcileOrder(ctx context.Context, in feed.CanonicalOrder) (*orders.Order, *domainsync.ChangeEvent, error)
	ReconcileReturn(ctx context.Context, in feed.CanonicalReturn) (*returns.Return, *domainsync.ChangeEvent, error)
	IngestMessage(ctx context.Context, in feed.CanonicalMessage) (*messages.Message, *domainsync.ChangeEvent, error)
}

// Config tunes the poll pipeline
type Config struct {
	// UpdatesWindowDays is how far back the updates pass re-fetches
	UpdatesWindowDays int
	// SellerParallelism caps how many sellers poll concurrently
	SellerParallelism int
}

// PollService runs poll cycles across all enabled sellers. Sellers poll in
// parallel under a bounded limit; failures are isolated per seller and per
// record, and every run yields a summary regardless of outcome.
type PollService struct {
	sellers    sellers.Repository
	feeds      feed.Registry
	cursors    feed.CursorStore
	orderRepo  orders.Repository
	reconciler Reconciler
	cfg        Config
	logger     *zap.Logger

	mu      sync.RWMutex
	lastRun *PollRunSummary
}

// NewPollService creates a poll service
func NewPollService(
	sellerRepo sellers.Repository,
	feeds feed.Registry,
	cursors feed.CursorStore,
	orderRepo orders.Repository,
	reconciler Reconciler,
	cfg Config,
	logger *zap.Logger,
) *PollService {
	if cfg.UpdatesWindowDays <= 0 {
		cfg.UpdatesWindowDays = 7
	}
	if cfg.SellerParallelism <= 0 {
		cfg.SellerParallelism = 4
	}
	return &PollService{
		sellers:    sellerRepo,
		feeds:      feeds,
		cursors:    cursors,
		orderRepo:  orderRepo,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one poll cycle in the given mode over every enabled seller
// and returns the run summary. The summary is also retained as the last
// run for later inspection.
func (s *PollService) Run(ctx context.Context, mode PollMode) (*PollRunSummary, error) {
	if !mode.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown poll mode: "+string(mode))
	}

	enabled, err := s.sellers.FindEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sellers: %w", err)
	}

	summary := &PollRunSummary{
		RunID:     uuid.New(),
		Mode:      mode,
		StartedAt: time.Now(),
		Sellers:   make([]SellerResult, len(enabled)),
	}

	s.logger.Info("Starting poll run",
		zap.String("run_id", summary.RunID.String()),
		zap.String("mode", string(mode)),
		zap.Int("sellers", len(enabled)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SellerParallelism)
	for i, seller := range enabled {
		g.Go(func() error {
			summary.Sellers[i] = s.pollSeller(gctx, seller, mode)
			return nil
		})
	}
	// workers never return errors; failures land in their SellerResult
	_ = g.Wait()

	summary.FinishedAt = time.Now()
	summary.tally()

	s.logger.Info("Poll run finished",
		zap.String("run_id", summary.RunID.String()),
		zap.Int("new", summary.TotalNew),
		zap.Int("updated", summary.TotalUpdated),
		zap.Int("unchanged", summary.TotalUnchanged),
		zap.Int("record_failures", summary.TotalFailed),
		zap.Int("failed_sellers", summary.FailedSellers),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	return summary, nil
}

// LastRun returns the summary of the most recent poll run, or nil when no
// run has happened since startup. Run history is in-memory only.
func (s *PollService) LastRun() *PollRunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// pollSeller runs the requested passes for one seller. Any error is
// captured in the result; nothing escapes to the run level.
func (s *PollService) pollSeller(ctx context.Context, seller sellers.Seller, mode PollMode) SellerResult {
	result := SellerResult{
		SellerCode:  seller.Code,
		Marketplace: seller.Marketplace,
		Succeeded:   true,
	}

	adapter, err := s.feeds.GetFeed(seller.Marketplace)
	if err != nil {
		result.Succeeded = false
		result.Error = err.Error()
		return result
	}

	if mode == PollNewOnly || mode == PollFull {
		if err := s.runNewPass(ctx, adapter, seller, &result); err != nil {
			result.Succeeded = false
			result.Error = err.Error()
			return result
		}
	}
	if mode == PollUpdatesOnly || mode == PollFull {
		if err := s.runUpdatesPass(ctx, adapter, seller, &result); err != nil {
			result.Succeeded = false
			result.Error = err.Error()
			return result
		}
	}
	return result
}

// runNewPass fetches records newer than the stored cursor and ingests the
// unseen ones. The cursor advances only after the whole pass succeeds, so
// a failed pass re-fetches the same range next time.
func (s *PollService) runNewPass(ctx context.Context, adapter feed.MarketplaceFeed, seller sellers.Seller, result *SellerResult) error {
	cursor, err := s.cursors.Get(ctx, seller.Code, seller.Marketplace)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	scope := feed.NewSinceCursor(cursor)
	nextCursor := ""
	for page := 0; page < maxPages; page++ {
		batch, err := adapter.FetchBatch(ctx, seller.Code, scope)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		records, err := s.filterUnseen(ctx, seller.Marketplace, batch.Records)
		if err != nil {
			return err
		}
		s.processRecords(ctx, seller, records, result)

		if batch.NextCursor != "" {
			nextCursor = batch.NextCursor
			scope.Cursor = batch.NextCursor
		}
		if !batch.HasMore {
			break
		}
	}

	if nextCursor != "" {
		if err := s.cursors.Set(ctx, seller.Code, seller.Marketplace, nextCursor); err != nil {
			return fmt.Errorf("failed to persist cursor: %w", err)
		}
	}
	return nil
}

// runUpdatesPass re-fetches everything the marketplace touched within the
// configured window and folds it in. Overlap with the new pass is fine,
// reconciliation is idempotent.
func (s *PollService) runUpdatesPass(ctx context.Context, adapter feed.MarketplaceFeed, seller sellers.Seller, result *SellerResult) error {
	to := time.Now()
	from := to.AddDate(0, 0, -s.cfg.UpdatesWindowDays)
	scope := feed.UpdatedWithin(from, to)

	for page := 0; page < maxPages; page++ {
		batch, err := adapter.FetchBatch(ctx, seller.Code, scope)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		s.processRecords(ctx, seller, batch.Records, result)
		if !batch.HasMore {
			break
		}
	}
	return nil
}

// filterUnseen drops order records whose identity already exists. Feeds
// without cursor support replay their full history on a new-only pass;
// the known-id check keeps that pass from re-diffing every stored order.
func (s *PollService) filterUnseen(ctx context.Context, marketplace feed.Marketplace, records []feed.RawRecord) ([]feed.RawRecord, error) {
	orderIDs := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Kind == feed.RecordKindOrder {
			if id, err := feed.PeekRecordID(rec); err == nil {
				orderIDs = append(orderIDs, id)
			}
		}
	}
	if len(orderIDs) == 0 {
		return records, nil
	}

	known, err := s.orderRepo.KnownIDs(ctx, marketplace, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check known ids: %w", err)
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.Kind == feed.RecordKindOrder {
			if id, err := feed.PeekRecordID(rec); err == nil && known[id] {
				continue
			}
		}
		kept = append(kept, rec)
	}
	return kept, nil
}

// processRecords normalizes and reconciles one page of raw records,
// appending outcomes to the seller result. A bad record is recorded as a
// failure and the loop moves on.
func (s *PollService) processRecords(ctx context.Context, seller sellers.Seller, records []feed.RawRecord, result *SellerResult) {
	for _, rec := range records {
		event, err := s.processRecord(ctx, seller, rec)
		if err != nil {
			id, _ := feed.PeekRecordID(rec)
			result.Failures = append(result.Failures, RecordFailure{
				Kind:   rec.Kind,
				ID:     id,
				Reason: err.Error(),
			})
			s.logger.Warn("Record ingestion failed",
				zap.String("seller_code", seller.Code),
				zap.String("marketplace", string(seller.Marketplace)),
				zap.String("kind", string(rec.Kind)),
				zap.String("record_id", id),
				zap.Error(err),
			)
			continue
		}
		switch {
		case event == nil:
			result.Unchanged++
		case event.IsCreated():
			result.NewRecords = append(result.NewRecords, RecordRef{Kind: event.RecordKind, ID: event.RecordID})
		default:
			result.Updates = append(result.Updates, RecordUpdate{
				Kind:          event.RecordKind,
				ID:            event.RecordID,
				ChangedFields: event.ChangedFieldNames(),
			})
		}
	}
}

func (s *PollService) processRecord(ctx context.Context, seller sellers.Seller, rec feed.RawRecord) (*domainsync.ChangeEvent, error) {
	switch rec.Kind {
	case feed.RecordKindOrder:
		canonical, err := feed.NormalizeOrder(seller.Marketplace, seller.Code, rec.Payload)
		if err != nil {
			return nil, err
		}
		_, event, err := s.reconciler.ReconcileOrder(ctx, canonical)
		return event, err
	case feed.RecordKindReturn:
		canonical, err := feed.NormalizeReturn(seller.Marketplace, seller.Code, rec.Payload)
		if err != nil {
			return nil, err
		}
		_, event, err := s.reconciler.ReconcileReturn(ctx, canonical)
		return event, err
	case feed.RecordKindMessage:
		canonical, err := feed.NormalizeMessage(seller.Marketplace, seller.Code, rec.Payload)
		if err != nil {
			return nil, err
		}
		_, event, err := s.reconciler.IngestMessage(ctx, canonical)
		return event, err
	default:
		return nil, shared.NewDomainError("VALIDATION", "Unknown record kind: "+string(rec.Kind))
	}
}
