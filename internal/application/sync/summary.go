package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

// PollMode selects which passes a poll run performs
type PollMode string

const (
	// PollNewOnly ingests records the store has never seen
	PollNewOnly PollMode = "NEW_ONLY"
	// PollUpdatesOnly re-fetches records touched within the update window
	PollUpdatesOnly PollMode = "UPDATES_ONLY"
	// PollFull runs the new-only pass followed by the updates pass
	PollFull PollMode = "FULL"
)

// IsValid returns true if the mode is a valid PollMode
func (m PollMode) IsValid() bool {
	switch m {
	case PollNewOnly, PollUpdatesOnly, PollFull:
		return true
	}
	return false
}

// String returns the string representation of PollMode
func (m PollMode) String() string {
	return string(m)
}

// RecordRef identifies one record in a run summary
type RecordRef struct {
	Kind feed.RecordKind `json:"kind"`
	ID   string          `json:"id"`
}

// RecordUpdate is one record whose synchronized fields changed during a run
type RecordUpdate struct {
	Kind          feed.RecordKind `json:"kind"`
	ID            string          `json:"id"`
	ChangedFields []string        `json:"changed_fields"`
}

// RecordFailure is one record that could not be ingested. A record failure
// never aborts the batch; the rest of the page still processes.
type RecordFailure struct {
	Kind   feed.RecordKind `json:"kind"`
	ID     string          `json:"id"`
	Reason string          `json:"reason"`
}

// SellerResult is the outcome of polling one seller. A seller-level failure
// (feed unreachable, auth rejected) is recorded here and never propagates
// to the other sellers in the run.
type SellerResult struct {
	SellerCode  string           `json:"seller_code"`
	Marketplace feed.Marketplace `json:"marketplace"`
	Succeeded   bool             `json:"succeeded"`
	// Error is the seller-level failure reason, empty on success
	Error string `json:"error,omitempty"`

	NewRecords []RecordRef     `json:"new_records,omitempty"`
	Updates    []RecordUpdate  `json:"updates,omitempty"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	// Unchanged counts records re-delivered with no field changes
	Unchanged int `json:"unchanged"`
}

// PollRunSummary is the full report of one poll run. The run always
// produces a summary, even when every seller fails.
type PollRunSummary struct {
	RunID      uuid.UUID      `json:"run_id"`
	Mode       PollMode       `json:"mode"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sellers    []SellerResult `json:"sellers"`

	TotalNew       int `json:"total_new"`
	TotalUpdated   int `json:"total_updated"`
	TotalUnchanged int `json:"total_unchanged"`
	TotalFailed    int `json:"total_failed"`
	FailedSellers  int `json:"failed_sellers"`
}

// Succeeded reports whether every seller in the run completed cleanly
func (s *PollRunSummary) Succeeded() bool {
	return s.FailedSellers == 0
}

func (s *PollRunSummary) tally() {
	for _, r := range s.Sellers {
		s.TotalNew += len(r.NewRecords)
		s.TotalUpdated += len(r.Updates)
		s.TotalUnchanged += r.Unchanged
		s.TotalFailed += len(r.Failures)
		if !r.Succeeded {
			s.FailedSellers++
		}
	}
}
