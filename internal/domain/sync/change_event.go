package sync

import (
	"github.com/sellerdesk/backend/internal/domain/feed"
)

// Kind classifies a reconciliation outcome that produced an event
type Kind string

const (
	// KindCreated marks a record's first sighting
	KindCreated Kind = "created"
	// KindUpdated marks a record whose synchronized fields changed
	KindUpdated Kind = "updated"
)

// FieldChange is one field that differed between two observations of a
// record. Values are rendered to strings for the run summary; they are
// display payload, not a merge source.
type FieldChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// ChangeEvent is the ephemeral outcome of one reconciliation pass over one
// record. It is consumed once by the poll orchestrator to build the run
// summary and then discarded; it is never persisted.
type ChangeEvent struct {
	RecordKind  feed.RecordKind  `json:"record_kind"`
	RecordID    string           `json:"record_id"`
	Marketplace feed.Marketplace `json:"marketplace"`
	SellerCode  string           `json:"seller_code"`
	Kind        Kind             `json:"kind"`
	// Changes is empty for created events: there are no prior values
	Changes []FieldChange `json:"changes,omitempty"`
}

// ChangedFieldNames returns the names of the fields that changed
func (e *ChangeEvent) ChangedFieldNames() []string {
	names := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		names = append(names, c.Field)
	}
	return names
}

// IsCreated returns true for first-sighting events
func (e *ChangeEvent) IsCreated() bool {
	return e.Kind == KindCreated
}
