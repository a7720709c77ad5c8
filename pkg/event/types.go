package event

import (
	"time"
)

type EventType string

const (
	ActionUpserted = "upserted"
	ActionDeleted  = "deleted"

	// VisitTotalsUpdated is emitted after payment totals are recomputed.
	VisitTotalsUpdated EventType = "visit.totals_updated"
)

// DefaultChannel is the pub/sub channel domain events are published on.
const DefaultChannel = "dental:events"

type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	Resource   string      `json:"resource"`
	ResourceID string      `json:"resourceId"`
	ClinicID   string      `json:"clinicId,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// TypeFor builds "<resource>.<action>".
func TypeFor(resource, action string) EventType {
	return EventType(resource + "." + action)
}
