// Package queue defines message payloads exchanged over the message broker.
package queue

// OfferAllocatedEvent is published after a capacity-checked offer create or
// update commits.  It carries the full allocation decision so downstream
// consumers can audit, notify or feed analytics without querying the
// primary database.
type OfferAllocatedEvent struct {
	EventID     string `json:"event_id"`
	TenantID    uint64 `json:"tenant_id"`
	ShowID      uint64 `json:"show_id"`
	OfferID     uint64 `json:"offer_id"`
	OfferName   string `json:"offer_name"`
	PriceCents  uint32 `json:"price_cents"`
	TicketCount uint32 `json:"ticket_count"`
	Total       uint32 `json:"total"`
	Allocated   uint32 `json:"allocated"`
	Available   uint32 `json:"available"`
	Operation   string `json:"operation"` // "create" or "update"
	AllocatedAt string `json:"allocated_at"`
}
