package core

import (
	"context"
	"time"
)

// EventsRepository is the audit trail of mod command invocations.
type EventsRepository interface {
	AddEvent(ctx context.Context, event ModEvent) error
	RecentEvents(ctx context.Context, limit int) ([]ModEvent, error)
}

const (
	EventOutcomeOK    = "ok"
	EventOutcomeError = "error"
)

type ModEvent struct {
	ID           int64     `json:"id"`
	InvocationID string    `json:"invocation_id"`
	Verb         string    `json:"verb"`
	ModID        string    `json:"mod_id,omitempty"`
	Target       string    `json:"target"`
	Outcome      string    `json:"outcome"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
