package lifecycle

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeConfirmed Outcome = "TRANSITION_CONFIRMED"
	OutcomeRejected  Outcome = "TRANSITION_REJECTED"
	OutcomeFailed    Outcome = "TRANSITION_FAILED"
	OutcomeDrift     Outcome = "PAYMENT_STATUS_DRIFT"
)

// Entry is one journaled lifecycle event.
type Entry struct {
	Kind       Kind      `json:"kind"`
	RecordID   string    `json:"recordId"`
	Action     Action    `json:"action,omitempty"`
	From       Status    `json:"from,omitempty"`
	To         Status    `json:"to,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// Journal persists lifecycle events.
type Journal interface {
	Insert(ctx context.Context, e Entry) error
	ListByRecord(ctx context.Context, kind Kind, recordID string) ([]Entry, error)
}

// Event is published after the store confirms a transition.
type Event struct {
	Kind       Kind      `json:"kind"`
	RecordID   string    `json:"recordId"`
	Action     Action    `json:"action"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RoutingKey is "<kind>.<status>", e.g. "booking.checked-in".
func (e Event) RoutingKey() string {
	return string(e.Kind) + "." + string(e.To)
}

// Notifier delivers confirmed transitions to interested parties.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

type actorKey struct{}

// WithActor tags ctx with the operator performing a transition.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}
