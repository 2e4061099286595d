package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backoffice/pkg/remote"
)

// Store is the part of the remote store the reconciler writes to.
type Store interface {
	UpdatePaymentStatus(ctx context.Context, id string, upd remote.PaymentUpdate) error
}

// Reconciler pushes a corrected payment status back to the store.
type Reconciler struct {
	Store   Store
	Timeout time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Push sends the status implied by a for record id and returns it.
func (r Reconciler) Push(ctx context.Context, id string, a Amounts, notes []string) (Status, error) {
	if r.Store == nil {
		return "", fmt.Errorf("payment reconciler has no store")
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	st := a.Correct()
	upd := remote.PaymentUpdate{
		PaymentStatus: string(st),
		PaidAmount:    a.Paid,
		PendingAmount: a.Pending,
		Notes:         notes,
		Timestamp:     now().UTC(),
	}
	if err := r.Store.UpdatePaymentStatus(ctx, id, upd); err != nil {
		r.logger().WarnContext(ctx, "payment status push failed", "record_id", id, "payment_status", st, "err", err)
		return "", err
	}
	r.logger().InfoContext(ctx, "payment status pushed", "record_id", id, "payment_status", st)
	return st, nil
}

func (r Reconciler) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
