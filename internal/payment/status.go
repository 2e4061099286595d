package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPartiallyPaid Status = "partially-paid"
	StatusPaid          Status = "paid"
)

// ParseStatus accepts the store's labels, including the short "partial".
// An empty label parses to "" so the caller can fall back to Correct.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(StatusPending), "unpaid":
		return StatusPending, nil
	case string(StatusPartiallyPaid), "partial", "partially_paid":
		return StatusPartiallyPaid, nil
	case string(StatusPaid):
		return StatusPaid, nil
	default:
		return "", fmt.Errorf("unknown payment status: %s", s)
	}
}

// Amounts is the payment state of one record.
type Amounts struct {
	Paid     decimal.Decimal `json:"paidAmount"`
	Pending  decimal.Decimal `json:"pendingAmount"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Correct returns the payment status implied by the amounts:
// paid >= subtotal is paid, paid == 0 is pending, anything between is partially-paid.
//
// A zero subtotal is derived as paid+pending. Negative paid counts as zero.
// With nothing owed at all the record is paid.
func Correct(paid, pending, subtotal decimal.Decimal) Status {
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	if subtotal.IsZero() {
		subtotal = paid.Add(pending)
	}
	switch {
	case paid.GreaterThanOrEqual(subtotal):
		return StatusPaid
	case paid.IsZero():
		return StatusPending
	default:
		return StatusPartiallyPaid
	}
}

// Correct is Correct(a.Paid, a.Pending, a.Subtotal).
func (a Amounts) Correct() Status {
	return Correct(a.Paid, a.Pending, a.Subtotal)
}
