package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/payment"
	"backoffice/pkg/remote"
)

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Room struct {
	Number string `json:"number"`
	Type   string `json:"type,omitempty"`
}

// Record is a booking or task as the manager holds it.
type Record struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"kind"`
	Guest           Guest           `json:"guest"`
	Room            Room            `json:"room"`
	CheckIn         *time.Time      `json:"checkInDate,omitempty"`
	CheckOut        *time.Time      `json:"checkOutDate,omitempty"`
	Guests          int             `json:"numberOfGuests"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	SpecialRequests string          `json:"specialRequests,omitempty"`

	Title    string     `json:"title,omitempty"`
	Assignee string     `json:"assignee,omitempty"`
	DueDate  *time.Time `json:"dueDate,omitempty"`

	Status Status `json:"status"`
	// Pending is the target of an in-flight transition. Status only changes
	// once the store confirms.
	Pending *Status `json:"pendingStatus,omitempty"`

	Payment       payment.Amounts `json:"payment"`
	PaymentStatus payment.Status  `json:"paymentStatus"`
	// PaymentDrift is set when the store's payment status disagreed with the amounts.
	PaymentDrift       bool           `json:"paymentDrift,omitempty"`
	StorePaymentStatus payment.Status `json:"storePaymentStatus,omitempty"`
}

// fromRemote converts a wire record. Unknown statuses are an error so a bad
// collection is rejected as a whole.
func fromRemote(kind Kind, in remote.Record) (Record, error) {
	if in.ID == "" {
		return Record{}, fmt.Errorf("%s record without id", kind)
	}
	st, err := ParseStatus(in.Status)
	if err != nil {
		return Record{}, fmt.Errorf("%s %s: %w", kind, in.ID, err)
	}
	if !ValidFor(kind, st) {
		return Record{}, fmt.Errorf("%s %s: status %s not valid for %s", kind, in.ID, st, kind)
	}
	storePay, err := payment.ParseStatus(in.PaymentStatus)
	if err != nil {
		return Record{}, fmt.Errorf("%s %s: %w", kind, in.ID, err)
	}

	r := Record{
		ID:              in.ID,
		Kind:            kind,
		Guest:           Guest{Name: in.Guest.Name, Email: in.Guest.Email, Phone: in.Guest.Phone},
		Room:            Room{Number: in.Room.Number, Type: in.Room.Type},
		CheckIn:         timePtr(in.CheckInDate),
		CheckOut:        timePtr(in.CheckOutDate),
		Guests:          in.NumberOfGuests,
		TotalAmount:     in.TotalAmount,
		CreatedAt:       timePtr(in.CreatedAt),
		SpecialRequests: in.SpecialRequests,
		Title:           in.Title,
		Assignee:        in.Assignee,
		DueDate:         timePtr(in.DueDate),
		Status:          st,
		Payment: payment.Amounts{
			Paid:     in.PaidAmount,
			Pending:  in.PendingAmount,
			Subtotal: in.Subtotal,
		},
		StorePaymentStatus: storePay,
	}
	if r.Payment.Subtotal.IsZero() {
		r.Payment.Subtotal = in.TotalAmount
	}
	return r, nil
}

// correctPayment recomputes PaymentStatus from the amounts and flags drift.
func (r *Record) correctPayment() {
	r.PaymentStatus = r.Payment.Correct()
	r.PaymentDrift = r.StorePaymentStatus != "" && r.StorePaymentStatus != r.PaymentStatus
}

func (r Record) clone() Record {
	if r.Pending != nil {
		p := *r.Pending
		r.Pending = &p
	}
	r.CheckIn = copyTime(r.CheckIn)
	r.CheckOut = copyTime(r.CheckOut)
	r.CreatedAt = copyTime(r.CreatedAt)
	r.DueDate = copyTime(r.DueDate)
	return r
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t remote.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
