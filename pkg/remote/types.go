package remote

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CollectionBooking = "booking"
	CollectionTask    = "task"
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

// Record is a booking or task as the store returns it. Status fields are left
// as raw strings; callers parse them into their own enumerations.
type Record struct {
	ID              string          `json:"id"`
	Guest           Guest           `json:"guest"`
	Room            Room            `json:"room"`
	CheckInDate     Time            `json:"checkInDate"`
	CheckOutDate    Time            `json:"checkOutDate"`
	NumberOfGuests  int             `json:"numberOfGuests"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       Time            `json:"createdAt"`
	SpecialRequests string          `json:"specialRequests,omitempty"`

	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	Subtotal      decimal.Decimal `json:"subtotal"`

	// Task fields.
	Title    string `json:"title,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	DueDate  Time   `json:"dueDate"`
}

// UnmarshalJSON accepts the id under "id" or "_id", the status under
// "bookingStatus" or "status", and flat guestName/roomNumber fields.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var aux struct {
		plain
		MongoID       string `json:"_id"`
		BookingStatus string `json:"bookingStatus"`
		GuestName     string `json:"guestName"`
		GuestEmail    string `json:"guestEmail"`
		RoomNumber    string `json:"roomNumber"`
		RoomType      string `json:"roomType"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	if aux.BookingStatus != "" {
		r.Status = aux.BookingStatus
	}
	if r.Guest.Name == "" {
		r.Guest.Name = aux.GuestName
	}
	if r.Guest.Email == "" {
		r.Guest.Email = aux.GuestEmail
	}
	if r.Room.Number == "" {
		r.Room.Number = aux.RoomNumber
	}
	if r.Room.Type == "" {
		r.Room.Type = aux.RoomType
	}
	return nil
}

// PaymentUpdate is the body of PUT /payment/{id}/payment-status.
type PaymentUpdate struct {
	PaymentStatus string          `json:"paymentStatus"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	Notes         []string        `json:"notes"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Time decodes the date formats the store is seen to emit: RFC 3339,
// RFC 3339 without zone, and plain dates. Empty strings and null are zero.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) failureMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
