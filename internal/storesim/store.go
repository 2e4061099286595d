// Package storesim is an in-memory stand-in for the remote hotel store. It
// speaks the same REST envelope so the back office can run without the real one.
package storesim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

type Booking struct {
	ID              string          `json:"_id"`
	Guest           Guest           `json:"guest"`
	Room            Room            `json:"room"`
	CheckInDate     string          `json:"checkInDate"`
	CheckOutDate    string          `json:"checkOutDate"`
	NumberOfGuests  int             `json:"numberOfGuests"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       time.Time       `json:"createdAt"`
	SpecialRequests string          `json:"specialRequests,omitempty"`
	BookingStatus   string          `json:"bookingStatus"`
	PaymentStatus   string          `json:"paymentStatus"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	PendingAmount   decimal.Decimal `json:"pendingAmount"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	PaymentNotes    []string        `json:"paymentNotes,omitempty"`
}

type Task struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
	Room     Room   `json:"room"`
	DueDate  string `json:"dueDate,omitempty"`
	Status   string `json:"status"`
}

var (
	bookingStatuses = map[string]bool{"pending": true, "confirmed": true, "checked-in": true, "checked-out": true, "cancelled": true}
	taskStatuses    = map[string]bool{"pending": true, "in-progress": true, "completed": true, "cancelled": true}
	paymentStatuses = map[string]bool{"pending": true, "partial": true, "partially-paid": true, "paid": true}
)

// ChangeFunc is called after a mutation with the webhook topic and payload.
type ChangeFunc func(topic string, payload []byte)

type Store struct {
	// Token, when set, is the bearer token every request must carry.
	Token    string
	OnChange ChangeFunc
	Logger   *slog.Logger

	mu       sync.Mutex
	bookings []*Booking
	tasks    []*Task
	// failNext makes the next status update fail with this status code.
	failNext int
}

func New() *Store {
	return &Store{}
}

func (s *Store) AddBooking(b Booking) Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.bookings = append(s.bookings, &b)
	return b
}

func (s *Store) AddTask(t Task) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.tasks = append(s.tasks, &t)
	return t
}

// FailNext makes the next status update answer with code.
func (s *Store) FailNext(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = code
}

func (s *Store) Booking(id string) (Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.findBooking(id); b != nil {
		return *b, true
	}
	return Booking{}, false
}

func (s *Store) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.findTask(id); t != nil {
		return *t, true
	}
	return Task{}, false
}

func (s *Store) findBooking(id string) *Booking {
	for _, b := range s.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *Store) findTask(id string) *Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Handler serves the store API. Mount it under the base path clients use, e.g. /api.
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireToken)
	r.Get("/booking", s.listBookings)
	r.Put("/booking/{id}/status", s.putBookingStatus)
	r.Get("/task", s.listTasks)
	r.Put("/task/{id}/status", s.putTaskStatus)
	r.Put("/payment/{id}/payment-status", s.putPaymentStatus)
	return r
}

func (s *Store) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz != "Bearer "+s.Token {
				fail(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Store) listBookings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	s.mu.Unlock()
	ok(w, out)
}

func (s *Store) listTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	s.mu.Unlock()
	ok(w, out)
}

func (s *Store) takeFailure() int {
	code := s.failNext
	s.failNext = 0
	return code
}

func (s *Store) putBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingStatus string `json:"bookingStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	if code := s.takeFailure(); code != 0 {
		s.mu.Unlock()
		fail(w, code, "Simulated failure")
		return
	}
	if !bookingStatuses[req.BookingStatus] {
		s.mu.Unlock()
		fail(w, http.StatusBadRequest, "Invalid booking status")
		return
	}
	b := s.findBooking(chi.URLParam(r, "id"))
	if b == nil {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Booking not found")
		return
	}
	b.BookingStatus = req.BookingStatus
	out := *b
	s.mu.Unlock()

	s.changed("booking_changed", out.ID, out.BookingStatus)
	ok(w, out)
}

func (s *Store) putTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	if code := s.takeFailure(); code != 0 {
		s.mu.Unlock()
		fail(w, code, "Simulated failure")
		return
	}
	if !taskStatuses[req.Status] {
		s.mu.Unlock()
		fail(w, http.StatusBadRequest, "Invalid task status")
		return
	}
	t := s.findTask(chi.URLParam(r, "id"))
	if t == nil {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Task not found")
		return
	}
	t.Status = req.Status
	out := *t
	s.mu.Unlock()

	s.changed("task_changed", out.ID, out.Status)
	ok(w, out)
}

func (s *Store) putPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentStatus string          `json:"paymentStatus"`
		PaidAmount    decimal.Decimal `json:"paidAmount"`
		PendingAmount decimal.Decimal `json:"pendingAmount"`
		Notes         []string        `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !paymentStatuses[req.PaymentStatus] {
		fail(w, http.StatusBadRequest, "Invalid payment status")
		return
	}

	s.mu.Lock()
	b := s.findBooking(chi.URLParam(r, "id"))
	if b == nil {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Booking not found")
		return
	}
	b.PaymentStatus = req.PaymentStatus
	b.PaidAmount = req.PaidAmount
	b.PendingAmount = req.PendingAmount
	b.PaymentNotes = append(b.PaymentNotes, req.Notes...)
	id := b.ID
	s.mu.Unlock()

	s.changed("booking_changed", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Payment status updated"})
}

func (s *Store) changed(topic, id, status string) {
	if s.Logger != nil {
		s.Logger.Info("store record changed", "topic", topic, "id", id, "status", status)
	}
	if s.OnChange == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"id": id, "status": status})
	s.OnChange(topic, payload)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Seed fills the store with a small hotel. With drift set, one fully paid
// booking carries a stale "pending" payment status.
func (s *Store) Seed(drift bool) {
	day := func(offset int) string {
		return time.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
	}
	money := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	s.AddBooking(Booking{
		Guest: Guest{Name: "Ada Lovelace", Email: "ada@example.com"}, Room: Room{Number: "101", Type: "Deluxe"},
		CheckInDate: day(1), CheckOutDate: day(4), NumberOfGuests: 2,
		TotalAmount: money(1000), Subtotal: money(1000), PaidAmount: money(0), PendingAmount: money(1000),
		BookingStatus: "pending", PaymentStatus: "pending",
	})
	s.AddBooking(Booking{
		Guest: Guest{Name: "Grace Hopper", Email: "grace@example.com"}, Room: Room{Number: "204", Type: "Suite"},
		CheckInDate: day(0), CheckOutDate: day(2), NumberOfGuests: 1,
		TotalAmount: money(1000), Subtotal: money(1000), PaidAmount: money(400), PendingAmount: money(600),
		BookingStatus: "confirmed", PaymentStatus: "partial", SpecialRequests: "Late check-in",
	})
	paid := "paid"
	if drift {
		paid = "pending"
	}
	s.AddBooking(Booking{
		Guest: Guest{Name: "Alan Turing"}, Room: Room{Number: "305", Type: "Standard"},
		CheckInDate: day(-2), CheckOutDate: day(1), NumberOfGuests: 1,
		TotalAmount: money(750), Subtotal: money(750), PaidAmount: money(750), PendingAmount: money(0),
		BookingStatus: "checked-in", PaymentStatus: paid,
	})

	s.AddTask(Task{Title: "Replace towels", Assignee: "housekeeping", Room: Room{Number: "101"}, DueDate: day(0), Status: "pending"})
	s.AddTask(Task{Title: "Fix air conditioning", Assignee: "maintenance", Room: Room{Number: "204"}, DueDate: day(1), Status: "in-progress"})
}

func (b Booking) String() string {
	return fmt.Sprintf("%s %s room %s (%s)", b.ID, b.Guest.Name, b.Room.Number, b.BookingStatus)
}
