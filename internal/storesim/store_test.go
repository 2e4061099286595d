package storesim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/lifecycle"
	"backoffice/internal/payment"
	"backoffice/pkg/remote"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newServer(t *testing.T, s *Store) *remote.Client {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/api", s.Handler())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return remote.New(srv.URL+"/api", remote.WithCredentials(staticToken("tok")), remote.WithTimeout(2*time.Second))
}

func TestStore_ClientContract(t *testing.T) {
	s := New()
	s.Token = "tok"
	s.Seed(false)
	c := newServer(t, s)
	ctx := context.Background()

	bookings, err := c.List(ctx, remote.CollectionBooking)
	require.NoError(t, err)
	require.Len(t, bookings, 3)
	assert.Equal(t, "pending", bookings[0].Status)
	assert.Equal(t, "Ada Lovelace", bookings[0].Guest.Name)
	assert.False(t, bookings[0].CheckInDate.IsZero())
	assert.True(t, bookings[1].PaidAmount.Equal(decimal.NewFromInt(400)))

	echo, err := c.UpdateStatus(ctx, remote.CollectionBooking, bookings[0].ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", echo.Status)

	_, err = c.UpdateStatus(ctx, remote.CollectionBooking, "missing", "confirmed")
	assert.Equal(t, remote.KindConflict, remote.KindOf(err))
	assert.Equal(t, "Booking not found", remote.MessageOf(err))

	tasks, err := c.List(ctx, remote.CollectionTask)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	echo, err = c.UpdateStatus(ctx, remote.CollectionTask, tasks[1].ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, "completed", echo.Status)

	err = c.UpdatePaymentStatus(ctx, bookings[1].ID, remote.PaymentUpdate{
		PaymentStatus: "paid", PaidAmount: decimal.NewFromInt(1000), Notes: []string{"cash"},
	})
	require.NoError(t, err)
	b, _ := s.Booking(bookings[1].ID)
	assert.Equal(t, "paid", b.PaymentStatus)
	assert.Equal(t, []string{"cash"}, b.PaymentNotes)
}

func TestStore_RejectsBadToken(t *testing.T) {
	s := New()
	s.Token = "other"
	s.Seed(false)
	c := newServer(t, s)

	_, err := c.List(context.Background(), remote.CollectionBooking)
	assert.Equal(t, remote.KindAuth, remote.KindOf(err))
	assert.Equal(t, "Not authorized, token failed", remote.MessageOf(err))
}

func TestStore_FailNextAndChangeHook(t *testing.T) {
	var mu sync.Mutex
	var topics []string
	s := New()
	s.OnChange = func(topic string, _ []byte) {
		mu.Lock()
		topics = append(topics, topic)
		mu.Unlock()
	}
	b := s.AddBooking(Booking{BookingStatus: "pending"})
	c := newServer(t, s)

	s.FailNext(http.StatusServiceUnavailable)
	_, err := c.UpdateStatus(context.Background(), remote.CollectionBooking, b.ID, "confirmed")
	assert.Equal(t, remote.KindServer, remote.KindOf(err))

	_, err = c.UpdateStatus(context.Background(), remote.CollectionBooking, b.ID, "confirmed")
	require.NoError(t, err)
	_, err = c.UpdateStatus(context.Background(), remote.CollectionBooking, b.ID, "archived")
	assert.Equal(t, "Invalid booking status", remote.MessageOf(err))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"booking_changed"}, topics)
}

func TestStore_ManagerAgainstSimulatedStore(t *testing.T) {
	s := New()
	s.Token = "tok"
	s.Seed(true)
	c := newServer(t, s)

	m, err := lifecycle.NewManager(lifecycle.Config{Kind: lifecycle.KindBooking, Store: c, Timeout: 2 * time.Second})
	require.NoError(t, err)
	recs, err := m.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Drift mode: fully paid but labelled pending by the store.
	drifted := recs[2]
	assert.True(t, drifted.PaymentDrift)
	assert.Equal(t, payment.StatusPaid, drifted.PaymentStatus)

	rec, err := m.RequestTransition(context.Background(), recs[0].ID, lifecycle.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, rec.Status)

	s.FailNext(http.StatusInternalServerError)
	_, err = m.RequestTransition(context.Background(), recs[0].ID, lifecycle.ActionCheckIn)
	var terr *lifecycle.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Resynced)
	got, _ := m.Get(recs[0].ID)
	assert.Equal(t, lifecycle.StatusConfirmed, got.Status)

	r := payment.Reconciler{Store: c}
	_, err = r.Push(context.Background(), drifted.ID, drifted.Payment, nil)
	require.NoError(t, err)
	recs, err = m.FetchAll(context.Background())
	require.NoError(t, err)
	assert.False(t, recs[2].PaymentDrift)
}
