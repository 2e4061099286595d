package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/auth"
	"backoffice/internal/lifecycle"
	"backoffice/internal/payment"
	"backoffice/internal/storesim"
	"backoffice/internal/webhook"
	"backoffice/pkg/config"
	"backoffice/pkg/remote"
)

type fixture struct {
	store  *storesim.Store
	router http.Handler
	cfg    config.Config
	book   *lifecycle.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := storesim.New()
	store.Seed(false)
	mux := chi.NewRouter()
	mux.Mount("/api", store.Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := remote.New(srv.URL+"/api", remote.WithCredentials(auth.Static("tok")))
	bookings, err := lifecycle.NewManager(lifecycle.Config{Kind: lifecycle.KindBooking, Store: client})
	require.NoError(t, err)
	tasks, err := lifecycle.NewManager(lifecycle.Config{Kind: lifecycle.KindTask, Store: client})
	require.NoError(t, err)

	cfg := config.Config{
		AppEnv:             "dev",
		Operator:           config.OperatorConfig{JWTSecret: "jwt-secret", JWTAudience: "backoffice"},
		StoreWebhookSecret: "hook-secret",
	}
	router := NewRouter(Dependencies{
		Cfg:        cfg,
		Bookings:   bookings,
		Tasks:      tasks,
		Reconciler: payment.Reconciler{Store: client},
	})
	return fixture{store: store, router: router, cfg: cfg, book: bookings}
}

func (f fixture) token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.IssueOperatorToken("op-1", role, f.cfg.Operator.JWTAudience, f.cfg.Operator.JWTSecret, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (f fixture) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_ReadinessFollowsFirstFetch(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/readyz", "", nil).Code)

	dev := map[string]string{"X-Operator": "alice"}
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/bookings/refresh", "", dev).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/tasks/refresh", "", dev).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestRouter_RequiresOperator(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/bookings/", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/bookings/", "", map[string]string{"Authorization": "Bearer junk"}).Code)
}

func TestRouter_RolesOnTransitions(t *testing.T) {
	f := newFixture(t)
	_, err := f.book.FetchAll(context.Background())
	require.NoError(t, err)
	id := f.book.Records()[0].ID
	body := `{"action":"confirm"}`

	housekeeping := map[string]string{"Authorization": "Bearer " + f.token(t, auth.RoleHousekeeping)}
	rr := f.do(http.MethodPost, "/v1/bookings/"+id+"/transitions", body, housekeeping)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	reception := map[string]string{"Authorization": "Bearer " + f.token(t, auth.RoleReceptionist)}
	rr = f.do(http.MethodPost, "/v1/bookings/"+id+"/transitions", body, reception)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	b, _ := f.store.Booking(id)
	assert.Equal(t, "confirmed", b.BookingStatus)

	rr = f.do(http.MethodPost, "/v1/payments/"+id+"/reconcile", "", reception)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	manager := map[string]string{"Authorization": "Bearer " + f.token(t, auth.RoleManager)}
	rr = f.do(http.MethodPost, "/v1/payments/"+id+"/reconcile", "", manager)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRouter_StoreWebhookRefetches(t *testing.T) {
	f := newFixture(t)
	body := `{"id":"x"}`
	rr := f.do(http.MethodPost, "/v1/webhooks/store/booking_changed", body, map[string]string{
		webhook.SignatureHeader: webhook.Sign([]byte(body), "hook-secret"),
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, f.book.Records(), 3)
}
