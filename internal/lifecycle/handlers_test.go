package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/pkg/remote"
)

func newTestRouter(m *Manager) http.Handler {
	r := chi.NewRouter()
	r.Route("/bookings", Handlers{Manager: m}.Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type errorBody struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Resynced *bool  `json:"resynced"`
	} `json:"error"`
}

func TestHandlers_ListAndGet(t *testing.T) {
	f := newFixture(t, KindBooking, booking("b1", "pending"), booking("b2", "checked-out"))
	h := newTestRouter(f.m)

	rr := do(t, h, http.MethodGet, "/bookings/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []recordView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, []Action{ActionConfirm, ActionCancel}, list.Items[0].Actions)
	assert.Empty(t, list.Items[1].Actions)
	assert.False(t, list.Items[0].Terminal)
	assert.True(t, list.Items[1].Terminal)

	rr = do(t, h, http.MethodGet, "/bookings/b1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var one recordView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &one))
	assert.Equal(t, "b1", one.Record.ID)

	rr = do(t, h, http.MethodGet, "/bookings/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_Transition(t *testing.T) {
	f := newFixture(t, KindBooking, booking("b1", "pending"), booking("b2", "checked-in"))
	h := newTestRouter(f.m)

	rr := do(t, h, http.MethodPost, "/bookings/b1/transitions", `{"action":"confirm"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got recordView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, StatusConfirmed, got.Record.Status)
	assert.Equal(t, []Action{ActionCheckIn, ActionCancel}, got.Actions)

	cases := []struct {
		name string
		path string
		body string
		code int
		err  string
	}{
		{"unknown action", "/bookings/b1/transitions", `{"action":"teleport"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad json", "/bookings/b1/transitions", `{`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown id", "/bookings/zz/transitions", `{"action":"confirm"}`, http.StatusNotFound, "NOT_FOUND"},
		{"illegal", "/bookings/b2/transitions", `{"action":"cancel"}`, http.StatusConflict, "ILLEGAL_TRANSITION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.code, rr.Code)
			var eb errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eb))
			assert.Equal(t, tc.err, eb.Error.Code)
		})
	}
	_, updates := f.store.calls()
	assert.Equal(t, []string{"b1:confirmed"}, updates)
}

func TestHandlers_TransitionRemoteFailure(t *testing.T) {
	f := newFixture(t, KindBooking, booking("b1", "pending"))
	f.store.updateErr = &remote.Error{Kind: remote.KindServer, Status: 500, Message: "Database unavailable"}
	h := newTestRouter(f.m)

	rr := do(t, h, http.MethodPost, "/bookings/b1/transitions", `{"action":"confirm"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var eb errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eb))
	assert.Equal(t, "Database unavailable", eb.Error.Message)
	require.NotNil(t, eb.Error.Resynced)
	assert.True(t, *eb.Error.Resynced)

	f.store.updateErr = &remote.Error{Kind: remote.KindAuth, Status: 401, Message: "Token expired"}
	rr = do(t, h, http.MethodPost, "/bookings/b1/transitions", `{"action":"confirm"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eb))
	require.NotNil(t, eb.Error.Resynced)
	assert.False(t, *eb.Error.Resynced)
}

func TestHandlers_RefreshAndJournal(t *testing.T) {
	f := newFixture(t, KindBooking, booking("b1", "pending"))
	h := newTestRouter(f.m)

	f.store.setStatus("b1", "confirmed")
	rr := do(t, h, http.MethodPost, "/bookings/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got, _ := f.m.Get("b1")
	assert.Equal(t, StatusConfirmed, got.Status)

	_, err := f.m.RequestTransition(WithActor(context.Background(), "bob"), "b1", ActionCheckIn)
	require.NoError(t, err)
	rr = do(t, h, http.MethodGet, "/bookings/b1/journal", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Items []Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, OutcomeConfirmed, body.Items[0].Outcome)
	assert.Equal(t, "bob", body.Items[0].Actor)

	f.store.listErr = &remote.Error{Kind: remote.KindNetwork, Message: "request timed out"}
	rr = do(t, h, http.MethodPost, "/bookings/refresh", "")
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}

func TestHandlers_JournalDisabled(t *testing.T) {
	m, err := NewManager(Config{Kind: KindBooking, Store: newFakeStore()})
	require.NoError(t, err)
	rr := do(t, newTestRouter(m), http.MethodGet, "/bookings/b1/journal", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
