package lifecycle

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/api"
)

type Handlers struct {
	Manager *Manager
}

type recordView struct {
	Record   Record   `json:"record"`
	Actions  []Action `json:"actions"`
	Terminal bool     `json:"terminal"`
}

func view(rec Record) recordView {
	return recordView{Record: rec, Actions: ActionsFor(rec), Terminal: Terminal(rec.Kind, rec.Status)}
}

func views(recs []Record) []recordView {
	out := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, view(rec))
	}
	return out
}

// Routes mounts the handlers for one kind, e.g. under /v1/bookings.
func (h Handlers) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/refresh", h.Refresh)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/transitions", h.Transition)
	r.Get("/{id}/journal", h.Journal)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"items": views(h.Manager.Records())}
	if t := h.Manager.LastFetch(); !t.IsZero() {
		resp["fetchedAt"] = t.UTC().Format(time.RFC3339)
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.Manager.Get(id)
	if !ok {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", string(h.Manager.Kind())+" not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, view(rec))
}

func (h Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Manager.FetchAll(r.Context())
	if err != nil {
		api.WriteRemoteError(w, err, nil)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": views(recs)})
}

type TransitionRequest struct {
	Action string `json:"action"`
}

func (h Handlers) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	action, err := ParseAction(req.Action)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	ctx := WithActor(r.Context(), api.ActorFromContext(r.Context()))
	rec, err := h.Manager.RequestTransition(ctx, id, action)
	if err != nil {
		var terr *TransitionError
		switch {
		case errors.Is(err, ErrUnknownRecord):
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", string(h.Manager.Kind())+" not found")
		case errors.Is(err, ErrIllegalTransition):
			api.WriteError(w, http.StatusConflict, "ILLEGAL_TRANSITION", err.Error())
		case errors.Is(err, ErrTransitionInFlight):
			api.WriteError(w, http.StatusConflict, "TRANSITION_IN_FLIGHT", err.Error())
		case errors.As(err, &terr):
			resynced := terr.Resynced
			api.WriteRemoteError(w, terr, &resynced)
		default:
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		}
		return
	}
	api.WriteJSON(w, http.StatusOK, view(rec))
}

func (h Handlers) Journal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, enabled, err := h.Manager.Journal(r.Context(), id)
	if !enabled {
		api.WriteError(w, http.StatusServiceUnavailable, "JOURNAL_DISABLED", "journal is not configured")
		return
	}
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}
