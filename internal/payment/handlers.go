package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/api"
)

// Ledger looks up the amounts the back office currently holds for a record.
type Ledger interface {
	PaymentOf(id string) (Amounts, bool)
}

type Handlers struct {
	Ledger     Ledger
	Reconciler Reconciler
	// AfterPush runs once the store accepted a corrected status, typically a refetch.
	AfterPush func(ctx context.Context)
}

type ReconcileRequest struct {
	Notes []string `json:"notes"`
}

func (h Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}

	amounts, ok := h.Ledger.PaymentOf(id)
	if !ok {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "booking not found")
		return
	}
	notes := req.Notes
	if len(notes) == 0 {
		notes = []string{"reconciled by " + api.ActorFromContext(r.Context())}
	}

	st, err := h.Reconciler.Push(r.Context(), id, amounts, notes)
	if err != nil {
		api.WriteRemoteError(w, err, nil)
		return
	}
	if h.AfterPush != nil {
		h.AfterPush(context.WithoutCancel(r.Context()))
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"id":            id,
		"paymentStatus": st,
		"paidAmount":    amounts.Paid,
		"pendingAmount": amounts.Pending,
		"subtotal":      amounts.Subtotal,
	})
}
