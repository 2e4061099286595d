// Package webhook receives the store's "collection changed" notifications and
// turns them into a refetch of the affected collection.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/api"
	"backoffice/internal/lifecycle"
)

// Refresher is satisfied by *lifecycle.Manager.
type Refresher interface {
	FetchAll(ctx context.Context) ([]lifecycle.Record, error)
}

type Handler struct {
	Secret string
	// Topics maps a normalized topic to the collection it refreshes.
	Topics map[string]Refresher
	Logger *slog.Logger
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Prefer the topic header; fall back to route param.
	topic := strings.TrimSpace(r.Header.Get("X-Store-Topic"))
	if topic == "" {
		topic = chi.URLParam(r, "topic")
	}
	topic = NormalizeTopic(topic)
	eventID := strings.TrimSpace(r.Header.Get("X-Store-Webhook-Id"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	if !VerifyStoreWebhook(body, strings.TrimSpace(r.Header.Get(SignatureHeader)), h.Secret) {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		return
	}

	logger := h.logger().With("topic", topic, "event_id", eventID)
	target, ok := h.Topics[topic]
	if !ok {
		// Unknown topic: accept (no retries).
		logger.DebugContext(r.Context(), "webhook topic ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	if recs, err := target.FetchAll(context.WithoutCancel(r.Context())); err != nil {
		logger.WarnContext(r.Context(), "webhook refetch failed", "err", err)
	} else {
		logger.InfoContext(r.Context(), "webhook refetch done", "records", len(recs))
	}

	// The store expects a 200 quickly; refetch failures are retried by the poller.
	w.WriteHeader(http.StatusOK)
}

func (h Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger.With("component", "webhook")
}
