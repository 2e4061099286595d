// Command simstore runs the in-memory remote store on its own port so the back
// office can be exercised end to end.
package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"backoffice/internal/storesim"
	"backoffice/internal/webhook"
)

func main() {
	var (
		addr       = flag.String("addr", ":5000", "listen address")
		token      = flag.String("token", os.Getenv("REMOTE_TOKEN"), "bearer token required on every request (empty accepts any)")
		drift      = flag.Bool("drift", false, "seed a booking whose payment status disagrees with its amounts")
		webhookURL = flag.String("webhook-url", "", "back office webhook base url, e.g. http://localhost:8081/v1/webhooks/store")
		secret     = flag.String("webhook-secret", os.Getenv("STORE_WEBHOOK_SECRET"), "secret used to sign webhooks")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := storesim.New()
	store.Token = *token
	store.Logger = logger
	store.Seed(*drift)

	if *webhookURL != "" {
		hc := &http.Client{Timeout: 5 * time.Second}
		base := strings.TrimRight(*webhookURL, "/")
		store.OnChange = func(topic string, payload []byte) {
			go func() {
				req, err := http.NewRequest(http.MethodPost, base+"/"+topic, bytes.NewReader(payload))
				if err != nil {
					return
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set(webhook.SignatureHeader, webhook.Sign(payload, *secret))
				req.Header.Set("X-Store-Webhook-Id", uuid.NewString())
				resp, err := hc.Do(req)
				if err != nil {
					logger.Warn("webhook delivery failed", "topic", topic, "err", err)
					return
				}
				resp.Body.Close()
			}()
		}
	}

	r := chi.NewRouter()
	r.Mount("/api", store.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: *addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("simulated store listening", "addr", *addr, "drift", *drift)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
