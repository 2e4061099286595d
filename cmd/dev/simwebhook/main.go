package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/webhook"
	"backoffice/pkg/config"
)

func main() {
	var (
		url       = flag.String("url", "", "webhook endpoint base url (defaults to http://localhost<HTTP_ADDR>/v1/webhooks/store)")
		topic     = flag.String("topic", webhook.TopicBookingChanged, "booking_changed or task_changed")
		secret    = flag.String("secret", "", "STORE_WEBHOOK_SECRET")
		payload   = flag.String("payload", "", "path to json payload file (defaults to {})")
		webhookID = flag.String("id", "", "webhook id header value (defaults to a random uuid)")
	)
	flag.Parse()

	cfg := config.Load()
	if *url == "" {
		httpAddr := cfg.HTTPAddr
		if strings.HasPrefix(httpAddr, ":") {
			*url = "http://localhost" + httpAddr + "/v1/webhooks/store"
		} else {
			*url = "http://" + httpAddr + "/v1/webhooks/store"
		}
	}
	if *secret == "" {
		*secret = cfg.StoreWebhookSecret
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or STORE_WEBHOOK_SECRET in env/.env)")
		os.Exit(2)
	}
	if *webhookID == "" {
		*webhookID = uuid.NewString()
	}

	b := []byte("{}")
	if *payload != "" {
		var err error
		if b, err = os.ReadFile(*payload); err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(2)
		}
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*url, "/")+"/"+*topic, bytes.NewReader(b))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Store-Topic", *topic)
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(b, *secret))
	req.Header.Set("X-Store-Webhook-Id", *webhookID)

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(body))
}
