// Package remote is the client of the hotel remote store: the REST backend of
// record for bookings, tasks and payments.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer credential. An empty token with a nil error
// means no credential is available.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials TokenSource
	Limiter     *rate.Limiter
}

type Option func(*Client)

// WithCredentials sets the bearer token source.
func WithCredentials(ts TokenSource) Option {
	return func(c *Client) { c.Credentials = ts }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithRateLimit bounds outbound requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var tracer = otel.Tracer("backoffice/remote")

// doJSON performs one request and decodes the envelope. The schema is checked
// before anything is decoded so a malformed body is never partially applied.
func (c *Client) doJSON(ctx context.Context, method, route, path string, reqBody any, schema schemaRef, out any) error {
	ctx, span := tracer.Start(ctx, "remote "+method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := c.do(ctx, span, method, path, reqBody, schema, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	return err
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path string, reqBody any, schema schemaRef, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("missing remote base url")
	}

	token, err := c.token(ctx)
	if err != nil {
		return &Error{Kind: KindAuth, Message: "credential unavailable", Err: err}
	}
	if token == "" && method != http.MethodGet {
		return &Error{Kind: KindAuth, Message: "missing credential"}
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return err
		}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return transportError(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("backoffice.request_id", requestID),
	)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the store's message verbatim when the body has one.
		var env envelope
		msg := ""
		if len(b) > 0 && json.Unmarshal(b, &env) == nil {
			msg = env.failureMessage()
		}
		return &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	if err := validateEnvelope(schema.get(), b); err != nil {
		return &Error{Kind: KindShape, Status: resp.StatusCode, Message: "unexpected response shape", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return &Error{Kind: KindShape, Status: resp.StatusCode, Message: "unexpected response shape", Err: err}
	}
	if !env.Success {
		msg := env.failureMessage()
		if msg == "" {
			msg = "request rejected by store"
		}
		return &Error{Kind: KindConflict, Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindShape, Status: resp.StatusCode, Message: "unexpected response shape", Err: err}
		}
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.Credentials == nil {
		return "", nil
	}
	return c.Credentials.Token(ctx)
}

// List fetches a whole collection ("booking" or "task").
func (c *Client) List(ctx context.Context, collection string) ([]Record, error) {
	var out []Record
	if err := c.doJSON(ctx, http.MethodGet, "/"+collection, "/"+collection, nil, schemaList, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus submits a status change and returns the record the store echoes.
// Bookings carry the status as bookingStatus, tasks as status.
func (c *Client) UpdateStatus(ctx context.Context, collection, id, status string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("missing record id")
	}
	key := "status"
	if collection == CollectionBooking {
		key = "bookingStatus"
	}
	path := "/" + collection + "/" + url.PathEscape(id) + "/status"
	var out Record
	if err := c.doJSON(ctx, http.MethodPut, "/"+collection+"/{id}/status", path, map[string]string{key: status}, schemaItem, &out); err != nil {
		return nil, err
	}
	// A successful envelope with an empty object is still missing the echo.
	if out.Status == "" {
		return nil, &Error{Kind: KindShape, Message: "store did not echo a status"}
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// UpdatePaymentStatus pushes a payment status to the store.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id string, upd PaymentUpdate) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("missing record id")
	}
	if upd.Notes == nil {
		upd.Notes = []string{}
	}
	path := "/payment/" + url.PathEscape(id) + "/payment-status"
	return c.doJSON(ctx, http.MethodPut, "/payment/{id}/payment-status", path, upd, schemaAck, nil)
}
