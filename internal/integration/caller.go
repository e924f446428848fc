package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-policy-admin/internal/config"
)

// maxReplyBytes bounds how much of a remote reply is read.
const maxReplyBytes = 4 << 20

// Request is one logical call. Path is appended to the client's base URL.
type Request struct {
	Op     string // logical operation name for errors, spans and logs
	Method string
	Path   string
	Body   any         // JSON-encoded when non-nil
	Header http.Header // extra headers (e.g. Idempotency-Key)
}

// Caller performs JSON-over-HTTP calls against one external system, applying
// a hard per-attempt timeout and retrying transient failures with
// exponential backoff. Only timeouts, network errors, 5xx and 429 are
// retried; any other 4xx surfaces immediately.
type Caller struct {
	cfg    config.IntegrationConfig
	client *http.Client
	jitter float64
}

// NewCaller builds a Caller; a nil client means a dedicated http.Client.
func NewCaller(cfg config.IntegrationConfig, client *http.Client) *Caller {
	if client == nil {
		client = &http.Client{}
	}
	return &Caller{cfg: cfg, client: client, jitter: 0.2}
}

// Name is the integration label used in errors and metrics.
func (c *Caller) Name() string { return c.cfg.Name }

func (c *Caller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialDelay
	b.Multiplier = c.cfg.Multiplier
	b.MaxInterval = c.cfg.MaxDelay
	b.RandomizationFactor = c.jitter
	return b
}

// Do runs req with retries and returns the parsed JSON reply.
func (c *Caller) Do(ctx context.Context, req Request) (gjson.Result, error) {
	ctx, span := otel.Tracer("integration/"+c.cfg.Name).Start(ctx, req.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("integration", c.cfg.Name),
			attribute.String("http.method", req.Method),
			attribute.String("http.route", req.Path),
		))
	defer span.End()

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s %s: encode request: %w", c.cfg.Name, req.Op, err)
		}
		payload = b
	}

	log := zerolog.Ctx(ctx)
	start := time.Now()
	attempts := 0
	res, err := backoff.Retry(ctx, func() (gjson.Result, error) {
		attempts++
		return c.attempt(ctx, req, payload)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			retriesTotal.WithLabelValues(c.cfg.Name).Inc()
			log.Warn().Err(err).
				Str("integration", c.cfg.Name).
				Str("op", req.Op).
				Int("attempt", attempts).
				Dur("backoff", wait).
				Msg("integration call failed, retrying")
		}),
	)
	err = c.finish(ctx, req.Op, attempts, err)

	callDuration.WithLabelValues(c.cfg.Name).Observe(time.Since(start).Seconds())
	callsTotal.WithLabelValues(c.cfg.Name, outcome(err)).Inc()
	span.SetAttributes(attribute.Int("integration.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return gjson.Result{}, err
	}
	return res, nil
}

// finish normalizes the error Retry handed back: permanent wrappers are
// peeled off, attempt counts recorded, and parent-context expiry reported
// as a timeout.
func (c *Caller) finish(ctx context.Context, op string, attempts int, err error) error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		ie.Attempts = attempts
		return ie
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Integration: c.cfg.Name, Op: op, Kind: KindTimeout, Attempts: attempts,
			Message: "deadline exceeded", Err: err}
	}
	return fmt.Errorf("%s %s: %w", c.cfg.Name, op, err)
}

func (c *Caller) attempt(ctx context.Context, req Request, payload []byte) (gjson.Result, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	hreq, err := http.NewRequestWithContext(actx, req.Method, c.cfg.BaseURL+req.Path, body)
	if err != nil {
		return gjson.Result{}, backoff.Permanent(fmt.Errorf("%s %s: build request: %w", c.cfg.Name, req.Op, err))
	}
	hreq.Header.Set("Accept", "application/json")
	if payload != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		hreq.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(hreq)
	if err != nil {
		return gjson.Result{}, c.transportError(ctx, actx, req.Op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return gjson.Result{}, c.transportError(ctx, actx, req.Op, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, &Error{Integration: c.cfg.Name, Op: req.Op, Kind: KindUnavailable,
			StatusCode: resp.StatusCode, Message: remoteMessage(data)}
	case resp.StatusCode >= 400:
		return gjson.Result{}, backoff.Permanent(&Error{Integration: c.cfg.Name, Op: req.Op, Kind: KindRejected,
			StatusCode: resp.StatusCode, Message: remoteMessage(data)})
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, backoff.Permanent(&Error{Integration: c.cfg.Name, Op: req.Op, Kind: KindUnavailable,
			StatusCode: resp.StatusCode, Message: "malformed JSON reply"})
	}
	return gjson.ParseBytes(data), nil
}

// transportError classifies a failure that produced no usable response.
// When the caller's own context is done the error is permanent.
func (c *Caller) transportError(parent, attempt context.Context, op string, err error) error {
	if parent.Err() != nil {
		return backoff.Permanent(parent.Err())
	}
	kind := KindUnavailable
	var ne net.Error
	if errors.Is(attempt.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Integration: c.cfg.Name, Op: op, Kind: kind, Message: err.Error(), Err: err}
}

// remoteMessage extracts a human-readable explanation from an error reply.
func remoteMessage(data []byte) string {
	if !gjson.ValidBytes(data) {
		if len(data) > 200 {
			data = data[:200]
		}
		return string(bytes.TrimSpace(data))
	}
	for _, path := range []string{"message", "error.message", "error", "detail"} {
		if r := gjson.GetBytes(data, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}

// Ping performs a single unretried GET of path, for readiness probes.
func (c *Caller) Ping(ctx context.Context, path string) error {
	_, err := c.attempt(ctx, Request{Op: "ping", Method: http.MethodGet, Path: path}, nil)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
