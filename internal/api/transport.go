// Package api holds the HTTP clients for the backend and payment collaborators.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stayease/internal/metrics"
)

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token() string
}

// Options configures a Transport.
type Options struct {
	// Name labels the collaborator in logs and metrics.
	Name          string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Tokens        TokenSource
	Logger        *zerolog.Logger
	HTTPClient    *http.Client
}

// Transport sends JSON requests to one collaborator.
type Transport struct {
	name       string
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewTransport builds a transport. A zero RatePerSecond disables throttling.
func NewTransport(opts Options) *Transport {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("collaborator", opts.Name).Logger()
	}

	t := &Transport{
		name:       opts.Name,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		tokens:     opts.Tokens,
		logger:     logger,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return t
}

// SetTokenSource swaps the token source, used when the session store is built after the client.
func (t *Transport) SetTokenSource(ts TokenSource) {
	t.tokens = ts
}

func (t *Transport) getJSON(ctx context.Context, op, path string, out any) error {
	return t.do(ctx, op, http.MethodGet, path, http.NoBody, "", nil, out)
}

func (t *Transport) postJSON(ctx context.Context, op, path string, body, out any, headers map[string]string) error {
	return t.sendJSON(ctx, op, http.MethodPost, path, body, out, headers)
}

func (t *Transport) putJSON(ctx context.Context, op, path string, body, out any) error {
	return t.sendJSON(ctx, op, http.MethodPut, path, body, out, nil)
}

func (t *Transport) delete(ctx context.Context, op, path string) error {
	return t.do(ctx, op, http.MethodDelete, path, http.NoBody, "", nil, nil)
}

func (t *Transport) sendJSON(ctx context.Context, op, method, path string, body, out any, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return t.do(ctx, op, method, path, bytes.NewReader(data), "application/json", headers, out)
}

func (t *Transport) do(
	ctx context.Context,
	op, method, path string,
	body io.Reader,
	contentType string,
	headers map[string]string,
	out any,
) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if t.tokens != nil {
		if token := t.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(t.name, op, "error", time.Since(start))
		t.logger.Debug().Err(err).Str("op", op).Msg("collaborator request failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	took := time.Since(start)
	t.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", took).
		Msg("collaborator request")

	if resp.StatusCode >= 300 {
		metrics.ObserveRequest(t.name, op, "rejected", took)
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{
			Collaborator: t.name,
			Operation:    op,
			Status:       resp.StatusCode,
			Message:      payloadMessage(raw),
		}
	}
	metrics.ObserveRequest(t.name, op, "ok", took)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if s, ok := out.(*string); ok {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read response: %w", op, err)
		}
		*s = strings.TrimSpace(string(raw))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
