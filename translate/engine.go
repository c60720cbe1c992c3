package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/song782360037/MTranServer/observability"
)

// Engine converts text between languages. Implementations may call remote
// services; callers treat latency and occasional failure per call as normal.
type Engine interface {
	// Translate returns text translated from one language to another. The
	// html flag is forwarded uninterpreted as a formatting hint for the
	// boundary.
	Translate(ctx context.Context, from, to, text string, html bool) (string, error)
}

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	retryInterval     = 500 * time.Millisecond
)

// RemoteEngine calls a translation HTTP service exposing
// POST {baseURL}/translate with a JSON body {from, to, text, html} and a JSON
// response {result}. Transient failures (network errors and 5xx responses)
// are retried with a constant backoff; 4xx responses are not.
type RemoteEngine struct {
	baseURL string
	client  *http.Client
	retries uint64
	log     observability.Logger
}

// RemoteOption configures a RemoteEngine.
type RemoteOption func(*RemoteEngine)

// WithHTTPClient overrides the HTTP client used for translation calls.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(e *RemoteEngine) { e.client = c }
}

// WithRetries sets the number of retries after the initial attempt.
func WithRetries(n uint64) RemoteOption {
	return func(e *RemoteEngine) { e.retries = n }
}

// WithRemoteLogger sets the engine's logger.
func WithRemoteLogger(log observability.Logger) RemoteOption {
	return func(e *RemoteEngine) { e.log = log }
}

// NewRemoteEngine constructs an engine for the given service base URL.
func NewRemoteEngine(baseURL string, opts ...RemoteOption) *RemoteEngine {
	e := &RemoteEngine{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		retries: defaultMaxRetries,
		log:     observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type translateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	HTML bool   `json:"html"`
}

type translateResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Translate implements Engine.
func (e *RemoteEngine) Translate(ctx context.Context, from, to, text string, html bool) (string, error) {
	body, err := json.Marshal(translateRequest{From: from, To: to, Text: text, HTML: html})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	result, err := backoff.RetryWithData(func() (string, error) {
		out, err := e.call(ctx, body)
		if err != nil {
			e.log.Debug("translation attempt failed", observability.Error("err", err))
		}
		return out, err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), e.retries), ctx))
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", from, to, err)
	}
	return result, nil
}

func (e *RemoteEngine) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("translation service status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("translation service status %d: %s", resp.StatusCode, data))
	}

	var out translateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode translation response: %w", err))
	}
	if out.Error != "" {
		return "", backoff.Permanent(fmt.Errorf("translation service: %s", out.Error))
	}
	return out.Result, nil
}
