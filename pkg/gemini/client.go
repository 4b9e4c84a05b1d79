// Package gemini is a wire-level client for Google's generateContent API.
// Prompts ask the model for a single JSON object keyed by input item, so the
// client returns the decoded top-level object and leaves per-entry shape
// validation to the caller.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// maxRetries is the retry cap per model; one additional fallback cycle
	// to the alternate model is allowed on top of it.
	maxRetries = 3

	defaultAttemptTimeout = 120 * time.Second
)

// defaultRetryDelays is the backoff schedule indexed by attempt.
var defaultRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// Client performs generateContent calls with retry, timeout and model
// fallback.
type Client interface {
	Call(ctx context.Context, prompt, model string) (map[string]json.RawMessage, error)
}

// UsageRecorder receives one event per confirmed-successful call: request
// sent, parseable success body decoded. HTTP 200 alone does not count.
type UsageRecorder interface {
	RecordSuccess(ctx context.Context, model string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUsageRecorder registers the recorder notified on successful calls.
func WithUsageRecorder(u UsageRecorder) Option {
	return func(c *httpClient) {
		c.usage = u
	}
}

type httpClient struct {
	apiKey         string
	baseURL        string
	http           *http.Client
	usage          UsageRecorder
	attemptTimeout time.Duration
	retryDelays    []time.Duration
}

// NewClient creates a generateContent client. The per-attempt timeout is
// enforced via context, so the embedded http.Client carries no timeout of
// its own.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		attemptTimeout: defaultAttemptTimeout,
		retryDelays:    defaultRetryDelays,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- wire types ---

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []textPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// statusError is an internal marker for a non-2xx response, classified by
// the retry loop before surfacing as *APIError.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return "gemini: http " + http.StatusText(e.code)
}

// netError marks timeout/abort/connection-class failures from the transport.
type netError struct {
	err error
}

func (e *netError) Error() string { return "gemini: send request: " + e.err.Error() }
func (e *netError) Unwrap() error { return e.err }

// Call runs the retry/fallback state machine for one logical request:
// up to 3 retries with backoff on 503 and network-class failures, plus at
// most one fallback cycle to the alternate model.
func (c *httpClient) Call(ctx context.Context, prompt, model string) (map[string]json.RawMessage, error) {
	attempt := 0
	fellBack := false

	for {
		result, err := c.doAttempt(ctx, prompt, model)
		if err == nil {
			return result, nil
		}

		// Parent cancellation ends the state machine immediately.
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "gemini: call cancelled")
		}

		var se *statusError
		switch {
		case errors.As(err, &se):
			if se.code == http.StatusServiceUnavailable && attempt < maxRetries {
				zap.L().Warn("model overloaded, retrying",
					zap.String("model", model),
					zap.Int("attempt", attempt+1),
					zap.Duration("delay", c.retryDelays[attempt]),
				)
				if err := c.backoff(ctx, attempt); err != nil {
					return nil, err
				}
				attempt++
				continue
			}
			if (se.code == http.StatusServiceUnavailable || se.code == http.StatusTooManyRequests) &&
				attempt == 0 && !fellBack {
				fallback := FallbackModel(model)
				zap.L().Warn("falling back to alternate model",
					zap.String("from", model),
					zap.String("to", fallback),
					zap.Int("status", se.code),
				)
				model = fallback
				fellBack = true
				attempt = 0
				continue
			}
			return nil, &APIError{Status: se.code, Body: se.body}

		case isNetworkError(err):
			if attempt < maxRetries {
				zap.L().Warn("network failure, retrying",
					zap.String("model", model),
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				if berr := c.backoff(ctx, attempt); berr != nil {
					return nil, err
				}
				attempt++
				continue
			}
			if !fellBack {
				fallback := FallbackModel(model)
				zap.L().Warn("retries exhausted, attempting fallback model",
					zap.String("from", model),
					zap.String("to", fallback),
				)
				model = fallback
				fellBack = true
				attempt = 0
				continue
			}
			return nil, eris.Wrap(err, "gemini: request failed after retries")

		default:
			// EmptyResponse, InvalidResponse, marshal failures: terminal.
			return nil, err
		}
	}
}

// doAttempt performs one HTTP request under the attempt timeout and decodes
// the candidate text. The timeout cancel is deferred, so no timer outlives
// the attempt.
func (c *httpClient) doAttempt(ctx context.Context, prompt, model string) (map[string]json.RawMessage, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []textPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.1,
			MaxOutputTokens:  MaxOutputTokens,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: marshal request")
	}

	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	url := c.baseURL + "/v1beta/models/" + model + ":generateContent?key=" + c.apiKey
	req, err := http.NewRequestWithContext(actx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &netError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &netError{err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, eris.Wrap(ErrInvalidResponse, "decode response envelope")
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	text := gr.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &result); err != nil {
		zap.L().Error("could not parse model JSON output",
			zap.String("model", model),
			zap.String("prefix", truncate(text, 200)),
		)
		return nil, eris.Wrap(ErrInvalidResponse, "parse model output")
	}

	if c.usage != nil {
		if err := c.usage.RecordSuccess(ctx, model); err != nil {
			zap.L().Warn("failed to record successful call", zap.Error(err))
		}
	}
	return result, nil
}

func (c *httpClient) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelays[attempt])
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "gemini: backoff cancelled")
	case <-timer.C:
		return nil
	}
}

// isNetworkError reports whether err is a timeout/abort/connection-class
// failure worth retrying. Any transport-level failure from http.Client.Do
// qualifies, including attempt-deadline expiry.
func isNetworkError(err error) bool {
	var ne *netError
	return errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded)
}

// stripCodeFence removes a leading ```json (or bare ```) marker and a
// trailing ``` from the model output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
