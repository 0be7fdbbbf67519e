package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"crop-analyze-pipeline/metrics"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	TopP             float64 `json:"topP,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Options configures the Gemini client.
type Options struct {
	// APIKeys is an ordered credential list; keys are tried in order when one
	// is rejected with an auth error.
	APIKeys []string
	// Model is the primary model name.
	Model string
	// FallbackModel is the smaller model used on the final retry attempt.
	FallbackModel string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// MaxRetries is the total number of attempts (default 3).
	MaxRetries int
	// InitialDelay is the first backoff delay; it doubles per retry.
	InitialDelay time.Duration
	// AttemptTimeout bounds each individual HTTP attempt.
	AttemptTimeout time.Duration
	Temperature     float64
	MaxOutputTokens int
}

// Client calls the Gemini generateContent API over raw HTTP with bounded
// retries, exponential backoff and model fallback on the final attempt.
type Client struct {
	opts   Options
	keyIdx uint32
	http   *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	if opts.FallbackModel == "" {
		opts.FallbackModel = opts.Model
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 45 * time.Second
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 4096
	}
	return &Client{
		opts: opts,
		http: &http.Client{},
	}
}

// SourceName identifies this provider in saved analyses.
func (c *Client) SourceName() string {
	return "Gemini"
}

// AnalyzeImage sends the prompt and an inlined JPEG to the model and returns
// the raw text output.
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	parts := []part{{Text: prompt}}
	if len(imageData) > 0 {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(imageData),
			},
		})
	}
	return c.generateContent(ctx, []content{{Role: "user", Parts: parts}})
}

// GenerateText sends a text-only prompt to the model.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generateContent(ctx, []content{{Role: "user", Parts: []part{{Text: prompt}}}})
}

// generateContent runs the retry loop: transient failures back off with
// initialDelay * 2^attempt, the final attempt switches to the fallback model,
// permanent failures abort without consuming remaining retries.
func (c *Client) generateContent(ctx context.Context, contents []content) (string, error) {
	body := geminiRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:      c.opts.Temperature,
			MaxOutputTokens:  c.opts.MaxOutputTokens,
			TopP:             0.95,
			ResponseMimeType: "application/json",
		},
		SafetySettings: []safetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", wrapErr("marshal_request", err, false)
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.InitialDelay << (attempt - 1)
			log.WithFields(log.Fields{
				"attempt": attempt,
				"backoff": backoff.String(),
			}).Debug("retrying inference request")
			select {
			case <-ctx.Done():
				return "", wrapErr("backoff_wait", ctx.Err(), false)
			case <-time.After(backoff):
			}
		}

		model := c.opts.Model
		if attempt == c.opts.MaxRetries-1 && c.opts.FallbackModel != model {
			model = c.opts.FallbackModel
			metrics.InferenceFallbacksTotal.Inc()
			log.WithField("model", model).Info("switching to fallback model for final attempt")
		}

		attemptStart := time.Now()
		text, err := c.attempt(ctx, model, data)
		metrics.InferenceDurationSeconds.WithLabelValues(model).Observe(time.Since(attemptStart).Seconds())
		if err == nil {
			metrics.InferenceAttemptsTotal.WithLabelValues(model, "success").Inc()
			return text, nil
		}
		lastErr = err
		if !IsTransient(err) {
			metrics.InferenceAttemptsTotal.WithLabelValues(model, "permanent_error").Inc()
			return "", err
		}
		metrics.InferenceAttemptsTotal.WithLabelValues(model, "transient_error").Inc()
		log.WithField("attempt", attempt).Warnf("transient inference failure: %v", err)
	}

	return "", lastErr
}

// attempt performs one bounded request, rotating through the configured API
// keys when one is rejected with an auth error. Key rotation is deliberately
// separate from the transient-failure backoff above.
func (c *Client) attempt(ctx context.Context, model string, body []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	if len(c.opts.APIKeys) == 0 {
		return "", wrapErr("auth", ErrAuth, false)
	}

	start := atomic.LoadUint32(&c.keyIdx)
	for i := 0; i < len(c.opts.APIKeys); i++ {
		idx := (int(start) + i) % len(c.opts.APIKeys)
		text, err := c.doRequest(attemptCtx, model, c.opts.APIKeys[idx], body)
		if err == nil {
			atomic.StoreUint32(&c.keyIdx, uint32(idx))
			return text, nil
		}
		if errors.Is(err, ErrAuth) && i < len(c.opts.APIKeys)-1 {
			log.WithField("key_index", idx).Warn("API key rejected, trying next key")
			continue
		}
		return "", err
	}
	return "", wrapErr("auth", ErrAuth, false)
}

// doRequest performs a single HTTP call and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, model, apiKey string, body []byte) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.opts.BaseURL, model, apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", wrapErr("create_request", err, false)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", wrapErr("attempt_timeout", ErrTimeout, true)
		}
		return "", wrapErr("http_request", err, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapErr("read_response", err, true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyHTTPError(resp.StatusCode, respBody)
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", wrapErr("parse_response", err, false)
	}
	if gr.Error != nil {
		return "", wrapErr("api_error",
			fmt.Errorf("[%d] %s: %s", gr.Error.Code, gr.Error.Status, gr.Error.Message), false)
	}
	if len(gr.Candidates) == 0 {
		// Missing candidates shape is a hard failure, not a parse-fallback case.
		return "", wrapErr("empty_response", ErrNoCandidates, false)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", wrapErr("empty_response", ErrNoCandidates, false)
	}
	return text.String(), nil
}

// classifyHTTPError maps an HTTP failure to transient or permanent.
func classifyHTTPError(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return wrapErr("overloaded", ErrOverloaded, true)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return wrapErr("auth", ErrAuth, false)
	case status >= 500:
		return wrapErr("server_error",
			fmt.Errorf("API error (status %d): %s", status, truncate(string(body), 300)), true)
	}
	if isOverloadBody(body) {
		return wrapErr("overloaded", ErrOverloaded, true)
	}
	return wrapErr("request_rejected",
		fmt.Errorf("API error (status %d): %s", status, truncate(string(body), 300)), false)
}

// isOverloadBody detects overload/quota keywords in an error body so that
// quota exhaustion surfaced with a 4xx status still retries.
func isOverloadBody(body []byte) bool {
	s := strings.ToLower(string(body))
	for _, kw := range []string{"overload", "quota", "resource_exhausted", "rate limit"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
