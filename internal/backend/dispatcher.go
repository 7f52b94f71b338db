// ABOUTME: AI backend dispatcher abstracting over HTTP completion API and CLI harness modes
// ABOUTME: Mode is selected by the configured model identifier; both modes share timeout and sanitization

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout is the wall-clock budget for a single backend call.
const DefaultTimeout = 60 * time.Second

// defaultHarness is the CLI harness binary invoked in subprocess mode.
const defaultHarness = "opencode"

// Options configures a Dispatcher.
type Options struct {
	// Model selects the backend mode: an identifier namespaced under the
	// harness name (e.g. "opencode/anthropic/claude") runs the CLI
	// harness, anything else calls the HTTP completion endpoint directly.
	Model string

	// BaseURL is the provider endpoint. In subprocess mode it is injected
	// into the harness environment.
	BaseURL string

	// APIKey authenticates against the provider.
	APIKey string

	// Harness overrides the CLI harness binary (default "opencode").
	Harness string

	// Timeout overrides the per-call budget (default 60s).
	Timeout time.Duration

	// HTTPClient overrides the HTTP client used in HTTP mode.
	HTTPClient *http.Client
}

// Dispatcher turns a prompt into a reply string. It is safe for concurrent
// use; every call gets its own deadline.
type Dispatcher struct {
	model   string
	baseURL string
	apiKey  string
	harness string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Dispatcher from opts, filling in defaults.
func New(opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	harness := opts.Harness
	if harness == "" {
		harness = defaultHarness
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout + 5*time.Second}
	}
	return &Dispatcher{
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		harness: harness,
		timeout: timeout,
		http:    httpClient,
		logger:  slog.Default().With("component", "backend"),
	}
}

// Model returns the configured model identifier.
func (d *Dispatcher) Model() string {
	return d.model
}

// Dispatch sends the prompt to the configured backend and returns the
// sanitized reply text. All failures are *Error values carrying a Kind.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (string, error) {
	if isHarnessModel(d.model, d.harness) {
		d.logger.Debug("dispatching via harness", "model", d.model, "harness", d.harness)
		return d.dispatchHarness(ctx, prompt)
	}
	d.logger.Debug("dispatching via http", "model", d.model, "base_url", d.baseURL)
	return d.dispatchHTTP(ctx, prompt)
}

// isHarnessModel reports whether the model identifier selects subprocess
// mode: only models namespaced under the harness binary's own name
// ("opencode/...") route through it. A provider-qualified model like
// "anthropic/claude-x" stays on the HTTP endpoint.
func isHarnessModel(model, harness string) bool {
	return strings.HasPrefix(model, filepath.Base(harness)+"/")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Reply    string `json:"reply"`
	BaseResp struct {
		StatusCode int64  `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// dispatchHTTP posts the prompt to the provider's chat completion endpoint.
func (d *Dispatcher) dispatchHTTP(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body := chatCompletionRequest{
		Model:    d.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Kind: KindAPI, Message: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.baseURL+"/v1/text/chatcompletion", bytes.NewReader(b))
	if err != nil {
		return "", &Error{Kind: KindAPI, Message: "building request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", &Error{Kind: KindTimeout, Message: fmt.Sprintf("request timed out after %s", d.timeout), Err: err}
		}
		return "", &Error{Kind: KindAPI, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindAPI, Message: "reading response", Err: err}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Kind: KindAPI, Message: fmt.Sprintf("parsing response (http %d)", resp.StatusCode), Err: err}
	}

	if out.BaseResp.StatusCode != 0 {
		return "", &Error{Kind: KindAPI, Message: out.BaseResp.StatusMsg}
	}

	// The provider either returns a reply field or the body is the reply.
	reply := out.Reply
	if reply == "" {
		reply = string(raw)
	}

	return strings.TrimSpace(StripANSI(reply)), nil
}
