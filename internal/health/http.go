package health

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studydesk/storedoctor/pkg/errclass"
)

// DefaultTimeout bounds every probe.
const DefaultTimeout = 8 * time.Second

// Endpoint is where and how a service is probed.
type Endpoint struct {
	BaseURL string
	Path    string
	APIKey  string
}

// URL joins base and path with exactly one slash.
func (e Endpoint) URL() string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(e.Path, "/")
}

// HTTPChecker probes services with POST requests.
type HTTPChecker struct {
	endpoints map[string]Endpoint
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewHTTPChecker creates a checker for the given endpoints. A non-positive
// timeout means DefaultTimeout.
func NewHTTPChecker(endpoints map[string]Endpoint, timeout time.Duration, version string) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if version == "" {
		version = "dev"
	}
	client := &http.Client{
		// A redirect is classified as the 3xx it is, not followed.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return &HTTPChecker{
		endpoints: endpoints,
		http:      client,
		timeout:   timeout,
		userAgent: "storedoctor/" + version,
	}
}

// Check issues one request. The response body is discarded; only the status
// matters.
func (c *HTTPChecker) Check(ctx context.Context, name string, payload []byte) Result {
	ep, ok := c.endpoints[name]
	if !ok {
		return Result{
			Outcome: OutcomeUnexpected,
			Err:     errclass.ErrServiceUnknown.WithMessagef("no endpoint for %q", name),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.createRequest(ctx, ep, payload)
	if err != nil {
		return Result{Outcome: OutcomeUnexpected, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Outcome: OutcomeDegraded, Err: fmt.Errorf("http request: %w", err)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return Result{Outcome: Classify(resp.StatusCode), StatusCode: resp.StatusCode}
}

func (c *HTTPChecker) createRequest(ctx context.Context, ep Endpoint, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}
	return req, nil
}
