// Package health probes the remote services the application depends on.
package health

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the tri-state result of one probe.
type Outcome int

const (
	// OutcomeHealthy is any 2xx response.
	OutcomeHealthy Outcome = iota
	// OutcomeDegraded is quota exhaustion, rate limiting, or no response at all.
	OutcomeDegraded
	// OutcomeUnexpected is any other status.
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHealthy:
		return "healthy"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeUnexpected:
		return "unexpected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result describes one probe. StatusCode is zero when no response arrived.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

// Describe renders the status or transport failure for humans.
func (r Result) Describe() string {
	if r.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "no response"
}

// Checker probes a named service with a synthetic request body.
type Checker interface {
	Check(ctx context.Context, name string, payload []byte) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, name string, payload []byte) Result

func (f CheckerFunc) Check(ctx context.Context, name string, payload []byte) Result {
	return f(ctx, name, payload)
}

// ErrOffline is reported by Static when simulating an unreachable network.
var ErrOffline = errors.New("offline: network access disabled")

// Static answers every probe without I/O. Results in ByName take precedence
// over Default.
type Static struct {
	Default Result
	ByName  map[string]Result
}

// Offline returns a Static checker that reports every service unreachable.
func Offline() *Static {
	return &Static{Default: Result{Outcome: OutcomeDegraded, Err: ErrOffline}}
}

func (s *Static) Check(_ context.Context, name string, _ []byte) Result {
	if r, ok := s.ByName[name]; ok {
		return r
	}
	return s.Default
}

// Classify maps an HTTP status code to an outcome.
func Classify(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeHealthy
	case status == 402 || status == 429:
		return OutcomeDegraded
	}
	return OutcomeUnexpected
}
