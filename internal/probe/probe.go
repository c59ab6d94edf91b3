package probe

import "context"

// CheckResult is the unified outcome of a single probe.
//
// StatusCode is the HTTP status code when a response arrived; 0 for
// transport, DNS or timeout errors. Message carries the status line on
// success and a human-readable error description on failure.
type CheckResult struct {
	Success    bool
	LatencyMS  float64
	Message    string
	StatusCode int
}

// Checker performs a single check for a given target URL. It never
// returns an error: every failure mode is folded into the result.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
