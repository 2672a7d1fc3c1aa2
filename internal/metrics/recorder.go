package metrics

import "time"

// OutcomeSuccess labels a rewrite that completed. Failed rewrites are labelled
// with their error category (memory_limit, markup, template, ...).
const OutcomeSuccess = "success"

// Recorder defines observability hooks for page rewrites and template reloads.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveRewriteDuration(d time.Duration)
	IncRewriteOutcome(outcome string)
	ObservePageBytes(in, out int)
	IncTemplateReload(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRewriteDuration(time.Duration) {}
func (NoopRecorder) IncRewriteOutcome(string)             {}
func (NoopRecorder) ObservePageBytes(int, int)            {}
func (NoopRecorder) IncTemplateReload(bool)               {}
