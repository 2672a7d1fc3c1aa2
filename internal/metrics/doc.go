// Package metrics provides the observability hooks for page rewrites.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	type Handler struct {
//	    recorder metrics.Recorder
//	}
//
// When metrics are enabled the server swaps in a PrometheusRecorder bound to
// its own registry and mounts HTTPHandler on /metrics.
package metrics
