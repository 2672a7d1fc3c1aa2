package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docchrome"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	rewriteDuration prom.Histogram
	rewriteOutcome  *prom.CounterVec
	pageBytes       *prom.HistogramVec
	templateReloads *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		rewriteDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rewrite_duration_seconds",
			Help:      "Duration of single page rewrites, including fragment rendering",
			Buckets:   prom.DefBuckets,
		}),
		rewriteOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rewrite_outcomes_total",
			Help:      "Page rewrites by outcome (success or error category)",
		}, []string{"outcome"}),
		pageBytes: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_bytes",
			Help:      "Size of rewritten pages before and after the rewrite",
			Buckets:   prom.ExponentialBuckets(1024, 4, 8),
		}, []string{"direction"}),
		templateReloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "template_reloads_total",
			Help:      "Template store reloads by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.rewriteDuration, pr.rewriteOutcome, pr.pageBytes, pr.templateReloads)
	return pr
}

func (p *PrometheusRecorder) ObserveRewriteDuration(d time.Duration) {
	if p == nil || p.rewriteDuration == nil {
		return
	}
	p.rewriteDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRewriteOutcome(outcome string) {
	if p == nil || p.rewriteOutcome == nil {
		return
	}
	p.rewriteOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePageBytes(in, out int) {
	if p == nil || p.pageBytes == nil {
		return
	}
	p.pageBytes.WithLabelValues("in").Observe(float64(in))
	p.pageBytes.WithLabelValues("out").Observe(float64(out))
}

func (p *PrometheusRecorder) IncTemplateReload(success bool) {
	if p == nil || p.templateReloads == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.templateReloads.WithLabelValues(res).Inc()
}
