// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics holds the Prometheus collectors for the client, responder and
// relay. Every collector method is safe to call on a nil receiver so callers
// can leave metrics unconfigured.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remotesql"

// Query outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoAnswer  = "no_answer"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Client collects remote query client metrics.
type Client struct {
	queries  *prometheus.CounterVec
	duration prometheus.Histogram
	late     prometheus.Counter
	pending  prometheus.Gauge
}

// NewClient creates and registers client collectors on reg.
func NewClient(reg prometheus.Registerer) *Client {
	c := &Client{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client",
			Name: "queries_total",
			Help: "Remote queries issued, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "client",
			Name:    "query_duration_seconds",
			Help:    "Time from broadcast to answer or timeout.",
			Buckets: prometheus.DefBuckets,
		}),
		late: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client",
			Name: "late_responses_total",
			Help: "Responses that arrived with no waiting query.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "client",
			Name: "pending_queries",
			Help: "Queries currently waiting for an answer.",
		}),
	}
	reg.MustRegister(c.queries, c.duration, c.late, c.pending)
	return c
}

// ObserveQuery records one finished query.
func (c *Client) ObserveQuery(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(outcome).Inc()
	c.duration.Observe(d.Seconds())
}

// LateResponse counts a response nobody was waiting for.
func (c *Client) LateResponse() {
	if c == nil {
		return
	}
	c.late.Inc()
}

// SetPending reports the pending table size.
func (c *Client) SetPending(n int) {
	if c == nil {
		return
	}
	c.pending.Set(float64(n))
}

// Responder collects query responder metrics.
type Responder struct {
	requests *prometheus.CounterVec
	exec     prometheus.Histogram
}

// NewResponder creates and registers responder collectors on reg.
func NewResponder(reg prometheus.Registerer) *Responder {
	r := &Responder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "responder",
			Name: "requests_total",
			Help: "Protocol requests seen, by outcome.",
		}, []string{"outcome"}),
		exec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "responder",
			Name:    "exec_duration_seconds",
			Help:    "Local query execution and materialization time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.requests, r.exec)
	return r
}

// Request counts one request by outcome.
func (r *Responder) Request(outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
}

// ObserveExec records the execution time of an answered request.
func (r *Responder) ObserveExec(d time.Duration) {
	if r == nil {
		return
	}
	r.exec.Observe(d.Seconds())
}

// Relay collects relay hub metrics.
type Relay struct {
	attached  prometheus.Gauge
	forwarded prometheus.Counter
	dropped   *prometheus.CounterVec
}

// NewRelay creates and registers relay collectors on reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	r := &Relay{
		attached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay",
			Name: "attached_nodes",
			Help: "Nodes currently attached.",
		}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay",
			Name: "envelopes_forwarded_total",
			Help: "Envelopes queued for an attached node.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay",
			Name: "envelopes_dropped_total",
			Help: "Envelopes rejected, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.attached, r.forwarded, r.dropped)
	return r
}

// SetAttached reports the number of attached nodes.
func (r *Relay) SetAttached(n int) {
	if r == nil {
		return
	}
	r.attached.Set(float64(n))
}

// Forwarded counts one accepted envelope.
func (r *Relay) Forwarded() {
	if r == nil {
		return
	}
	r.forwarded.Inc()
}

// Dropped counts one rejected envelope.
func (r *Relay) Dropped(reason string) {
	if r == nil {
		return
	}
	r.dropped.WithLabelValues(reason).Inc()
}

// ClientPrefix is the name prefix shared by the client collectors.
const ClientPrefix = namespace + "_client_"

// Summary lists the samples of g whose metric name starts with prefix, one
// "name{label=\"value\"} value" line each. Histograms are reported by count.
func Summary(g prometheus.Gatherer, prefix string) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			sample, value := name, 0.0
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sample, value = name+"_count", float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, 0, len(labels))
				for _, l := range labels {
					pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
				}
				sample += "{" + strings.Join(pairs, ",") + "}"
			}
			lines = append(lines, sample+" "+strconv.FormatFloat(value, 'g', -1, 64))
		}
	}
	return lines, nil
}

// Handler returns the /metrics handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
