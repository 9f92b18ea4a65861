// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics holds the Prometheus collectors of the Helpline API.
//
// All collectors are registered on the [prometheus.Registerer] passed to [New],
// so tests can use an isolated registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	MessagesAppended     *prometheus.CounterVec
	MessagesDeduplicated prometheus.Counter
	SendRejected         *prometheus.CounterVec
	ScanDuration         prometheus.Histogram
	BlockChanges         *prometheus.CounterVec
	BlockCacheLookups    *prometheus.CounterVec
	TenantsCreated       prometheus.Counter
	EventsPublished      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_http_requests_total",
			Help: "Total number of HTTP requests by method and status",
		}, []string{"method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpline_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method",
			Buckets: durationBuckets,
		}, []string{"method"}),
		MessagesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_messages_appended_total",
			Help: "Total number of messages appended, by sender kind",
		}, []string{"sender_kind"}),
		MessagesDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpline_messages_deduplicated_total",
			Help: "Total number of resends answered with the original message",
		}),
		SendRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_send_rejected_total",
			Help: "Total number of rejected sends, by error code",
		}, []string{"code"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpline_message_scan_duration_seconds",
			Help:    "Duration of filtered message scans",
			Buckets: durationBuckets,
		}),
		BlockChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_block_changes_total",
			Help: "Total number of block and unblock operations",
		}, []string{"action"}),
		BlockCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_block_cache_lookups_total",
			Help: "IsBlocked lookups by cache outcome (hit, miss, error)",
		}, []string{"outcome"}),
		TenantsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpline_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_events_published_total",
			Help: "Domain events handed to the broker, by type and result",
		}, []string{"type", "result"}),
	}
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(method string, status int, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// IncrementAppended records a stored message.
func (m *Metrics) IncrementAppended(senderKind string) {
	m.MessagesAppended.WithLabelValues(senderKind).Inc()
}

// IncrementDeduplicated records a resend answered from the de-duplication index.
func (m *Metrics) IncrementDeduplicated() {
	m.MessagesDeduplicated.Inc()
}

// IncrementRejected records a refused send.
func (m *Metrics) IncrementRejected(code string) {
	m.SendRejected.WithLabelValues(code).Inc()
}

// ObserveScan records the duration of a message scan.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScan(start time.Time) {
	m.ScanDuration.Observe(time.Since(start).Seconds())
}

// IncrementBlockChange records a block ("block") or unblock ("unblock").
func (m *Metrics) IncrementBlockChange(action string) {
	m.BlockChanges.WithLabelValues(action).Inc()
}

// IncrementBlockLookup records an IsBlocked cache outcome.
func (m *Metrics) IncrementBlockLookup(outcome string) {
	m.BlockCacheLookups.WithLabelValues(outcome).Inc()
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantsCreated.Inc()
}

// IncrementPublished records a publish attempt.
func (m *Metrics) IncrementPublished(eventType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}
