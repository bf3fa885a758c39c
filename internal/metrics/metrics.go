// Package metrics centralizes the Prometheus collectors every cmd/*
// HTTP/gRPC server registers, generalized from the httpDuration/
// httpRequests globals + prometheusMiddleware pattern duplicated across
// services/{chat,auth,user-management}-service/cmd/server/main.go into one
// shared constructor plus domain-specific counters/histograms for the Feed
// Ranking Pipeline, Event Propagation Backbone, and Realtime Chat Fabric.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP holds the request-duration/count collectors the gin middleware
// records against, one instance shared by every cmd/* HTTP server.
type HTTP struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func NewHTTP(registry *prometheus.Registry, serviceName string) *HTTP {
	h := &HTTP{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latencies in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"method", "path", "status"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"method", "path", "status"},
		),
	}
	registry.MustRegister(h.duration, h.requests)
	return h
}

// GinMiddleware records one observation per request, matching the teacher's
// prometheusMiddleware.
func (h *HTTP) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		h.duration.WithLabelValues(c.Request.Method, c.FullPath(), status).Observe(time.Since(start).Seconds())
		h.requests.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
	}
}

// Feed holds the Feed Ranking Pipeline's own collectors (§4.2).
type Feed struct {
	RecallCandidates *prometheus.HistogramVec
	RankDuration     prometheus.Histogram
	FallbackServed   prometheus.Counter
}

func NewFeed(registry *prometheus.Registry) *Feed {
	f := &Feed{
		RecallCandidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "feed_recall_candidates",
				Help: "Number of candidates returned per recall strategy invocation",
			},
			[]string{"strategy"},
		),
		RankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "feed_rank_duration_seconds",
			Help: "Time spent ranking a candidate set",
		}),
		FallbackServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_fallback_served_total",
			Help: "Number of feed requests served by the fallback ranker",
		}),
	}
	registry.MustRegister(f.RecallCandidates, f.RankDuration, f.FallbackServed)
	return f
}

// Chat holds the Realtime Chat Fabric's collectors (§4.3).
type Chat struct {
	ActiveConnections prometheus.Gauge
	MessagesDelivered prometheus.Counter
	FramesDropped     prometheus.Counter
}

func NewChat(registry *prometheus.Registry) *Chat {
	c := &Chat{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Current live WebSocket connections on this instance",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_delivered_total",
			Help: "Messages delivered to local WebSocket clients",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_frames_dropped_total",
			Help: "Frames dropped due to a full client send buffer or rate limit",
		}),
	}
	registry.MustRegister(c.ActiveConnections, c.MessagesDelivered, c.FramesDropped)
	return c
}

// Events holds the Event Propagation Backbone's collectors (§4.1).
type Events struct {
	Consumed      *prometheus.CounterVec
	DeadLettered  prometheus.Counter
	HandlerErrors *prometheus.CounterVec
}

func NewEvents(registry *prometheus.Registry) *Events {
	e := &Events{
		Consumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_consumed_total",
				Help: "Events consumed, by resolved event_type",
			},
			[]string{"event_type"},
		),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_dead_lettered_total",
			Help: "Poison records recorded to the dead-letter sink",
		}),
		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_handler_errors_total",
				Help: "Handler invocations that failed and were retried",
			},
			[]string{"event_type"},
		),
	}
	registry.MustRegister(e.Consumed, e.DeadLettered, e.HandlerErrors)
	return e
}

// Cleanup implements cleanup.Recorder against Prometheus, emitting the
// checked/deleted/duration metrics §4.5 requires.
type Cleanup struct {
	checked  *prometheus.CounterVec
	deleted  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewCleanup(registry *prometheus.Registry) *Cleanup {
	c := &Cleanup{
		checked: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cleanup_entities_checked_total", Help: "Entities probed against the source of truth per cleanup cycle"},
			[]string{"kind"},
		),
		deleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "cleanup_items_deleted_total", Help: "Dependents deleted per cleanup cycle, by entity kind"},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "cleanup_cycle_duration_seconds", Help: "Cleanup cycle wall-clock duration"},
			[]string{"kind"},
		),
	}
	registry.MustRegister(c.checked, c.deleted, c.duration)
	return c
}

func (c *Cleanup) RecordCycle(kind string, checked, deleted int, duration time.Duration) {
	c.checked.WithLabelValues(kind).Add(float64(checked))
	c.deleted.WithLabelValues(kind).Add(float64(deleted))
	c.duration.WithLabelValues(kind).Observe(duration.Seconds())
}
