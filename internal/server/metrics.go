package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holdscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Recognition metrics
	recognizeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdscan_recognize_requests_total",
			Help: "Total number of page recognition requests",
		},
		[]string{"source", "status"}, // source: http, batch, websocket
	)

	recognizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holdscan_recognize_duration_seconds",
			Help:    "Engine time per page in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"source"},
	)

	regionsPerRequest = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holdscan_regions_per_request",
			Help:    "Number of OCR regions per page",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"source"},
	)

	holdingsPerRequest = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holdscan_holdings_per_request",
			Help:    "Number of visible holdings recognized per page",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 30},
		},
		[]string{"source", "processor"},
	)

	fallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holdscan_layout_fallback_total",
			Help: "Pages where the alternate layout processor produced the result",
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "holdscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
