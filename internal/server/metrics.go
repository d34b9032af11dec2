package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framescan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framescan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framescan_scans_total",
			Help: "Total number of scans by source and outcome",
		},
		[]string{"source", "status"}, // source: frame, image, pdf, batch, websocket
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framescan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	symbolsDecoded = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framescan_symbols_per_request",
			Help:    "Number of symbols decoded per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25},
		},
		[]string{"source"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framescan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framescan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framescan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framescan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)

	streamFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framescan_stream_frames_dropped_total",
			Help: "Frames replaced in a stream mailbox before a worker picked them up",
		},
	)

	streamFramesDebounced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framescan_stream_frames_debounced_total",
			Help: "Decoded frames suppressed as repeats of the previous text",
		},
	)
)
