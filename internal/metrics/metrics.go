// Package metrics exposes Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	visionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vision_requests_total",
		Help: "Total number of vision processing requests",
	}, []string{"provider", "status"})

	visionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vision_request_duration_seconds",
		Help:    "Time spent processing vision requests",
		Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	}, []string{"provider"})

	visionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vision_cache_hits_total",
		Help: "Total number of vision cache hits",
	})

	spinesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vision_spines_detected_total",
		Help: "Total number of book spines detected",
	}, []string{"provider"})

	imageProcessing = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_processing_total",
		Help: "Total number of images processed",
	}, []string{"action"})

	imageSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_size_bytes",
		Help:    "Size of processed images in bytes",
		Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024},
	})

	visionSpend = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vision_spend_usd_total",
		Help: "Total spend on vision APIs in USD",
	}, []string{"provider"})
)

// RecordVision records one provider attempt with its duration and outcome.
func RecordVision(provider string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	visionRequests.WithLabelValues(provider, status).Inc()
	visionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordCacheHit records a scan served from cache.
func RecordCacheHit() {
	visionCacheHits.Inc()
}

// RecordSpines records how many spines a provider detected.
func RecordSpines(provider string, count int) {
	spinesDetected.WithLabelValues(provider).Add(float64(count))
}

// RecordImage records an image-processing action (received, kept_original,
// downscaled, format_converted) and the payload size it applied to.
func RecordImage(action string, sizeBytes int) {
	imageProcessing.WithLabelValues(action).Inc()
	imageSizeBytes.Observe(float64(sizeBytes))
}

// RecordSpend records vision API spend.
func RecordSpend(provider string, usd float64) {
	visionSpend.WithLabelValues(provider).Add(usd)
}
