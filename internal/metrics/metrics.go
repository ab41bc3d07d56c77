package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Upload requests by kind (thumbnail|video) and result.",
	}, []string{"kind", "result"})

	UploadBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Bytes accepted by successful uploads.",
	}, []string{"kind"})

	ThumbnailEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "thumbnail_registry_entries",
		Help: "Thumbnails currently held in memory.",
	})

	ThumbnailEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thumbnail_registry_evictions_total",
		Help: "Thumbnails dropped to respect the registry capacity.",
	})

	StagingCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "staging_cleanup_failures_total",
		Help: "Staged video files that could not be removed.",
	})
)

func Init() {
	prometheus.MustRegister(Uploads, UploadBytes, ThumbnailEntries, ThumbnailEvictions, StagingCleanupFailures)
}

// Handler serves the Prometheus exposition format on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
