package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 上传结果标签
const (
	resultOK          = "ok"
	resultMismatch    = "mismatch"
	resultTooLarge    = "too_large"
	resultBadRequest  = "bad_request"
	resultStoreFailed = "store_failed"
)

type uploadMetrics struct {
	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Histogram
	uploadDuration prometheus.Histogram
	inFlight       prometheus.Gauge
}

func newUploadMetrics(reg prometheus.Registerer) *uploadMetrics {
	m := &uploadMetrics{}
	factory := promauto.With(reg)
	m.uploadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "dimi_uploads_total",
		Help: "upload requests by result",
	}, []string{"result"})
	m.uploadBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "dimi_upload_bytes",
		Help:    "size of accepted uploads",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to ~256MiB
	})
	m.uploadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "dimi_upload_duration_seconds",
		Help:    "time from request start to receipt",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	m.inFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "dimi_uploads_in_flight",
		Help: "uploads currently being processed",
	})
	return m
}
