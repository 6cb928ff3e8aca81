package metrics

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	"facelive-go/internal/services/notify"
	"facelive-go/internal/services/stats"
)

const namespace = "facelive"

// Metrics owns a private prometheus registry for the inference loop
type Metrics struct {
	registry *prometheus.Registry

	inferenceFPS     prometheus.Gauge
	inferenceSeconds prometheus.Histogram
	ticks            prometheus.Counter
	ticksSkipped     *prometheus.CounterVec
	reconfigurations *prometheus.CounterVec
	acquisitions     *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	facesDetected    prometheus.Gauge
	memUsage         prometheus.Gauge
	cpuUsage         prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inferenceFPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inference_fps",
			Help:      "Inference rate reported by the stats tracker",
		}),
		inferenceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in a single face estimation",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 10),
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Frame loop ticks executed",
		}),
		ticksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks that skipped inference, by reason",
		}, []string{"reason"}),
		reconfigurations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_reconfigurations_total",
			Help:      "Detector rebuilds, by result",
		}, []string{"result"}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_acquisitions_total",
			Help:      "Camera setups, by result",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User notifications, by kind",
		}, []string{"kind"}),
		facesDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "faces_detected",
			Help:      "Faces found in the last inferred frame",
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_megabytes",
			Help:      "Resident memory of the process in megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percent",
			Help:      "CPU usage of the process in percent",
		}),
	}

	m.registry.MustRegister(
		m.inferenceFPS,
		m.inferenceSeconds,
		m.ticks,
		m.ticksSkipped,
		m.reconfigurations,
		m.acquisitions,
		m.notifications,
		m.facesDetected,
		m.memUsage,
		m.cpuUsage,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Report implements stats.Reporter
func (m *Metrics) Report(r stats.Report) {
	m.inferenceFPS.Set(r.FPS)
}

// Deliver implements notify.Sink
func (m *Metrics) Deliver(n notify.Notification) {
	m.notifications.WithLabelValues(string(n.Kind)).Inc()
}

// Tick counts one loop iteration
func (m *Metrics) Tick() {
	m.ticks.Inc()
}

// TickSkipped counts a tick that did not run inference
func (m *Metrics) TickSkipped(reason string) {
	m.ticksSkipped.WithLabelValues(reason).Inc()
}

// Inference records one estimation and its face count
func (m *Metrics) Inference(d time.Duration, faces int) {
	m.inferenceSeconds.Observe(d.Seconds())
	m.facesDetected.Set(float64(faces))
}

// Reconfigured counts a detector rebuild
func (m *Metrics) Reconfigured(err error) {
	m.reconfigurations.WithLabelValues(result(err)).Inc()
}

// CameraAcquired counts a camera setup
func (m *Metrics) CameraAcquired(err error) {
	m.acquisitions.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// SampleProcess updates the process gauges every interval until ctx ends
func (m *Metrics) SampleProcess(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process metrics unavailable")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
				m.memUsage.Set(float64(mem.RSS / 1024 / 1024))
			}
			if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
				m.cpuUsage.Set(math.Round(cpu*100) / 100)
			}
		}
	}
}
