// Package metrics contadores e histogramas Prometheus del pipeline SIFEN.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Nombres de métricas.
const (
	MetricCyclesTotal              = "sifen_dispatcher_cycles_total"
	MetricTransmissionsTotal       = "sifen_transmissions_total"
	MetricTransmissionDurationSecs = "sifen_transmission_duration_seconds"
	MetricDocumentsIssuedTotal     = "sifen_documents_issued_total"
	MetricQueueDepth               = "sifen_dispatch_queue_depth"
)

// Resultados de ciclo.
const (
	CycleOffline = "offline"
	CycleNoLock  = "no_lock"
	CycleNoCert  = "no_certificate"
	CycleDone    = "done"
	CycleAborted = "aborted"
	CycleFailed  = "failed"
)

// Metrics registro propio con las métricas del despachador y del cliente SOAP.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	transmissions *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	issued        *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

// New crea y registra las métricas en un registro nuevo (no el global).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCyclesTotal,
			Help: "Ciclos del despachador por resultado.",
		}, []string{"result"}),
		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricTransmissionsTotal,
			Help: "Operaciones enviadas a SIFEN por operación y resultado.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricTransmissionDurationSecs,
			Help:    "Duración de las llamadas SOAP.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDocumentsIssuedTotal,
			Help: "Documentos emitidos por tipo.",
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricQueueDepth,
			Help: "Documentos pendientes encontrados en el último ciclo.",
		}),
	}
	m.registry.MustRegister(
		m.cycles, m.transmissions, m.duration, m.issued, m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry registro subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler handler HTTP de exposición.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CycleCompleted cuenta un ciclo del despachador.
func (m *Metrics) CycleCompleted(result string) {
	m.cycles.WithLabelValues(result).Inc()
}

// ObserveTransmission registra una llamada SOAP con su resultado (código o tipo de error).
func (m *Metrics) ObserveTransmission(operation, outcome string, d time.Duration) {
	m.transmissions.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// DocumentIssued cuenta un documento nuevo.
func (m *Metrics) DocumentIssued(kind string) {
	m.issued.WithLabelValues(kind).Inc()
}

// SetQueueDepth fija el tamaño de la cola vista en el ciclo.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}
