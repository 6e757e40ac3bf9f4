// Package metrics exports the log engine's observer notifications as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/linchenxuan/logmgr/log"
)

// Collector implements log.Observer on top of Prometheus metric vectors.
type Collector struct {
	BytesDrained    *prometheus.CounterVec
	SinkErrors      *prometheus.CounterVec
	BufferGrowths   *prometheus.CounterVec
	BufferCapacity  *prometheus.GaugeVec
	FlushDuration   *prometheus.HistogramVec
	RecordsDropped  *prometheus.CounterVec
	PoolAllocations *prometheus.CounterVec
}

var _ log.Observer = (*Collector)(nil)

// NewCollector creates and registers every metric with registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	factory := promauto.With(registerer)

	return &Collector{
		BytesDrained: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmgr_bytes_drained_total",
				Help: "Total number of bytes handed from ring buffers to sinks",
			},
			[]string{"writer"},
		),
		SinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmgr_sink_errors_total",
				Help: "Total number of failed sink operations",
			},
			[]string{"writer", "op"},
		),
		BufferGrowths: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmgr_buffer_growths_total",
				Help: "Total number of ring buffer resizes",
			},
			[]string{"writer"},
		),
		BufferCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logmgr_buffer_capacity_bytes",
				Help: "Ring buffer capacity after the most recent resize",
			},
			[]string{"writer"},
		),
		FlushDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logmgr_flush_duration_seconds",
				Help:    "Duration of sink flush operations",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"writer"},
		),
		RecordsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmgr_records_dropped_total",
				Help: "Total number of records without a usable writer",
			},
			[]string{"category"},
		),
		PoolAllocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmgr_pool_allocations_total",
				Help: "Total number of buffer pool misses",
			},
			[]string{"pool"},
		),
	}
}

func (c *Collector) SinkError(writer, op string, _ error) {
	c.SinkErrors.WithLabelValues(writer, op).Inc()
}

func (c *Collector) Drained(writer string, n int) {
	c.BytesDrained.WithLabelValues(writer).Add(float64(n))
}

func (c *Collector) Grew(writer string, capacity int) {
	c.BufferGrowths.WithLabelValues(writer).Inc()
	c.BufferCapacity.WithLabelValues(writer).Set(float64(capacity))
}

func (c *Collector) Flushed(writer string, d time.Duration) {
	c.FlushDuration.WithLabelValues(writer).Observe(d.Seconds())
}

func (c *Collector) Dropped(category string) {
	c.RecordsDropped.WithLabelValues(category).Inc()
}

func (c *Collector) Allocated(pool string) {
	c.PoolAllocations.WithLabelValues(pool).Inc()
}
