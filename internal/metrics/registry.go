// Package metrics exposes the engine's statistics surface as Prometheus
// counters and gauges, as an optional adapter a caller wires up alongside the engine.
// It is never on the packet hot path: the collector polls Engine.GetStats
// on its own ticker rather than being invoked from process_packet.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the engine's exported metric families. A single Registry
// is meant to be constructed once per process and registered with a
// prometheus.Registerer at startup.
type Registry struct {
	PacketsProcessed     prometheus.Counter
	BytesProcessed       prometheus.Counter
	FlowsCreated         prometheus.Counter
	FlowsTerminated      prometheus.Counter
	FlowsDroppedCapacity prometheus.Counter
	AlertsGenerated      prometheus.Counter
	AlertsDropped        prometheus.Counter
	AnomaliesDetected    prometheus.Counter
	ActiveSessions       prometheus.Gauge
	AvgProcessingTimeUS  prometheus.Gauge
	MaxProcessingTimeUS  prometheus.Gauge
	BufferUtilization    prometheus.Gauge
	ProtocolPackets      *prometheus.GaugeVec
}

// NewRegistry builds a Registry and registers every metric with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		PacketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "packets_processed_total", Help: "Total packets observed by process_packet.",
		}),
		BytesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "bytes_processed_total", Help: "Total payload bytes observed.",
		}),
		FlowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "flows_created_total", Help: "Total sessions created.",
		}),
		FlowsTerminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "flows_terminated_total", Help: "Total sessions explicitly terminated or expired.",
		}),
		FlowsDroppedCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "flows_dropped_capacity_total", Help: "Flows rejected because the table was at capacity.",
		}),
		AlertsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "alerts_generated_total", Help: "Total alerts emitted.",
		}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "alerts_dropped_total", Help: "Alerts overwritten in the ring before being drained.",
		}),
		AnomaliesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dpi", Name: "anomalies_detected_total", Help: "Total anomalies recorded across all sessions.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dpi", Name: "active_sessions", Help: "Live sessions currently held in the flow table.",
		}),
		AvgProcessingTimeUS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dpi", Name: "avg_processing_time_us", Help: "EWMA of per-packet processing time in microseconds.",
		}),
		MaxProcessingTimeUS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dpi", Name: "max_processing_time_us", Help: "Running maximum per-packet processing time in microseconds.",
		}),
		BufferUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dpi", Name: "buffer_utilization_percent", Help: "Approximate flow table utilization as a percentage.",
		}),
		ProtocolPackets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dpi", Name: "protocol_packets", Help: "Packets observed per classified protocol.",
		}, []string{"protocol"}),
	}

	reg.MustRegister(
		r.PacketsProcessed, r.BytesProcessed, r.FlowsCreated, r.FlowsTerminated,
		r.FlowsDroppedCapacity, r.AlertsGenerated, r.AlertsDropped, r.AnomaliesDetected,
		r.ActiveSessions, r.AvgProcessingTimeUS, r.MaxProcessingTimeUS, r.BufferUtilization,
		r.ProtocolPackets,
	)
	return r
}
