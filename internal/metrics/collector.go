package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/flowlens/dpi/internal/dpi"
	"github.com/flowlens/dpi/internal/logging"
)

// StatsSource is the subset of *dpi.Engine the collector needs. Defined as
// an interface so tests can supply a stub engine.
type StatsSource interface {
	GetStats() dpi.Stats
}

// Collector polls a StatsSource on a fixed interval and copies the
// resulting snapshot into the Prometheus gauges/counters in Registry. It
// never touches the packet path directly.
type Collector struct {
	registry *Registry
	source   StatsSource
	interval time.Duration
	logger   *logging.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	lastSeen dpi.Stats
}

// NewCollector builds a Collector that will poll source every interval
// once Start is called.
func NewCollector(registry *Registry, source StatsSource, interval time.Duration, logger *logging.Logger) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = logging.WithComponent("metrics")
	} else {
		logger = logger.WithComponent("metrics")
	}
	return &Collector{registry: registry, source: source, interval: interval, logger: logger}
}

// Start begins the polling loop in a background goroutine. Safe to call
// once; a second call is a no-op until Stop.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect()
			}
		}
	}()
}

// Stop halts the polling loop.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Collector) collect() {
	snap := c.source.GetStats()

	c.mu.Lock()
	prev := c.lastSeen
	c.lastSeen = snap
	c.mu.Unlock()

	addDelta(c.registry.PacketsProcessed, prev.PacketsProcessed, snap.PacketsProcessed)
	addDelta(c.registry.BytesProcessed, prev.BytesProcessed, snap.BytesProcessed)
	addDelta(c.registry.FlowsCreated, prev.FlowsCreated, snap.FlowsCreated)
	addDelta(c.registry.FlowsTerminated, prev.FlowsTerminated, snap.FlowsTerminated)
	addDelta(c.registry.FlowsDroppedCapacity, prev.FlowsDroppedCapacity, snap.FlowsDroppedCapacity)
	addDelta(c.registry.AlertsGenerated, prev.AlertsGenerated, snap.AlertsGenerated)
	addDelta(c.registry.AlertsDropped, prev.AlertsDropped, snap.AlertsDropped)
	addDelta(c.registry.AnomaliesDetected, prev.AnomaliesDetected, snap.AnomaliesDetected)

	c.registry.ActiveSessions.Set(float64(snap.ActiveSessions))
	c.registry.AvgProcessingTimeUS.Set(snap.AvgProcessingTimeUS)
	c.registry.MaxProcessingTimeUS.Set(snap.MaxProcessingTimeUS)
	c.registry.BufferUtilization.Set(snap.BufferUtilizationPct)

	for proto, count := range snap.ProtocolPacketCounts {
		c.registry.ProtocolPackets.WithLabelValues(proto.String()).Set(float64(count))
	}
}

// addDelta adds the non-negative increase between prev and current to a
// counter. Engine counters are monotonic, so current should never be less
// than prev outside of an engine restart; a decrease is treated as a reset
// and skipped rather than pushing a negative delta into Prometheus.
func addDelta(c interface{ Add(float64) }, prev, current uint64) {
	if current <= prev {
		return
	}
	c.Add(float64(current - prev))
}
