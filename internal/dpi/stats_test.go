package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics_SnapshotReflectsRecordedPackets(t *testing.T) {
	s := newStatistics()
	s.recordPacket(ProtoHTTP, 10)
	s.recordPacket(ProtoHTTP, 20)
	s.recordPacket(ProtoDNS, 5)

	snap := s.snapshot(3, 42.5)
	assert.EqualValues(t, 3, snap.PacketsProcessed)
	assert.EqualValues(t, 2, snap.ProtocolPacketCounts[ProtoHTTP])
	assert.EqualValues(t, 1, snap.ProtocolPacketCounts[ProtoDNS])
	assert.EqualValues(t, 3, snap.ActiveSessions)
	assert.InDelta(t, 42.5, snap.BufferUtilizationPct, 0.0001)
	assert.GreaterOrEqual(t, snap.MaxProcessingTimeUS, 20.0)
}

func TestStatistics_CountersNeverDecrease(t *testing.T) {
	s := newStatistics()
	s.addBytes(100)
	s.incFlowsCreated()
	s.addAlertsGenerated(2)

	first := s.snapshot(0, 0)
	s.addBytes(50)
	s.incFlowsCreated()
	second := s.snapshot(0, 0)

	assert.GreaterOrEqual(t, second.BytesProcessed, first.BytesProcessed)
	assert.GreaterOrEqual(t, second.FlowsCreated, first.FlowsCreated)
}
