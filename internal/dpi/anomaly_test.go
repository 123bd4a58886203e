package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnomalyDetector_DisabledProducesNothing(t *testing.T) {
	d := newAnomalyDetector(false)
	s := newSession(1, FlowTuple{}, 1024, 0)

	found := d.detect(s, ProtoHTTP, 8443, []byte("GET / HTTP/1.1\r\n\r\n"), 19)
	assert.Empty(t, found)
}

func TestAnomalyDetector_OversizedHTTPHeader(t *testing.T) {
	d := newAnomalyDetector(true)
	s := newSession(1, FlowTuple{}, 1024, 0)

	big := make([]byte, 9000)
	found := d.detect(s, ProtoHTTP, 80, big, len(big))

	var kinds []AnomalyKind
	for _, a := range found {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, AnomalyOversizedHTTPHeader)
}

func TestAnomalyDetector_SuspiciousUserAgent(t *testing.T) {
	d := newAnomalyDetector(true)
	s := newSession(1, FlowTuple{}, 1024, 0)

	payload := []byte("GET / HTTP/1.1\r\nUser-Agent: curl/8\r\n\r\n")
	found := d.detect(s, ProtoHTTP, 80, payload, len(payload))

	var kinds []AnomalyKind
	for _, a := range found {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, AnomalySuspiciousUserAgent)
}

func TestAnomalyDetector_NonHTTPTrafficNeverRaisesHTTPAnomalies(t *testing.T) {
	d := newAnomalyDetector(true)
	s := newSession(1, FlowTuple{}, 1024, 0)

	found := d.detect(s, ProtoDNS, 53, make([]byte, 9000), 9000)
	assert.Empty(t, found)
}

func TestAnomalyDetector_StopsAtHardCap(t *testing.T) {
	d := newAnomalyDetector(true)
	s := newSession(1, FlowTuple{}, 1024, 0)

	payload := []byte("GET / HTTP/1.1\r\nUser-Agent: x\r\n\r\n")
	for i := 0; i < 20; i++ {
		d.detect(s, ProtoHTTP, 8443, payload, len(payload))
	}

	require.LessOrEqual(t, len(s.Anomalies), maxAnomalies)
	assert.Len(t, s.Anomalies, maxAnomalies)
}

func TestStatTracker_ZScoreFlagsOutliers(t *testing.T) {
	var tr statTracker
	for i := 0; i < 40; i++ {
		tr.update(100)
	}
	assert.InDelta(t, 0, tr.zScore(100), 0.0001)
	assert.Greater(t, tr.zScore(100000), volumeAnomalyThreshold)
}
