package dpi

import (
	"bytes"
	"math"
)

// statTracker keeps a running mean and variance using Welford's online
// algorithm, letting the anomaly detector score packet sizes against a
// session's own history without retaining a sample window.
type statTracker struct {
	count int64
	mean  float64
	m2    float64
}

func (t *statTracker) update(v float64) {
	t.count++
	delta := v - t.mean
	t.mean += delta / float64(t.count)
	delta2 := v - t.mean
	t.m2 += delta * delta2
}

func (t *statTracker) variance() float64 {
	if t.count < 2 {
		return 0
	}
	return t.m2 / float64(t.count-1)
}

func (t *statTracker) stdDev() float64 { return math.Sqrt(t.variance()) }

// zScore reports how many standard deviations v is from the tracked mean.
// With zero variance, a value equal to the mean scores 0 and any other
// value scores a fixed 100.
func (t *statTracker) zScore(v float64) float64 {
	sd := t.stdDev()
	if sd == 0 {
		if v == t.mean {
			return 0
		}
		return 100.0
	}
	return (v - t.mean) / sd
}

// volumeAnomalyThreshold is the Z-score above which a packet size is
// considered a traffic-volume deviation anomaly. It only engages once the
// tracker has enough history to produce a meaningful variance estimate.
const volumeAnomalyThreshold = 3.0
const volumeAnomalyMinSamples = 30

// anomalyDetector evaluates the fixed baseline rules from the component
// design plus a supplemental statistical volume check, appending to the
// session's anomaly list and returning any newly detected anomalies so the
// caller can mirror them into alerts.
type anomalyDetector struct {
	enabled bool
}

func newAnomalyDetector(enabled bool) *anomalyDetector {
	return &anomalyDetector{enabled: enabled}
}

// detect must be called with the session's lock held. packetLen is the
// length used by the size checks; ProcessPacket passes the payload length.
func (d *anomalyDetector) detect(s *Session, proto Protocol, dstPort uint16, payload []byte, packetLen int) []Anomaly {
	if !d.enabled || len(s.Anomalies) >= maxAnomalies {
		return nil
	}

	var found []Anomaly

	if proto == ProtoHTTP {
		if packetLen > 8192 {
			found = append(found, Anomaly{
				Kind:        AnomalyOversizedHTTPHeader,
				Description: "oversized HTTP header block",
				Severity:    5,
			})
		}
		if bytes.Contains(payload, []byte("User-Agent: ")) {
			found = append(found, Anomaly{
				Kind:        AnomalySuspiciousUserAgent,
				Description: "suspicious User-Agent header",
				Severity:    3,
			})
		}
		if dstPort != 80 && dstPort != 8080 {
			found = append(found, Anomaly{
				Kind:        AnomalyHTTPNonStandardPort,
				Description: "HTTP on non-standard port",
				Severity:    4,
			})
		}
	}

	s.welford.update(float64(packetLen))
	if s.welford.count >= volumeAnomalyMinSamples {
		if z := s.welford.zScore(float64(packetLen)); z > volumeAnomalyThreshold {
			found = append(found, Anomaly{
				Kind:        AnomalyTrafficVolumeDeviation,
				Description: "packet size deviates from session baseline",
				Severity:    3,
			})
		}
	}

	accepted := found[:0]
	for _, a := range found {
		if !s.addAnomaly(a) {
			break
		}
		accepted = append(accepted, a)
	}
	return accepted
}

func (k AnomalyKind) name() string {
	switch k {
	case AnomalyOversizedHTTPHeader:
		return "oversized_http_header"
	case AnomalySuspiciousUserAgent:
		return "suspicious_user_agent"
	case AnomalyHTTPNonStandardPort:
		return "http_non_standard_port"
	case AnomalyTrafficVolumeDeviation:
		return "traffic_volume_deviation"
	default:
		return "unknown"
	}
}
