package dpi

import "sync"

// ringBuffer is an append buffer bounded to a fixed capacity. Once full,
// appends drop the oldest bytes to make room rather than growing further or
// rejecting writes (4.C). It is not TCP-aware: callers append payload in
// delivery order, and out-of-order or retransmitted input is simply
// appended as-delivered.
type ringBuffer struct {
	data []byte
	cap  int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{data: make([]byte, 0, capacity), cap: capacity}
}

// append adds b to the buffer, truncating from the head if necessary, and
// reports whether an overflow truncation occurred.
func (r *ringBuffer) append(b []byte) (overflowed bool) {
	if len(b) > r.cap {
		r.data = append(r.data[:0], b[len(b)-r.cap:]...)
		return true
	}
	total := len(r.data) + len(b)
	if total > r.cap {
		drop := total - r.cap
		r.data = append(r.data[:0], r.data[drop:]...)
		overflowed = true
	}
	r.data = append(r.data, b...)
	return overflowed
}

func (r *ringBuffer) Bytes() []byte { return r.data }
func (r *ringBuffer) Len() int      { return len(r.data) }

// maxAnomalies is the hard per-session cap on recorded anomalies.
const maxAnomalies = 10

// Session is the engine's state record for one live flow. All mutation
// during process_packet happens under mu, which callers must hold for the
// duration of classification, anomaly detection, and rule evaluation for a
// given packet (Engine.ProcessPacket holds it for that whole span).
type Session struct {
	mu sync.Mutex

	SessionID  uint64
	Flow       FlowTuple
	State      SessionState

	Classification Classification

	fwdBuffer *ringBuffer
	revBuffer *ringBuffer

	CreatedAtNS int64
	LastSeenNS  int64
	PacketsSeen uint32
	TotalBytes  uint64

	BufferOverflows uint64

	Anomalies []Anomaly

	HTTPData *HTTPData
	DNSData  *DNSData
	TLSData  *TLSData

	welford statTracker
}

func newSession(id uint64, flow FlowTuple, bufferCap int, nowNS int64) *Session {
	return &Session{
		SessionID:   id,
		Flow:        flow,
		State:       StateNew,
		CreatedAtNS: nowNS,
		LastSeenNS:  nowNS,
		fwdBuffer:   newRingBuffer(bufferCap),
		revBuffer:   newRingBuffer(bufferCap),
	}
}

// touch performs the per-packet bookkeeping update described in 4.C,
// returning whether this packet's append overflowed its direction buffer.
// Caller must hold s.mu.
func (s *Session) touch(payload []byte, isResponse bool, nowNS int64) (overflowed bool) {
	s.PacketsSeen++
	s.TotalBytes += uint64(len(payload))
	s.LastSeenNS = nowNS

	buf := s.fwdBuffer
	if isResponse {
		buf = s.revBuffer
	}
	if len(payload) > 0 {
		if buf.append(payload) {
			s.BufferOverflows++
			overflowed = true
		}
	}

	if s.State == StateNew {
		s.State = StateEstablished
	}
	return overflowed
}

// addAnomaly appends an anomaly if the session has not yet hit the hard cap.
// Returns false if the cap was already reached.
func (s *Session) addAnomaly(a Anomaly) bool {
	if len(s.Anomalies) >= maxAnomalies {
		return false
	}
	s.Anomalies = append(s.Anomalies, a)
	return true
}

// SessionSnapshot is a read-only copy of a Session's externally-visible
// state, returned by Engine.GetSession. It never aliases engine-owned
// memory.
type SessionSnapshot struct {
	SessionID      uint64
	Flow           FlowTuple
	State          SessionState
	Classification Classification
	CreatedAtNS    int64
	LastSeenNS     int64
	PacketsSeen    uint32
	TotalBytes     uint64
	BufferOverflows uint64
	Anomalies      []Anomaly
	HTTPData       *HTTPData
	DNSData        *DNSData
	TLSData        *TLSData
}

func (s *Session) snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	anomalies := make([]Anomaly, len(s.Anomalies))
	copy(anomalies, s.Anomalies)

	snap := SessionSnapshot{
		SessionID:       s.SessionID,
		Flow:            s.Flow,
		State:           s.State,
		Classification:  s.Classification,
		CreatedAtNS:     s.CreatedAtNS,
		LastSeenNS:      s.LastSeenNS,
		PacketsSeen:     s.PacketsSeen,
		TotalBytes:      s.TotalBytes,
		BufferOverflows: s.BufferOverflows,
		Anomalies:       anomalies,
	}
	if s.HTTPData != nil {
		cp := *s.HTTPData
		snap.HTTPData = &cp
	}
	if s.DNSData != nil {
		cp := *s.DNSData
		snap.DNSData = &cp
	}
	if s.TLSData != nil {
		cp := *s.TLSData
		snap.TLSData = &cp
	}
	return snap
}
