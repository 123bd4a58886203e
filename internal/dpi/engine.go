// Package dpi implements a passive deep packet inspection engine: a
// concurrent flow table, bidirectional stream reassembly, protocol
// classification and dissection, pattern-rule evaluation, anomaly
// detection, a bounded alert ring, and engine-wide statistics, all
// reachable only through the Engine facade in this file.
package dpi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowlens/dpi/internal/dpiconfig"
	"github.com/flowlens/dpi/internal/logging"
)

// Engine is the facade clients depend on. All exported methods are safe
// for concurrent use by multiple goroutines processing disjoint flows.
// Packets on different flows proceed in parallel; packets on the same flow
// are serialized by that session's mutex.
type Engine struct {
	InstanceID string

	cfgMu sync.RWMutex
	cfg   dpiconfig.Config

	flows      *flowTable
	rules      *ruleEngine
	alerts     *alertRing
	stats      *statistics
	anomalies  *anomalyDetector

	log *logging.Logger
}

// Init allocates the flow table, rule storage, and alert ring at the
// capacities named in cfg and returns a ready Engine with zero registered
// rules and zero live sessions.
func Init(cfg dpiconfig.Config, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.WithComponent("dpi")
	} else {
		log = log.WithComponent("dpi")
	}

	maxRules := cfg.MaxRules
	if maxRules <= 0 {
		maxRules = 10_000
	}
	maxAlerts := cfg.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = 1_000_000
	}
	maxSessions := cfg.MaxConcurrentSessions
	if maxSessions <= 0 {
		maxSessions = 100_000
	}

	e := &Engine{
		InstanceID: uuid.NewString(),
		cfg:        cfg,
		flows:      newFlowTableShards(maxSessions, cfg.FlowTableShards),
		rules:      newRuleEngine(maxRules),
		alerts:     newAlertRing(maxAlerts),
		stats:      newStatistics(),
		anomalies:  newAnomalyDetector(cfg.EnableAnomalyDetection),
		log:        log,
	}

	for _, rc := range cfg.Rules {
		if id := e.AddRuleFromConfig(rc); id == 0 {
			e.log.Warn("failed to register configured rule", "name", rc.Name)
		}
	}

	e.log.Info("engine initialized", "instance_id", e.InstanceID, "max_sessions", maxSessions, "max_rules", maxRules, "max_alerts", maxAlerts)
	return e
}

func (e *Engine) bufferCap() int {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	if e.cfg.PerBufferCapBytes > 0 {
		return e.cfg.PerBufferCapBytes
	}
	return 16 * 1024 * 1024
}

// memoryLimitExceeded implements the memory_limit_mb soft ceiling: once
// the engine's worst-case per-session allocation times the live session
// count would exceed the configured limit, it refuses to create further
// sessions. A limit of 0 disables the check. This is an estimate, not an
// accounting of actual bytes resident in each session's buffers, which stay
// lazily sized below their cap.
func (e *Engine) memoryLimitExceeded() bool {
	e.cfgMu.RLock()
	limitMB := e.cfg.MemoryLimitMB
	e.cfgMu.RUnlock()
	if limitMB <= 0 {
		return false
	}

	perSession := uint64(2 * e.bufferCap())
	estimated := uint64(e.flows.activeCount()) * perSession
	limit := uint64(limitMB) * 1024 * 1024
	return estimated >= limit
}

// ProcessPacket is the hot-path entry point. It never fails: all faults
// degrade to counter increments and, where appropriate, state=Error on the
// session. Returns the number of alerts generated by this specific packet.
func (e *Engine) ProcessPacket(flow FlowTuple, payload []byte, tsNS int64, isResponse bool) int {
	if len(payload) == 0 {
		// Invalid input: a null or zero-length payload is dropped as a
		// no-op, no counters touched.
		return 0
	}

	start := time.Now()

	if tsNS == 0 {
		tsNS = start.UnixNano()
	}

	if _, existed := e.flows.lookup(flow); !existed && e.memoryLimitExceeded() {
		e.stats.incFlowsDroppedCapacity()
		e.stats.packetsProcessed.Add(1)
		return 0
	}

	sess, ok := e.flows.insert(flow, e.bufferCap(), tsNS)
	if !ok {
		e.stats.incFlowsDroppedCapacity()
		e.stats.packetsProcessed.Add(1)
		return 0
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	wasNew := sess.PacketsSeen == 0
	sess.touch(payload, isResponse, tsNS)
	if wasNew {
		e.stats.incFlowsCreated()
	}
	e.stats.addBytes(uint64(len(payload)))

	if sess.Classification.Protocol == ProtoUnknown && len(payload) > 0 {
		class, res := classify(payload, flow, sess.PacketsSeen)
		if class.Protocol != ProtoUnknown {
			sess.Classification = class
			if res.http != nil {
				sess.HTTPData = res.http
			}
			if res.dnsData != nil {
				sess.DNSData = res.dnsData
			}
			if res.tls != nil {
				sess.TLSData = res.tls
			}
		}
	}

	proto := sess.Classification.Protocol
	alertCount := 0

	for _, a := range e.anomalies.detect(sess, proto, flow.DstPort, payload, len(payload)) {
		e.stats.addAnomaliesDetected(1)
		alert := Alert{
			TimestampNS:    tsNS,
			Flow:           flow,
			Severity:       SeverityAnomaly,
			Protocol:       proto,
			RuleID:         0,
			RuleName:       "anomaly:" + a.Kind.name(),
			Message:        a.Description,
			PayloadSample:  samplePayload(payload, e.sampleSize()),
			OffsetInStream: uint32(sess.TotalBytes) - uint32(len(payload)),
		}
		e.pushAlert(alert)
		alertCount++
	}

	for _, m := range e.rules.evaluate(proto, flow.DstPort, flow.SrcPort, isResponse, payload) {
		alert := Alert{
			TimestampNS:    tsNS,
			Flow:           flow,
			Severity:       m.rule.Severity,
			Protocol:       proto,
			RuleID:         m.rule.RuleID,
			RuleName:       m.rule.Name,
			Message:        "rule match: " + m.rule.Name,
			PayloadSample:  samplePayload(payload, e.sampleSize()),
			OffsetInStream: uint32(sess.TotalBytes) - uint32(len(payload)) + uint32(m.matchOffset),
		}
		e.pushAlert(alert)
		alertCount++
	}

	e.stats.recordPacket(proto, float64(time.Since(start).Microseconds()))
	return alertCount
}

func (e *Engine) pushAlert(a Alert) {
	e.cfgMu.RLock()
	redact := e.cfg.RedactPII
	anonymize := e.cfg.AnonymizeIPs
	e.cfgMu.RUnlock()

	if redact {
		a.PayloadSample = redactPayload(a.PayloadSample)
	}
	if anonymize {
		a.Flow.SrcIP &^= 0xFF
		a.Flow.DstIP &^= 0xFF
	}

	before := e.alerts.droppedCount()
	e.alerts.push(a)
	after := e.alerts.droppedCount()
	if after > before {
		e.stats.incAlertsDropped()
	}
	e.stats.addAlertsGenerated(1)
}

func (e *Engine) sampleSize() int {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	if e.cfg.AlertPayloadSampleBytes > 0 {
		return e.cfg.AlertPayloadSampleBytes
	}
	return 256
}

func samplePayload(payload []byte, max int) []byte {
	if len(payload) <= max {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return cp
	}
	cp := make([]byte, max)
	copy(cp, payload[:max])
	return cp
}

// redactPayload replaces non-ASCII-printable bytes with '*'. It is a
// conservative baseline for the redact_pii option; it does not attempt
// full email/IP pattern matching, only byte-class filtering.
func redactPayload(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x20 && c < 0x7F {
			out[i] = c
		} else {
			out[i] = '*'
		}
	}
	return out
}

// AddRule registers a rule, compiling its pattern if Kind is RuleRegex.
// Returns 0 on compile failure or capacity exhaustion.
func (e *Engine) AddRule(r Rule) uint32 {
	return e.rules.addRule(r)
}

// AddRuleFromConfig converts an HCL-decoded rule into a Rule and registers
// it, for rules supplied at Init time via the configuration document.
func (e *Engine) AddRuleFromConfig(rc dpiconfig.RuleConfig) uint32 {
	r := Rule{
		Kind:              ruleKindFromString(rc.Kind),
		Name:              rc.Name,
		Description:       rc.Description,
		Severity:          Severity(rc.Severity),
		Pattern:           []byte(rc.Pattern),
		ProtocolScope:     protocolFromString(rc.ProtocolScope),
		PortRangeStart:    uint16(rc.PortRangeStart),
		PortRangeEnd:      uint16(rc.PortRangeEnd),
		AppliesToRequest:  rc.AppliesToRequest,
		AppliesToResponse: rc.AppliesToResponse,
		Category:          rc.Category,
		Enabled:           rc.Enabled,
	}
	return e.rules.addRule(r)
}

// RemoveRule drops a previously registered rule. Returns false if not found.
func (e *Engine) RemoveRule(ruleID uint32) bool {
	return e.rules.removeRule(ruleID)
}

// GetAlerts drains up to max entries FIFO from the alert ring.
func (e *Engine) GetAlerts(max int, clearAfterRead bool) []Alert {
	return e.alerts.drain(max, clearAfterRead)
}

// GetStats returns a point-in-time snapshot of engine-wide counters.
func (e *Engine) GetStats() Stats {
	active := e.flows.activeCount()
	util := 0.0
	if e.flows.capacity > 0 && active > 0 {
		// approximate utilization as active sessions against configured
		// capacity; per-buffer byte-level utilization would require
		// walking every session under its lock, which the hot path must
		// not do on behalf of a stats reader.
		util = 100.0 * float64(active) / float64(e.flows.capacity)
	}
	return e.stats.snapshot(active, util)
}

// GetSession returns a read-only snapshot of the session for flow, if any.
func (e *Engine) GetSession(flow FlowTuple) (SessionSnapshot, bool) {
	s, ok := e.flows.lookup(flow)
	if !ok {
		return SessionSnapshot{}, false
	}
	return s.snapshot(), true
}

// ClassifyProtocol returns the current classification for flow without
// processing a new packet.
func (e *Engine) ClassifyProtocol(flow FlowTuple) Classification {
	s, ok := e.flows.lookup(flow)
	if !ok {
		return Classification{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Classification
}

// SetTLSMode mutates the engine-wide TLS mode. The flow parameter is
// accepted for interface parity with a future per-flow override but, in
// the baseline, only the global configuration is affected -- a known,
// deliberately preserved gap.
func (e *Engine) SetTLSMode(_ FlowTuple, mode dpiconfig.TLSMode) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg.TLSMode = string(mode)
}

// TerminateSession tears down the session for flow. Returns false if not
// found.
func (e *Engine) TerminateSession(flow FlowTuple) bool {
	removed := e.flows.remove(flow)
	if removed {
		e.stats.incFlowsTerminated()
	}
	return removed
}

// Sweep removes sessions that have been idle past reassembly_timeout_sec,
// driven by a client-owned scheduler. The engine itself never spawns a
// background goroutine for this.
func (e *Engine) Sweep(nowNS int64) int {
	e.cfgMu.RLock()
	timeout := int64(e.cfg.ReassemblyTimeoutSec)
	e.cfgMu.RUnlock()
	if timeout <= 0 {
		timeout = 300
	}

	expired := e.flows.expiredTuples(nowNS, timeout)
	for _, t := range expired {
		e.TerminateSession(t)
	}
	return len(expired)
}

// Shutdown releases all sessions, compiled rules, and buffers. It is
// always a valid terminal call.
func (e *Engine) Shutdown() {
	e.flows = newFlowTable(1)
	e.rules = newRuleEngine(0)
	e.alerts = newAlertRing(1)
	e.log.Info("engine shutdown", "instance_id", e.InstanceID)
}

func ruleKindFromString(s string) RuleKind {
	switch s {
	case "literal", "content":
		return RuleLiteral
	case "snort":
		return RuleSnort
	case "yara":
		return RuleYara
	case "behavioral":
		return RuleBehavioral
	default:
		return RuleRegex
	}
}

func protocolFromString(s string) Protocol {
	switch s {
	case "http":
		return ProtoHTTP
	case "https":
		return ProtoHTTPS
	case "dns":
		return ProtoDNS
	case "smtp":
		return ProtoSMTP
	case "smtps":
		return ProtoSMTPS
	case "ftp":
		return ProtoFTP
	case "ftps":
		return ProtoFTPS
	case "smb":
		return ProtoSMB
	case "ssh":
		return ProtoSSH
	case "telnet":
		return ProtoTelnet
	case "snmp":
		return ProtoSNMP
	case "quic":
		return ProtoQUIC
	case "dtls":
		return ProtoDTLS
	case "mqtt":
		return ProtoMQTT
	case "coap":
		return ProtoCoAP
	default:
		return ProtoUnknown
	}
}
