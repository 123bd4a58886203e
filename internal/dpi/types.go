package dpi

// Protocol is the closed set of application-layer protocols the classifier
// and dissectors can resolve a session to.
type Protocol uint8

const (
	ProtoUnknown Protocol = iota
	ProtoHTTP
	ProtoHTTPS
	ProtoDNS
	ProtoSMTP
	ProtoSMTPS
	ProtoFTP
	ProtoFTPS
	ProtoSMB
	ProtoSSH
	ProtoTelnet
	ProtoSNMP
	ProtoQUIC
	ProtoDTLS
	ProtoMQTT
	ProtoCoAP
)

func (p Protocol) String() string {
	switch p {
	case ProtoHTTP:
		return "http"
	case ProtoHTTPS:
		return "https"
	case ProtoDNS:
		return "dns"
	case ProtoSMTP:
		return "smtp"
	case ProtoSMTPS:
		return "smtps"
	case ProtoFTP:
		return "ftp"
	case ProtoFTPS:
		return "ftps"
	case ProtoSMB:
		return "smb"
	case ProtoSSH:
		return "ssh"
	case ProtoTelnet:
		return "telnet"
	case ProtoSNMP:
		return "snmp"
	case ProtoQUIC:
		return "quic"
	case ProtoDTLS:
		return "dtls"
	case ProtoMQTT:
		return "mqtt"
	case ProtoCoAP:
		return "coap"
	default:
		return "unknown"
	}
}

// Classification is the engine's best guess at a session's application
// protocol. Once Protocol is set to a non-Unknown value it is frozen for
// the life of the session (invariant I4).
type Classification struct {
	Protocol       Protocol
	Confidence     uint8
	DetectionTick  uint32
	AppName        string
}

// SessionState models the lifecycle of a Session.
type SessionState uint8

const (
	StateNew SessionState = iota
	StateEstablished
	StateClosing
	StateClosed
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// AnomalyKind is a bitmask identifying the class of deviation detected.
type AnomalyKind uint16

const (
	AnomalyOversizedHTTPHeader AnomalyKind = 1 << iota
	AnomalySuspiciousUserAgent
	AnomalyHTTPNonStandardPort
	AnomalyTrafficVolumeDeviation
)

// Anomaly records a single protocol-behavior deviation observed on a session.
type Anomaly struct {
	Kind        AnomalyKind
	Description string
	Severity    uint8
}

// Severity classifies an emitted Alert.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityMalware
	SeverityAnomaly
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityMalware:
		return "malware"
	case SeverityAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// Alert is a record emitted by the engine describing a rule or anomaly
// match. Clients only ever receive copies of these, never references into
// engine-owned storage.
type Alert struct {
	AlertID         uint64
	TimestampNS     int64
	Flow            FlowTuple
	Severity        Severity
	Protocol        Protocol
	RuleID          uint32
	RuleName        string
	Message         string
	PayloadSample   []byte
	OffsetInStream  uint32
}

// HTTPData is the protocol-data record the HTTP dissector attaches to a
// session on a successful match.
type HTTPData struct {
	Method     string
	StatusCode int
	IsRequest  bool
}

// DNSData is the protocol-data record the DNS dissector attaches to a
// session on a successful match.
type DNSData struct {
	TransactionID uint16
	IsQuery       bool
	ResponseCode  uint8
	QName         string
	QType         uint16
}

// TLSData is the protocol-data record the TLS dissector attaches to a
// session on a successful match.
type TLSData struct {
	VersionMajor uint8
	VersionMinor uint8
	SNI          string
	JA3          string
}

// Stats is a point-in-time snapshot of the engine's monotonic counters and
// live gauges. See Engine.GetStats.
type Stats struct {
	PacketsProcessed       uint64
	BytesProcessed         uint64
	FlowsCreated           uint64
	FlowsTerminated        uint64
	FlowsDroppedCapacity   uint64
	AlertsGenerated        uint64
	AlertsDropped          uint64
	AnomaliesDetected      uint64
	ProtocolPacketCounts   map[Protocol]uint64
	ActiveSessions         uint64
	AvgProcessingTimeUS    float64
	MaxProcessingTimeUS    float64
	BufferUtilizationPct   float64
}
