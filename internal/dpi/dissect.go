package dpi

import (
	"bytes"
	"strconv"

	"github.com/dreadl0ck/tlsx"
	"github.com/miekg/dns"
)

// dissectResult is the tagged-variant outcome of a single dissector
// invocation (9. Design Notes: "dissector chain as tagged variants").
type dissectResult struct {
	matched    bool
	proto      Protocol
	confidence uint8
	http       *HTTPData
	dnsData    *DNSData
	tls        *TLSData
}

// dissector is a pure function over a payload and the owning flow tuple. It
// must never panic on truncated input; callers pass already-reassembled
// per-packet payloads, not the full session buffer.
type dissector func(payload []byte, flow FlowTuple) dissectResult

var dissectorChain = []dissector{
	dissectHTTP,
	dissectDNS,
	dissectTLS,
	dissectSMTP,
	dissectSMB,
}

const dissectorConfidence = 80

var httpRequestMethods = [][]byte{
	[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("DELETE "),
	[]byte("HEAD "), []byte("OPTIONS "), []byte("PATCH "),
}

func dissectHTTP(payload []byte, _ FlowTuple) dissectResult {
	for _, m := range httpRequestMethods {
		if bytes.HasPrefix(payload, m) {
			method := string(bytes.TrimSpace(m))
			return dissectResult{
				matched:    true,
				proto:      ProtoHTTP,
				confidence: dissectorConfidence,
				http:       &HTTPData{Method: method, IsRequest: true},
			}
		}
	}
	if bytes.HasPrefix(payload, []byte("HTTP/")) {
		status := parseHTTPStatus(payload)
		return dissectResult{
			matched:    true,
			proto:      ProtoHTTP,
			confidence: dissectorConfidence,
			http:       &HTTPData{StatusCode: status, IsRequest: false},
		}
	}
	return dissectResult{}
}

// parseHTTPStatus extracts the integer status code following the first
// space in an "HTTP/x.y NNN ..." status line, returning 0 on any malformed
// input instead of panicking.
func parseHTTPStatus(payload []byte) int {
	sp := bytes.IndexByte(payload, ' ')
	if sp < 0 || sp+1 >= len(payload) {
		return 0
	}
	rest := payload[sp+1:]
	end := bytes.IndexByte(rest, ' ')
	if end < 0 {
		end = len(rest)
	}
	if end > 3 {
		end = 3
	}
	n, err := strconv.Atoi(string(rest[:end]))
	if err != nil {
		return 0
	}
	return n
}

func dissectDNS(payload []byte, _ FlowTuple) dissectResult {
	if len(payload) < 12 {
		return dissectResult{}
	}

	txID := uint16(payload[0])<<8 | uint16(payload[1])
	isQuery := payload[2]&0x80 == 0
	rcode := payload[3] & 0x0F

	data := &DNSData{
		TransactionID: txID,
		IsQuery:       isQuery,
		ResponseCode:  rcode,
	}

	// Enrich with question-section detail via a full parse; a failure here
	// leaves the header-derived fields intact and simply skips enrichment,
	// matching the "ignore malformed remainders" contract for dissectors.
	var msg dns.Msg
	if err := msg.Unpack(payload); err == nil && len(msg.Question) > 0 {
		data.QName = msg.Question[0].Name
		data.QType = msg.Question[0].Qtype
	}

	return dissectResult{
		matched:    true,
		proto:      ProtoDNS,
		confidence: dissectorConfidence,
		dnsData:    data,
	}
}

func dissectTLS(payload []byte, flow FlowTuple) dissectResult {
	if len(payload) < 5 {
		return dissectResult{}
	}
	contentType := payload[0]
	if contentType != 0x15 && contentType != 0x16 && contentType != 0x17 {
		return dissectResult{}
	}
	if payload[1] != 0x03 {
		return dissectResult{}
	}
	minor := payload[2]
	if minor < 0x01 || minor > 0x04 {
		return dissectResult{}
	}

	data := &TLSData{VersionMajor: payload[1], VersionMinor: minor}

	// SNI extraction only applies to a ClientHello handshake record; a
	// failed unmarshal just means no SNI, not a malformed session.
	if contentType == 0x16 {
		var hello tlsx.ClientHelloBasicInfo
		if err := hello.Unmarshal(payload); err == nil {
			data.SNI = hello.SNI
		}
	}

	return dissectResult{
		matched:    true,
		proto:      ProtoHTTPS,
		confidence: dissectorConfidence,
		tls:        data,
	}
}

var smtpCommandPrefixes = [][]byte{
	[]byte("EHLO "), []byte("HELO "), []byte("MAIL "), []byte("RCPT "),
	[]byte("DATA"), []byte("QUIT"),
}

func dissectSMTP(payload []byte, _ FlowTuple) dissectResult {
	if len(payload) >= 4 && isASCIIDigit(payload[0]) && isASCIIDigit(payload[1]) && isASCIIDigit(payload[2]) && payload[3] == ' ' {
		return dissectResult{matched: true, proto: ProtoSMTP, confidence: dissectorConfidence}
	}
	for _, p := range smtpCommandPrefixes {
		if bytes.HasPrefix(payload, p) {
			return dissectResult{matched: true, proto: ProtoSMTP, confidence: dissectorConfidence}
		}
	}
	return dissectResult{}
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

func dissectSMB(payload []byte, _ FlowTuple) dissectResult {
	if len(payload) < 4 {
		return dissectResult{}
	}
	if payload[0] != 0xFF && payload[0] != 0xFE {
		return dissectResult{}
	}
	if payload[1] != 'S' || payload[2] != 'M' || payload[3] != 'B' {
		return dissectResult{}
	}
	return dissectResult{matched: true, proto: ProtoSMB, confidence: dissectorConfidence}
}
