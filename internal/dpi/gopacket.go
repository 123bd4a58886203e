package dpi

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/dreadl0ck/ja3"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// IngestGoPacket is a convenience wrapper for callers that already have a
// fully parsed gopacket.Packet (for example a pcap replay driver) instead
// of a bare 5-tuple and payload. It extracts the IPv4/TCP/UDP fields
// ProcessPacket needs, and additionally computes a JA3 fingerprint for TLS
// ClientHello traffic, attaching it to the session's TLSData once
// classification has landed.
//
// Packets that are not IPv4 TCP or UDP are ignored and return (0, false).
func (e *Engine) IngestGoPacket(pkt gopacket.Packet, isResponse bool) (int, bool) {
	flow, payload, ok := tupleFromGoPacket(pkt)
	if !ok {
		return 0, false
	}

	tsNS := int64(0)
	if meta := pkt.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		tsNS = meta.Timestamp.UnixNano()
	}

	n := e.ProcessPacket(flow, payload, tsNS, isResponse)

	if looksLikeTLSClientHello(payload) {
		digest := ja3.DigestPacket(pkt)
		ja3Hash := hex.EncodeToString(digest[:])
		// d41d8cd98f00b204e9800998ecf8427e is md5(""); skip the empty-digest
		// sentinel the same way the teacher's extractor does.
		if ja3Hash != "d41d8cd98f00b204e9800998ecf8427e" {
			if sess, found := e.flows.lookup(flow); found {
				sess.mu.Lock()
				if sess.TLSData == nil {
					sess.TLSData = &TLSData{}
				}
				sess.TLSData.JA3 = ja3Hash
				sess.mu.Unlock()
			}
		}
	}

	return n, true
}

func looksLikeTLSClientHello(payload []byte) bool {
	return len(payload) > 5 && payload[0] == 0x16 && payload[5] == 0x01
}

func tupleFromGoPacket(pkt gopacket.Packet) (FlowTuple, []byte, bool) {
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return FlowTuple{}, nil, false
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok {
		return FlowTuple{}, nil, false
	}

	var flow FlowTuple
	flow.SrcIP = ipv4ToUint32(ip.SrcIP)
	flow.DstIP = ipv4ToUint32(ip.DstIP)

	if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, ok := tcpLayer.(*layers.TCP)
		if !ok {
			return FlowTuple{}, nil, false
		}
		flow.SrcPort = uint16(tcp.SrcPort)
		flow.DstPort = uint16(tcp.DstPort)
		flow.L4Proto = ProtoTCP
		return flow, tcp.Payload, true
	}

	if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			return FlowTuple{}, nil, false
		}
		flow.SrcPort = uint16(udp.SrcPort)
		flow.DstPort = uint16(udp.DstPort)
		flow.L4Proto = ProtoUDP
		return flow, udp.Payload, true
	}

	return FlowTuple{}, nil, false
}

func ipv4ToUint32(ip []byte) uint32 {
	if len(ip) == 16 {
		ip = ip[12:]
	}
	if len(ip) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}
