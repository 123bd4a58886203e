package dpi

// portFallback maps well-known ports to a protocol guess used only when
// every dissector in the chain returns NoMatch. Port-sourced classifications
// always carry confidence 50, strictly lower than any dissector match.
var portFallback = map[uint16]Protocol{
	80:   ProtoHTTP,
	443:  ProtoHTTPS,
	53:   ProtoDNS,
	25:   ProtoSMTP,
	587:  ProtoSMTP,
	465:  ProtoSMTPS,
	21:   ProtoFTP,
	990:  ProtoFTPS,
	445:  ProtoSMB,
	22:   ProtoSSH,
	23:   ProtoTelnet,
	161:  ProtoSNMP,
}

const portFallbackConfidence = 50

// classify runs the dissector chain in the fixed order mandated by the
// component design, falling back to port heuristics on a chain-wide
// NoMatch. It is only ever invoked while the session's classification is
// still Unknown; callers are responsible for that gate and for freezing
// the result onto the session (classification is monotonic, I4).
func classify(payload []byte, flow FlowTuple, tick uint32) (Classification, dissectResult) {
	for _, d := range dissectorChain {
		res := d(payload, flow)
		if res.matched {
			return Classification{
				Protocol:      res.proto,
				Confidence:    res.confidence,
				DetectionTick: tick,
			}, res
		}
	}

	if proto, ok := portFallback[flow.SrcPort]; ok {
		return Classification{Protocol: proto, Confidence: portFallbackConfidence, DetectionTick: tick}, dissectResult{}
	}
	if proto, ok := portFallback[flow.DstPort]; ok {
		return Classification{Protocol: proto, Confidence: portFallbackConfidence, DetectionTick: tick}, dissectResult{}
	}

	return Classification{Protocol: ProtoUnknown, DetectionTick: tick}, dissectResult{}
}
