package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_DissectorMatchBeatsPortFallback(t *testing.T) {
	// dst_port=22 would normally fall back to SSH, but a recognizable HTTP
	// request on that port must still classify as HTTP via the dissector.
	flow := FlowTuple{SrcPort: 4000, DstPort: 22}
	class, res := classify([]byte("GET / HTTP/1.1\r\n\r\n"), flow, 1)

	assert.Equal(t, ProtoHTTP, class.Protocol)
	assert.GreaterOrEqual(t, int(class.Confidence), dissectorConfidence)
	assert.NotNil(t, res.http)
}

func TestClassify_PortFallbackWhenNoDissectorMatches(t *testing.T) {
	flow := FlowTuple{SrcPort: 4000, DstPort: 445}
	class, _ := classify([]byte{0x00, 0x00, 0x00}, flow, 1)

	assert.Equal(t, ProtoSMB, class.Protocol)
	assert.EqualValues(t, portFallbackConfidence, class.Confidence)
}

func TestClassify_UnknownWhenNothingMatches(t *testing.T) {
	flow := FlowTuple{SrcPort: 4000, DstPort: 59999}
	// shorter than the 12-byte DNS header, so no dissector can claim it
	class, _ := classify([]byte("nothing"), flow, 1)
	assert.Equal(t, ProtoUnknown, class.Protocol)
}

func TestClassify_DetectionTickReflectsCurrentPacketCount(t *testing.T) {
	flow := FlowTuple{SrcPort: 4000, DstPort: 80}
	class, _ := classify([]byte("GET / HTTP/1.1\r\n\r\n"), flow, 7)
	assert.EqualValues(t, 7, class.DetectionTick)
}
