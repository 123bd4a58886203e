package dpi

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// L4Proto identifies the transport-layer protocol of a flow.
type L4Proto uint8

const (
	ProtoTCP L4Proto = 6
	ProtoUDP L4Proto = 17
)

// FlowTuple is the canonical, direction-unaware identity of a flow. Callers
// label direction explicitly per packet via the is_response flag; the tuple
// itself is never swapped or canonicalized.
type FlowTuple struct {
	SrcIP   uint32
	DstIP   uint32
	SrcPort uint16
	DstPort uint16
	L4Proto L4Proto
}

// bytes returns the tuple's canonical byte encoding, used only for hashing.
func (t FlowTuple) bytes() [13]byte {
	var b [13]byte
	binary.BigEndian.PutUint32(b[0:4], t.SrcIP)
	binary.BigEndian.PutUint32(b[4:8], t.DstIP)
	binary.BigEndian.PutUint16(b[8:10], t.SrcPort)
	binary.BigEndian.PutUint16(b[10:12], t.DstPort)
	b[12] = byte(t.L4Proto)
	return b
}

// Hash combines all five fields into a single non-cryptographic digest.
func (t FlowTuple) Hash() uint64 {
	b := t.bytes()
	return xxhash.Sum64(b[:])
}

// Equal reports bit-exact equality across all five fields.
func (t FlowTuple) Equal(o FlowTuple) bool {
	return t == o
}
