package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowTuple_EqualityIsFieldwise(t *testing.T) {
	a := FlowTuple{SrcIP: 1, DstIP: 2, SrcPort: 3, DstPort: 4, L4Proto: ProtoTCP}
	b := a
	assert.True(t, a.Equal(b))

	b.DstPort = 5
	assert.False(t, a.Equal(b))
}

func TestFlowTuple_HashIsStableAndDiscriminating(t *testing.T) {
	a := FlowTuple{SrcIP: 0x0A000001, DstIP: 0x0A000002, SrcPort: 54321, DstPort: 80, L4Proto: ProtoTCP}
	b := a

	assert.Equal(t, a.Hash(), b.Hash())

	b.L4Proto = ProtoUDP
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestFlowTuple_NotCanonicalizedForDirection(t *testing.T) {
	// the tuple has no notion of "client" vs "server" side; swapping
	// src/dst produces a materially different tuple rather than collapsing
	// to the same flow identity.
	a := FlowTuple{SrcIP: 1, DstIP: 2, SrcPort: 1000, DstPort: 80, L4Proto: ProtoTCP}
	swapped := FlowTuple{SrcIP: 2, DstIP: 1, SrcPort: 80, DstPort: 1000, L4Proto: ProtoTCP}
	assert.False(t, a.Equal(swapped))
}
