// Package messaging defines the units that travel on the network: flits and
// the transactions they are cut from.
package messaging

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

// HBMNodeID is the reserved node id of the memory endpoint. It lies outside
// the mesh address space.
const HBMNodeID = -1

// FlitType tells the position of a flit in its sequence.
type FlitType uint8

// The flit types.
const (
	FlitHead FlitType = iota
	FlitBody
	FlitTail
)

func (t FlitType) String() string {
	switch t {
	case FlitHead:
		return "HEAD"
	case FlitBody:
		return "BODY"
	case FlitTail:
		return "TAIL"
	default:
		return fmt.Sprintf("FLIT(%d)", uint8(t))
	}
}

// Channel names the split-transaction bus channel a legacy flit belongs to.
type Channel uint8

// The legacy channels. AW carries the write address and the write data.
const (
	ChannelNone Channel = iota
	ChannelAR
	ChannelR
	ChannelAW
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelNone:
		return "NONE"
	case ChannelAR:
		return "AR"
	case ChannelR:
		return "R"
	case ChannelAW:
		return "AW"
	case ChannelB:
		return "B"
	default:
		return fmt.Sprintf("CHANNEL(%d)", uint8(c))
	}
}

// Handshake holds the bus signals carried by the HEAD flit of a legacy
// two-flit announcement.
type Handshake struct {
	Channel Channel
	Valid   bool
	Ready   bool
	ID      int
	Addr    uint64
	Data    uint64
}

// Flit is the smallest transferring unit on a network.
type Flit struct {
	TxnID string

	Src, Dst  int
	VC        int
	Type      FlitType
	SeqNo     int
	SeqLength int
	Timestamp sim.VTimeInCycle
	HopNo     int

	// Set on HEAD flits only.
	Cmd  mem.Command
	Addr uint64
	Len  uint32

	// Set on BODY flits only. Data always has the flit size.
	Data     []byte
	ValidLen int

	Handshake Handshake
}

func (f *Flit) String() string {
	return fmt.Sprintf("%s %d/%d %d->%d vc%d txn %s",
		f.Type, f.SeqNo, f.SeqLength, f.Src, f.Dst, f.VC, f.TxnID)
}

// Payload returns the valid bytes of a BODY flit.
func (f *Flit) Payload() []byte {
	return f.Data[:f.ValidLen]
}

// FlitBuilder can build flits
type FlitBuilder struct {
	txnID         string
	src, dst, vc  int
	flitType      FlitType
	seqNo, seqLen int
	timestamp     sim.VTimeInCycle
	cmd           mem.Command
	addr          uint64
	length        uint32
	flitSize      int
	payload       []byte
	handshake     Handshake
}

// MakeFlitBuilder creates a FlitBuilder.
func MakeFlitBuilder() FlitBuilder {
	return FlitBuilder{}
}

// WithTxnID sets the id of the transaction the flit belongs to.
func (b FlitBuilder) WithTxnID(id string) FlitBuilder {
	b.txnID = id
	return b
}

// WithSrc sets the source node.
func (b FlitBuilder) WithSrc(src int) FlitBuilder {
	b.src = src
	return b
}

// WithDst sets the destination node.
func (b FlitBuilder) WithDst(dst int) FlitBuilder {
	b.dst = dst
	return b
}

// WithVC sets the virtual channel.
func (b FlitBuilder) WithVC(vc int) FlitBuilder {
	b.vc = vc
	return b
}

// WithType sets the flit type.
func (b FlitBuilder) WithType(t FlitType) FlitBuilder {
	b.flitType = t
	return b
}

// WithSeq sets the sequence number and the sequence length.
func (b FlitBuilder) WithSeq(no, length int) FlitBuilder {
	b.seqNo = no
	b.seqLen = length

	return b
}

// WithTimestamp sets the creation cycle.
func (b FlitBuilder) WithTimestamp(t sim.VTimeInCycle) FlitBuilder {
	b.timestamp = t
	return b
}

// WithHeader sets the transaction metadata of a HEAD flit.
func (b FlitBuilder) WithHeader(cmd mem.Command, addr uint64, length uint32) FlitBuilder {
	b.cmd = cmd
	b.addr = addr
	b.length = length

	return b
}

// WithPayload copies data into the body of a flit of the given size.
func (b FlitBuilder) WithPayload(flitSize int, data []byte) FlitBuilder {
	b.flitSize = flitSize
	b.payload = data

	return b
}

// WithHandshake sets the legacy bus signals.
func (b FlitBuilder) WithHandshake(h Handshake) FlitBuilder {
	b.handshake = h
	return b
}

// Build creates a new flit.
func (b FlitBuilder) Build() *Flit {
	f := &Flit{
		TxnID:     b.txnID,
		Src:       b.src,
		Dst:       b.dst,
		VC:        b.vc,
		Type:      b.flitType,
		SeqNo:     b.seqNo,
		SeqLength: b.seqLen,
		Timestamp: b.timestamp,
		Handshake: b.handshake,
	}

	if b.flitType == FlitHead {
		f.Cmd = b.cmd
		f.Addr = b.addr
		f.Len = b.length
	}

	if b.flitType == FlitBody {
		if len(b.payload) > b.flitSize {
			panic(fmt.Sprintf("payload of %d bytes exceeds flit size %d",
				len(b.payload), b.flitSize))
		}

		f.Data = make([]byte, b.flitSize)
		f.ValidLen = copy(f.Data, b.payload)
	}

	return f
}
