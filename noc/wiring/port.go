package wiring

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/noc/messaging"
)

// A Port is one end of a bidirectional connection. It sends on one wire and
// receives on another. A port that is not connected never sends and never
// receives.
type Port struct {
	name string
	in   *Wire
	out  *Wire
}

// NewPort creates an unconnected port.
func NewPort(name string) *Port {
	return &Port{name: name}
}

// Name returns the name of the port.
func (p *Port) Name() string {
	return p.name
}

// IsConnected tells if the port has been connected.
func (p *Port) IsConnected() bool {
	return p.out != nil
}

// CanSend tells if a flit on the virtual channel can be sent this cycle.
func (p *Port) CanSend(vc int) bool {
	return p.out != nil && p.out.CanSend(vc)
}

// IsRemoteFull tells if the remote receiver reported the virtual channel as
// full. An unconnected port is always full.
func (p *Port) IsRemoteFull(vc int) bool {
	return p.out == nil || p.out.IsFull(vc)
}

// Send drives a flit to the remote port.
func (p *Port) Send(f *messaging.Flit) bool {
	if p.out == nil {
		return false
	}

	return p.out.Send(f)
}

// PeekIncoming returns the flit waiting at the port without taking it.
func (p *Port) PeekIncoming() *messaging.Flit {
	if p.in == nil {
		return nil
	}

	return p.in.Peek()
}

// RetrieveIncoming takes the flit waiting at the port.
func (p *Port) RetrieveIncoming() *messaging.Flit {
	if p.in == nil {
		return nil
	}

	return p.in.Retrieve()
}

// SetFull reports the full virtual channels of the local receiver to the
// remote sender.
func (p *Port) SetFull(mask uint64) {
	if p.in == nil {
		return
	}

	p.in.SetFull(mask)
}

// Wires returns the outgoing and the incoming wires.
func (p *Port) Wires() (out, in *Wire) {
	return p.out, p.in
}

// Connect links two ports with a pair of wires and returns the wires so that
// they can be registered with the clock.
func Connect(a, b *Port) []*Wire {
	if a.IsConnected() || b.IsConnected() {
		panic(fmt.Sprintf("cannot connect %s and %s: already connected",
			a.name, b.name))
	}

	ab := NewWire(fmt.Sprintf("%s-%s", a.name, b.name))
	ba := NewWire(fmt.Sprintf("%s-%s", b.name, a.name))

	a.out, b.in = ab, ab
	b.out, a.in = ba, ba

	return []*Wire{ab, ba}
}

// FullMask builds a full mask from per virtual channel flags.
func FullMask(full func(vc int) bool, numVCs int) uint64 {
	mask := uint64(0)

	for vc := 0; vc < numVCs; vc++ {
		if full(vc) {
			mask |= 1 << uint(vc)
		}
	}

	return mask
}
