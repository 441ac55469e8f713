// Package wiring connects network components with point-to-point wires that
// use the alternating-bit handshake.
package wiring

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/sim"
)

// HookPosWireSend marks a flit being driven onto a wire.
var HookPosWireSend = &sim.HookPos{Name: "Wire Send"}

// HookPosWireRetrieve marks a flit being acknowledged by the receiver.
var HookPosWireRetrieve = &sim.HookPos{Name: "Wire Retrieve"}

// A Wire carries flits in one direction.
//
// The sender owns the request level and the flit register. The receiver owns
// the acknowledge level and the full mask, which has one bit per virtual
// channel. The sender may drive a new flit only when the acknowledge level
// equals its own level and the receiver does not report the flit's virtual
// channel as full. All four signals are latched, so each side observes the
// other one cycle late.
type Wire struct {
	sim.HookableBase

	name string

	req  *sim.Signal[bool]
	flit *sim.Signal[*messaging.Flit]
	ack  *sim.Signal[bool]
	full *sim.Signal[uint64]

	txLevel bool
	rxLevel bool

	numFlits uint64
}

// NewWire creates an idle wire.
func NewWire(name string) *Wire {
	return &Wire{
		name: name,
		req:  sim.NewSignal(false),
		flit: sim.NewSignal[*messaging.Flit](nil),
		ack:  sim.NewSignal(false),
		full: sim.NewSignal[uint64](0),
	}
}

// Name returns the name of the wire.
func (w *Wire) Name() string {
	return w.name
}

// CanSend tells if the sender may drive a flit on the virtual channel.
func (w *Wire) CanSend(vc int) bool {
	return w.ack.Get() == w.txLevel && !w.IsFull(vc)
}

// IsFull tells if the receiver reported the virtual channel as full.
func (w *Wire) IsFull(vc int) bool {
	return w.full.Get()&(1<<uint(vc)) != 0
}

// Send drives a flit. It returns false if the handshake is not complete or
// the receiving virtual channel is full.
func (w *Wire) Send(f *messaging.Flit) bool {
	if !w.CanSend(f.VC) {
		return false
	}

	w.txLevel = !w.txLevel
	w.req.Set(w.txLevel)
	w.flit.Set(f)
	w.numFlits++

	w.InvokeHook(sim.HookCtx{
		Domain: w,
		Pos:    HookPosWireSend,
		Item:   f,
	})

	return true
}

// Peek returns the flit waiting to be acknowledged, or nil.
func (w *Wire) Peek() *messaging.Flit {
	if w.req.Get() == w.rxLevel {
		return nil
	}

	return w.flit.Get()
}

// Retrieve acknowledges and returns the waiting flit, or nil.
func (w *Wire) Retrieve() *messaging.Flit {
	f := w.Peek()
	if f == nil {
		return nil
	}

	w.rxLevel = !w.rxLevel
	w.ack.Set(w.rxLevel)

	w.InvokeHook(sim.HookCtx{
		Domain: w,
		Pos:    HookPosWireRetrieve,
		Item:   f,
	})

	return f
}

// SetFull publishes which virtual channels of the receiver are full.
func (w *Wire) SetFull(mask uint64) {
	w.full.Set(mask)
}

// NumFlits returns the number of flits sent over the wire.
func (w *Wire) NumFlits() uint64 {
	return w.numFlits
}

// Latch publishes all the signals of the wire.
func (w *Wire) Latch() bool {
	changed := w.req.Latch()
	changed = w.flit.Latch() || changed
	changed = w.ack.Latch() || changed
	changed = w.full.Latch() || changed

	return changed
}

func (w *Wire) String() string {
	return fmt.Sprintf("%s(req=%v ack=%v full=%b)",
		w.name, w.req.Get(), w.ack.Get(), w.full.Get())
}
