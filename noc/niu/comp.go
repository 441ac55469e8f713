// Package niu provides the network interface units that bridge a tile and
// the network. Comp turns transactions into flit sequences and back.
// LegacyComp speaks the split-transaction handshake of older tiles.
package niu

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/logging"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/tracing"
)

// A Receiver takes the transactions that arrive at a tile. A RETRY status
// makes the NIU offer the same transaction again on a later tick.
type Receiver interface {
	Deliver(txn *messaging.Transaction) mem.Status
}

// Stats are the counters of an NIU.
type Stats struct {
	TxnsSent        uint64
	TxnsReceived    uint64
	FlitsSent       uint64
	FlitsReceived   uint64
	BytesSent       uint64
	BytesReceived   uint64
	QueueRejections uint64
	DeliveryRetries uint64
}

type inbound struct {
	buf         *sim.BoundedBuffer[*messaging.Flit]
	reassembler *messaging.Reassembler

	// ready holds a reassembled transaction that the receiver has not
	// accepted yet.
	ready *messaging.Transaction
}

// Comp is a network interface unit. The outbound half cuts queued
// transactions into flits and injects one flit whenever the link allows.
// The inbound half reassembles flit sequences per virtual channel and hands
// them to the receiver.
type Comp struct {
	*sim.ComponentBase

	nodeID     int
	flitSize   int
	timeTeller sim.TimeTeller
	receiver   Receiver

	port     *wiring.Port
	queue    *sim.BoundedBuffer[*messaging.Transaction]
	sending  *messaging.Sequencer
	sendTxn  *messaging.Transaction
	nextVC   int
	inbounds []*inbound
	rr       *arbitration.RoundRobin

	stats Stats
}

// NodeID returns the node that the NIU serves.
func (c *Comp) NodeID() int {
	return c.nodeID
}

// Port returns the port that connects to the local router port.
func (c *Comp) Port() *wiring.Port {
	return c.port
}

// SetReceiver sets the collaborator that takes arriving transactions.
func (c *Comp) SetReceiver(r Receiver) {
	c.receiver = r
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Buffers returns the transaction queue and the receive buffers.
func (c *Comp) Buffers() []sim.Buffer {
	bufs := []sim.Buffer{c.queue}
	for _, in := range c.inbounds {
		bufs = append(bufs, in.buf)
	}

	return bufs
}

// Send queues a transaction for injection. The NIU takes ownership of the
// transaction. It returns StatusRetry when the queue is full.
func (c *Comp) Send(txn *messaging.Transaction) mem.Status {
	if txn.Cmd != mem.CmdRead && txn.Cmd != mem.CmdWrite {
		return mem.StatusCommandError
	}

	if txn.Src != c.nodeID {
		panic(fmt.Sprintf("%s: transaction %s is not from node %d",
			c.Name(), txn, c.nodeID))
	}

	if txn.ID == "" {
		txn.ID = sim.GetIDGenerator().Generate()
	}

	if !c.queue.Push(txn) {
		c.stats.QueueRejections++
		return mem.StatusRetry
	}

	tracing.StartTask(c.txnTaskID(txn), "", c,
		"txn_out", txn.Cmd.String(), txn)

	return mem.StatusOK
}

// Tick updates the NIU.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.inject() || madeProgress
	madeProgress = c.receive() || madeProgress
	madeProgress = c.deliver() || madeProgress

	c.port.SetFull(wiring.FullMask(func(vc int) bool {
		return c.inbounds[vc].buf.IsFull()
	}, len(c.inbounds)))
	c.rr.Tick()

	return madeProgress || c.hasPendingWork()
}

func (c *Comp) inject() bool {
	if c.sending == nil {
		if c.queue.IsEmpty() {
			return false
		}

		c.sendTxn = c.queue.Pop()
		c.sending = messaging.NewSequencer(c.sendTxn, c.flitSize,
			c.nextVC, c.timeTeller.CurrentTime())
		c.nextVC = (c.nextVC + 1) % len(c.inbounds)
	}

	f := c.sending.Peek()
	if !c.port.Send(f) {
		return false
	}

	c.sending.Advance()
	c.stats.FlitsSent++
	c.stats.BytesSent += uint64(f.ValidLen)

	if c.sending.Done() {
		c.stats.TxnsSent++
		tracing.EndTask(c.txnTaskID(c.sendTxn), c)

		c.sending = nil
		c.sendTxn = nil
	}

	return true
}

func (c *Comp) receive() bool {
	f := c.port.PeekIncoming()
	if f == nil {
		return false
	}

	if f.VC < 0 || f.VC >= len(c.inbounds) {
		panic(fmt.Sprintf("%s: flit %s on nonexistent VC", c.Name(), f))
	}

	if f.Dst != c.nodeID {
		panic(fmt.Sprintf("%s: flit %s delivered to node %d",
			c.Name(), f, c.nodeID))
	}

	if !c.inbounds[f.VC].buf.Push(f) {
		return false
	}

	c.port.RetrieveIncoming()
	c.stats.FlitsReceived++

	return true
}

func (c *Comp) deliver() bool {
	madeProgress := false

	for _, vc := range c.rr.Order() {
		in := c.inbounds[vc]

		if in.ready == nil && !in.buf.IsEmpty() {
			f := in.buf.Pop()
			in.ready = in.reassembler.Accept(f)
			c.stats.BytesReceived += uint64(f.ValidLen)
			madeProgress = true
		}

		if in.ready == nil {
			continue
		}

		if c.receiver == nil {
			panic(fmt.Sprintf("%s: no receiver for %s", c.Name(), in.ready))
		}

		status := c.receiver.Deliver(in.ready)
		if status != mem.StatusOK {
			c.stats.DeliveryRetries++
			logging.Trace("delivery retry",
				"niu", c.Name(), "txn", in.ready.ID, "status", status.String())

			continue
		}

		in.ready = nil
		c.stats.TxnsReceived++
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) hasPendingWork() bool {
	if c.sending != nil || !c.queue.IsEmpty() {
		return true
	}

	for _, in := range c.inbounds {
		if in.ready != nil || !in.buf.IsEmpty() || in.reassembler.InProgress() {
			return true
		}
	}

	return false
}

func (c *Comp) txnTaskID(txn *messaging.Transaction) string {
	return fmt.Sprintf("txn_%s_%s", txn.ID, c.Name())
}
