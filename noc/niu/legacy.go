package niu

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/hbmnoc/logging"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/tracing"
)

// HookPosLegacyDone is triggered when a legacy master finishes a
// transaction. The item is a LegacyResult.
var HookPosLegacyDone = &sim.HookPos{Name: "Legacy NIU Done"}

// legacyWordSize is the number of bytes moved by one legacy transaction.
const legacyWordSize = 8

// A LegacyRequest is a one-word transaction issued by a legacy master.
type LegacyRequest struct {
	Cmd  mem.Command
	Dst  int
	Addr uint64

	// Data is the word to write.
	Data uint64
}

// A LegacyResult reports a finished legacy transaction.
type LegacyResult struct {
	Request LegacyRequest

	// Data is the word read.
	Data uint64
}

// LegacyStats are the counters of a legacy NIU.
type LegacyStats struct {
	Reads       uint64
	Writes      uint64
	Served      uint64
	Retries     uint64
	Declined    uint64
	Invalidated uint64
	FlitsSent   uint64
}

type servedRequest struct {
	addr     uint64
	data     uint64
	declined bool
}

// LegacyComp is an NIU that speaks a split-transaction handshake. A read is
// an address phase followed by a data phase, and a write is an address phase
// carrying the data followed by a response phase. Every phase is announced
// with a HEAD and TAIL pair and, except for the last phase of a serve, waits
// for a matching answer from the partner.
//
// A partner that is not ready makes the phase retry. A request from any
// other node while waiting is declined with an invalidate pair, after which
// the wait resumes.
type LegacyComp struct {
	*sim.ComponentBase

	nodeID     int
	timeTeller sim.TimeTeller
	memory     mem.Memory
	port       *wiring.Port

	state   legacyState
	partner int

	pending *LegacyRequest
	current LegacyRequest
	served  servedRequest

	head, tail               *messaging.Flit
	invalidHead, invalidTail *messaging.Flit
	invalidFlit              *messaging.Flit

	numTxns uint64
	stats   LegacyStats
}

// NodeID returns the node that the NIU serves.
func (c *LegacyComp) NodeID() int {
	return c.nodeID
}

// Port returns the port that connects to the local router port.
func (c *LegacyComp) Port() *wiring.Port {
	return c.port
}

// Stats returns a copy of the counters.
func (c *LegacyComp) Stats() LegacyStats {
	return c.stats
}

// IsIdle tells if the NIU neither works on nor waits to start a
// transaction.
func (c *LegacyComp) IsIdle() bool {
	return c.state.phase == phaseIdle && c.pending == nil
}

// Issue asks the NIU to run a transaction as a master. It returns
// StatusRetry if the NIU is busy.
func (c *LegacyComp) Issue(req LegacyRequest) mem.Status {
	if req.Cmd != mem.CmdRead && req.Cmd != mem.CmdWrite {
		return mem.StatusCommandError
	}

	if !c.IsIdle() {
		return mem.StatusRetry
	}

	c.pending = &req

	return mem.StatusOK
}

// Tick runs one step of the state machine.
func (c *LegacyComp) Tick() bool {
	before := c.state

	madeProgress := c.runStep()

	if c.state != before {
		logging.Trace("legacy transition", "niu", c.Name(),
			"from", before.String(), "to", c.state.String())
	}

	return madeProgress || !c.IsIdle()
}

func (c *LegacyComp) runStep() bool {
	switch c.state.step {
	case stepMake:
		return c.doMake()
	case stepSendHead:
		return c.doSend(c.head, stepSendTail)
	case stepSendTail:
		return c.doSendTail()
	case stepWait:
		return c.doWait()
	case stepRetry:
		c.state.step = stepMake
		return true
	case stepInvalidMake:
		return c.doInvalidMake()
	case stepInvalidSendHead:
		return c.doSend(c.invalidHead, stepInvalidSendTail)
	case stepInvalidSendTail:
		return c.doSend(c.invalidTail, c.state.resume)
	default:
		panic(fmt.Sprintf("%s: unknown step %s", c.Name(), c.state.step))
	}
}

func (c *LegacyComp) doMake() bool {
	if c.state.phase == phaseIdle {
		return c.start()
	}

	spec := phaseSpecs[c.state.phase]
	h := messaging.Handshake{
		Channel: spec.channel,
		Valid:   spec.valid,
		Ready:   spec.ready,
		ID:      c.nodeID,
	}

	switch c.state.phase {
	case phaseReadAddr:
		h.Addr = c.current.Addr
	case phaseWriteAddr:
		h.Addr = c.current.Addr
		h.Data = c.current.Data
	case phaseServeReadAddr:
		c.served.declined = !c.serveRead()
		h.Ready = !c.served.declined
	case phaseServeWriteAddr:
		c.served.declined = !c.serveWrite()
		h.Ready = !c.served.declined
	case phaseServeReadData:
		h.Data = c.served.data
	}

	c.head, c.tail = c.makePair(c.partner, h)
	c.state.step = stepSendHead

	return true
}

// start leaves the idle phase, either as a master for the pending request
// or as a slave for an incoming request.
func (c *LegacyComp) start() bool {
	if c.pending != nil {
		c.current = *c.pending
		c.pending = nil
		c.partner = c.current.Dst

		c.state = legacyState{phase: phaseWriteAddr}
		if c.current.Cmd == mem.CmdRead {
			c.state.phase = phaseReadAddr
		}

		tracing.StartTask(c.txnTaskID(), "", c,
			"legacy_txn", c.current.Cmd.String(), c.current)

		return true
	}

	f := c.port.RetrieveIncoming()
	if f == nil {
		return false
	}

	if f.Type != messaging.FlitHead || !isRequest(f.Handshake) {
		return true
	}

	c.partner = f.Src
	c.served = servedRequest{addr: f.Handshake.Addr, data: f.Handshake.Data}

	c.state = legacyState{phase: phaseServeWriteAddr}
	if f.Handshake.Channel == messaging.ChannelAR {
		c.state.phase = phaseServeReadAddr
	}

	return true
}

func (c *LegacyComp) doSend(f *messaging.Flit, then step) bool {
	if !c.port.Send(f) {
		return false
	}

	c.stats.FlitsSent++
	c.state.step = then

	return true
}

func (c *LegacyComp) doSendTail() bool {
	if !c.port.Send(c.tail) {
		return false
	}

	c.stats.FlitsSent++

	spec := phaseSpecs[c.state.phase]

	switch {
	case c.served.declined && c.isServing():
		c.stats.Declined++
		c.state = legacyState{}
	case spec.waitChannel == messaging.ChannelNone:
		c.stats.Served++
		c.state = legacyState{phase: spec.next}
	default:
		c.state.step = stepWait
	}

	return true
}

func (c *LegacyComp) doWait() bool {
	f := c.port.RetrieveIncoming()
	if f == nil {
		return false
	}

	if f.Type != messaging.FlitHead {
		return true
	}

	if f.Src != c.partner {
		if isRequest(f.Handshake) {
			c.invalidFlit = f
			c.state.resume = stepWait
			c.state.step = stepInvalidMake
		}

		return true
	}

	spec := phaseSpecs[c.state.phase]
	if !spec.accepts(f.Handshake) {
		c.stats.Retries++
		c.state.step = stepRetry

		return true
	}

	if spec.next == phaseIdle {
		c.finish(f.Handshake)
		return true
	}

	c.state = legacyState{phase: spec.next}

	return true
}

func (c *LegacyComp) doInvalidMake() bool {
	h := messaging.Handshake{
		Channel: c.invalidFlit.Handshake.Channel,
		ID:      c.nodeID,
	}

	c.invalidHead, c.invalidTail = c.makePair(c.invalidFlit.Src, h)
	c.invalidFlit = nil
	c.stats.Invalidated++
	c.state.step = stepInvalidSendHead

	return true
}

func (c *LegacyComp) finish(h messaging.Handshake) {
	result := LegacyResult{Request: c.current}

	if c.current.Cmd == mem.CmdRead {
		result.Data = h.Data
		c.stats.Reads++
	} else {
		c.stats.Writes++
	}

	c.state = legacyState{}

	tracing.EndTask(c.txnTaskID(), c)
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosLegacyDone,
		Item:   result,
	})
}

func (c *LegacyComp) isServing() bool {
	return c.state.phase >= phaseServeReadAddr
}

func (c *LegacyComp) serveRead() bool {
	rsp := c.access(mem.ReadReq(c.served.addr, legacyWordSize))
	if rsp.Status != mem.StatusOK {
		return false
	}

	c.served.data = binary.LittleEndian.Uint64(rsp.Data)

	return true
}

func (c *LegacyComp) serveWrite() bool {
	data := binary.LittleEndian.AppendUint64(nil, c.served.data)
	rsp := c.access(mem.WriteReq(c.served.addr, data))

	return rsp.Status == mem.StatusOK
}

func (c *LegacyComp) access(req mem.Request) mem.Response {
	if c.memory == nil {
		panic(fmt.Sprintf("%s: serving a request without a memory", c.Name()))
	}

	rsp := c.memory.Access(req)

	switch rsp.Status {
	case mem.StatusOK, mem.StatusRetry:
	case mem.StatusAddressError:
		sim.Fatalf(c.Name(), sim.AddressOutOfRange,
			"%s of %d bytes at 0x%x", req.Command, req.Length, req.Address)
	default:
		sim.Fatalf(c.Name(), sim.UnknownCommand,
			"memory rejected command %s", req.Command)
	}

	return rsp
}

func (c *LegacyComp) makePair(
	dst int,
	h messaging.Handshake,
) (head, tail *messaging.Flit) {
	c.numTxns++

	b := messaging.MakeFlitBuilder().
		WithTxnID(fmt.Sprintf("legacy_%d_%d", c.nodeID, c.numTxns)).
		WithSrc(c.nodeID).
		WithDst(dst).
		WithTimestamp(c.timeTeller.CurrentTime())

	head = b.WithType(messaging.FlitHead).
		WithSeq(0, 2).
		WithHandshake(h).
		Build()
	tail = b.WithType(messaging.FlitTail).
		WithSeq(1, 2).
		Build()

	return head, tail
}

func (c *LegacyComp) txnTaskID() string {
	return fmt.Sprintf("legacy_%s_%d", c.Name(), c.current.Addr)
}
