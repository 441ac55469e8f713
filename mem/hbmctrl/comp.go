// Package hbmctrl provides the bridge between the network and the HBM. It
// turns incoming flit sequences into memory accesses and answers reads with
// response sequences.
package hbmctrl

import (
	"errors"
	"fmt"

	"github.com/sarchlab/hbmnoc/logging"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/tracing"
)

// Stats are the counters of a controller.
type Stats struct {
	Writes        uint64
	Reads         uint64
	Retries       uint64
	BytesWritten  uint64
	BytesRead     uint64
	FlitsReceived uint64
	FlitsSent     uint64
}

// Comp is an HBM controller. It serves one transaction at a time. Writes are
// applied flit by flit, and a read is answered once its TAIL arrives.
type Comp struct {
	*sim.ComponentBase

	timeTeller sim.TimeTeller
	memory     mem.Memory
	flitSize   int

	port *wiring.Port
	rx   []*sim.BoundedBuffer[*messaging.Flit]
	tx   *sim.BoundedBuffer[*messaging.Flit]
	rr   *arbitration.RoundRobin

	state state
	stats Stats
}

// Port returns the port that connects to the router.
func (c *Comp) Port() *wiring.Port {
	return c.port
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// IsIdle tells if no transaction is being served.
func (c *Comp) IsIdle() bool {
	return c.state.phase == phaseIdle
}

// Buffers returns the receive buffers and the transmit buffer.
func (c *Comp) Buffers() []sim.Buffer {
	bufs := make([]sim.Buffer, 0, len(c.rx)+1)
	for _, b := range c.rx {
		bufs = append(bufs, b)
	}

	return append(bufs, c.tx)
}

// Tick updates the controller.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.receive() || madeProgress
	madeProgress = c.serve() || madeProgress
	madeProgress = c.transmit() || madeProgress

	c.port.SetFull(wiring.FullMask(func(vc int) bool {
		return c.rx[vc].IsFull()
	}, len(c.rx)))
	c.rr.Tick()

	return madeProgress || c.hasPendingWork()
}

func (c *Comp) receive() bool {
	f := c.port.PeekIncoming()
	if f == nil {
		return false
	}

	if f.VC < 0 || f.VC >= len(c.rx) {
		panic(fmt.Sprintf("%s: flit %s on nonexistent VC", c.Name(), f))
	}

	if !c.rx[f.VC].Push(f) {
		return false
	}

	c.port.RetrieveIncoming()
	c.stats.FlitsReceived++

	return true
}

func (c *Comp) serve() bool {
	if c.state.phase == phaseRespond {
		return c.respond()
	}

	buf := c.currentRxBuffer()
	if buf == nil {
		return false
	}

	f := buf.Front()

	s, err := next(c.state, f, c.flitSize)
	c.mustNotViolate(err)

	if f.Type == messaging.FlitBody {
		if !c.write(f) {
			return false
		}
	}

	buf.Pop()
	c.enter(s, f)

	return true
}

// currentRxBuffer returns the buffer of the sequence being received, or,
// when idle, the first non-empty buffer in round-robin order.
func (c *Comp) currentRxBuffer() *sim.BoundedBuffer[*messaging.Flit] {
	if c.state.phase != phaseIdle {
		buf := c.rx[c.state.vc]
		if buf.IsEmpty() {
			return nil
		}

		return buf
	}

	for _, vc := range c.rr.Order() {
		if !c.rx[vc].IsEmpty() {
			return c.rx[vc]
		}
	}

	return nil
}

func (c *Comp) enter(s state, f *messaging.Flit) {
	prev := c.state
	c.state = s

	switch {
	case prev.phase == phaseIdle:
		tracing.StartTask(c.taskID(s.txnID, s.src), s.txnID, c,
			"hbm_txn", f.Cmd.String(), f)
	case prev.phase == phaseWrite && s.phase == phaseIdle:
		c.stats.Writes++
		tracing.EndTask(c.taskID(prev.txnID, prev.src), c)
	case s.phase == phaseRespond:
		tracing.AddTaskStep(c.taskID(s.txnID, s.src), c, "respond")
	}
}

func (c *Comp) write(f *messaging.Flit) bool {
	req := mem.WriteReq(c.state.addr, append([]byte(nil), f.Payload()...))
	rsp := c.memory.Access(req)

	if !c.accessDone(req, rsp) {
		return false
	}

	c.stats.BytesWritten += uint64(req.Length)

	return true
}

// accessDone tells if an access has been served. Retries are counted and
// errors are fatal.
func (c *Comp) accessDone(req mem.Request, rsp mem.Response) bool {
	switch rsp.Status {
	case mem.StatusOK:
		return true
	case mem.StatusRetry:
		c.stats.Retries++
		logging.Trace("memory retry", "ctrl", c.Name(),
			"cmd", req.Command.String(), "addr", req.Address)
		tracing.AddTaskStep(c.taskID(c.state.txnID, c.state.src), c, "retry")

		return false
	case mem.StatusAddressError:
		sim.Fatalf(c.Name(), sim.AddressOutOfRange,
			"%s of %d bytes at 0x%x", req.Command, req.Length, req.Address)
	default:
		sim.Fatalf(c.Name(), sim.UnknownCommand,
			"memory rejected command %s", req.Command)
	}

	return false
}

func (c *Comp) respond() bool {
	if c.tx.IsFull() {
		return false
	}

	s := c.state
	b := messaging.MakeFlitBuilder().
		WithTxnID(s.txnID).
		WithSrc(messaging.HBMNodeID).
		WithDst(s.src).
		WithVC(s.vc).
		WithSeq(s.seqNo, s.seqLength).
		WithTimestamp(c.timeTeller.CurrentTime())

	switch {
	case s.seqNo == 0:
		b = b.WithType(messaging.FlitHead).
			WithHeader(mem.CmdRead, s.addr, s.length)
	case s.seqNo == s.seqLength-1:
		b = b.WithType(messaging.FlitTail)
	default:
		n := min(s.remaining, uint32(c.flitSize))
		req := mem.ReadReq(s.addr, n)

		rsp := c.memory.Access(req)
		if !c.accessDone(req, rsp) {
			return false
		}

		b = b.WithType(messaging.FlitBody).WithPayload(c.flitSize, rsp.Data)
		s.addr += uint64(n)
		s.remaining -= n
		c.stats.BytesRead += uint64(n)
	}

	f := b.Build()
	c.tx.Push(f)
	s.seqNo++

	if f.Type == messaging.FlitTail {
		c.stats.Reads++
		tracing.EndTask(c.taskID(s.txnID, s.src), c)

		s = state{}
	}

	c.state = s

	return true
}

func (c *Comp) transmit() bool {
	f, ok := c.tx.Peek()
	if !ok || !c.port.Send(f) {
		return false
	}

	c.tx.Pop()
	c.stats.FlitsSent++

	return true
}

func (c *Comp) hasPendingWork() bool {
	if c.state.phase != phaseIdle || !c.tx.IsEmpty() {
		return true
	}

	for _, b := range c.rx {
		if !b.IsEmpty() {
			return true
		}
	}

	return false
}

func (c *Comp) mustNotViolate(err error) {
	if err == nil {
		return
	}

	var fatal *sim.FatalError
	if !errors.As(err, &fatal) {
		panic(err)
	}

	fatal.Where = c.Name()
	panic(fatal)
}

func (c *Comp) taskID(txnID string, src int) string {
	return fmt.Sprintf("%s_%d_%s", txnID, src, c.Name())
}
