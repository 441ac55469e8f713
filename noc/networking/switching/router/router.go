// Package router provides the wormhole router that sits on every mesh node.
package router

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/logging"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/tracing"
)

// A portComplex is the infrastructure related to a port.
type portComplex struct {
	dir  routing.Direction
	port *wiring.Port

	// Flits received from the port wait here for a reservation, one buffer
	// per virtual channel.
	ingress []*sim.BoundedBuffer[*messaging.Flit]

	// Flits that have won the switch wait here to be sent to the next hop,
	// one buffer per virtual channel so that a blocked VC never holds back
	// the others.
	egress []*sim.BoundedBuffer[*messaging.Flit]

	// nextTxVC is where transmit starts looking for a flit to send.
	nextTxVC int

	// headForwarded is set per virtual channel once the HEAD of the
	// reserved sequence has left the ingress buffer.
	headForwarded []bool
}

// Stats are the counters of a router.
type Stats struct {
	FlitsRouted          [routing.NumDirections]uint64
	Reservations         uint64
	ReservationConflicts uint64
}

// TotalFlitsRouted sums the flits sent over all the ports.
func (s Stats) TotalFlitsRouted() uint64 {
	total := uint64(0)
	for _, n := range s.FlitsRouted {
		total += n
	}

	return total
}

// Comp is a router. Every tick it receives flits, reserves outputs for new
// HEAD flits, moves flits of reserved sequences to the egress buffers, and
// sends flits to the neighbors.
type Comp struct {
	*sim.ComponentBase

	nodeID int
	numVCs int

	ports        [routing.NumDirections]*portComplex
	routingTable routing.Table
	selector     routing.Selector
	reservations *arbitration.ReservationTable
	rr           *arbitration.RoundRobin

	stats Stats
}

// NodeID returns the id of the node that the router serves.
func (c *Comp) NodeID() int {
	return c.nodeID
}

// Port returns the port in the given direction.
func (c *Comp) Port(d routing.Direction) *wiring.Port {
	return c.ports[d].port
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Reservations returns the live reservations.
func (c *Comp) Reservations() []arbitration.Reservation {
	return c.reservations.Reservations()
}

// Buffers returns all the buffers of the router.
func (c *Comp) Buffers() []sim.Buffer {
	bufs := make([]sim.Buffer, 0, len(c.ports)*c.numVCs*2)

	for _, pc := range c.ports {
		for _, b := range pc.ingress {
			bufs = append(bufs, b)
		}

		for _, b := range pc.egress {
			bufs = append(bufs, b)
		}
	}

	return bufs
}

// Tick update the router's state.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.receive() || madeProgress
	madeProgress = c.reserve() || madeProgress
	madeProgress = c.forward() || madeProgress
	madeProgress = c.transmit() || madeProgress

	c.publishFullMasks()
	c.rr.Tick()

	return madeProgress || c.hasPendingFlits()
}

func (c *Comp) receive() (madeProgress bool) {
	for _, pc := range c.ports {
		f := pc.port.PeekIncoming()
		if f == nil {
			continue
		}

		if f.VC < 0 || f.VC >= c.numVCs {
			panic(fmt.Sprintf("%s: flit %s on nonexistent VC", c.Name(), f))
		}

		buf := pc.ingress[f.VC]
		if !buf.CanPush() {
			continue
		}

		buf.Push(pc.port.RetrieveIncoming())
		madeProgress = true

		if f.Type == messaging.FlitHead {
			tracing.StartTask(
				c.flitTaskID(f),
				f.TxnID,
				c, "flit", "flit_inside_router",
				f,
			)
		}
	}

	return madeProgress
}

func (c *Comp) reserve() (madeProgress bool) {
	for _, p := range c.rr.Order() {
		pc := c.ports[p]

		for vc, buf := range pc.ingress {
			f, ok := buf.Peek()
			if !ok || f.Type != messaging.FlitHead {
				continue
			}

			in := arbitration.Endpoint{Port: p, VC: vc}
			if _, reserved := c.reservations.Output(in); reserved {
				if pc.headForwarded[vc] {
					sim.Fatalf(c.Name(), sim.DuplicateReservation,
						"HEAD %s arrived on %s before the TAIL of the "+
							"reserved sequence", f, in)
				}

				continue
			}

			madeProgress = c.reserveFor(in, f) || madeProgress
		}
	}

	return madeProgress
}

func (c *Comp) reserveFor(in arbitration.Endpoint, f *messaging.Flit) bool {
	candidates := c.routingTable.FindPorts(f.Dst)
	dir := c.selector.Select(candidates, c.outputLoad,
		routing.Direction(c.rr.Start()))

	if !c.ports[dir].port.IsConnected() {
		panic(fmt.Sprintf("%s: flit %s routed to unconnected port %s",
			c.Name(), f, dir))
	}

	out := arbitration.Endpoint{Port: int(dir), VC: in.VC}
	if c.reservations.Check(in, out) == arbitration.HeldByOther {
		c.stats.ReservationConflicts++
		logging.Trace("reservation busy",
			"router", c.Name(), "flit", f.String(), "out", dir.String())

		return false
	}

	c.reservations.Reserve(in, out)
	c.ports[in.Port].headForwarded[in.VC] = false
	c.stats.Reservations++

	tracing.AddTaskStep(c.flitTaskID(f), c, "reserved_"+dir.String())

	return true
}

func (c *Comp) outputLoad(d routing.Direction) int {
	load := 0
	for _, b := range c.ports[d].egress {
		load += b.Size()
	}

	return load
}

func (c *Comp) forward() (madeProgress bool) {
	var used [routing.NumDirections]bool

	for _, p := range c.rr.Order() {
		pc := c.ports[p]

		for vc, buf := range pc.ingress {
			in := arbitration.Endpoint{Port: p, VC: vc}

			out, ok := c.reservations.Output(in)
			if !ok || used[out.Port] || buf.IsEmpty() {
				continue
			}

			dst := c.ports[out.Port]
			egress := dst.egress[out.VC]
			if !egress.CanPush() || dst.port.IsRemoteFull(out.VC) {
				continue
			}

			f := buf.Pop()
			f.HopNo++
			egress.Push(f)
			used[out.Port] = true
			madeProgress = true

			switch f.Type {
			case messaging.FlitHead:
				pc.headForwarded[vc] = true
			case messaging.FlitTail:
				c.reservations.Release(in)
			}
		}
	}

	return madeProgress
}

func (c *Comp) transmit() (madeProgress bool) {
	for _, pc := range c.ports {
		egress, f := pc.sendable(c.numVCs)
		if f == nil || !pc.port.Send(f) {
			continue
		}

		egress.Pop()
		pc.nextTxVC = (f.VC + 1) % c.numVCs
		c.stats.FlitsRouted[pc.dir]++
		madeProgress = true

		logging.Trace("flit sent",
			"router", c.Name(), "flit", f.String(), "port", pc.dir.String())

		if f.Type == messaging.FlitTail {
			tracing.EndTask(c.flitTaskID(f), c)
		}
	}

	return madeProgress
}

func (c *Comp) publishFullMasks() {
	for _, pc := range c.ports {
		pc.port.SetFull(wiring.FullMask(func(vc int) bool {
			return pc.ingress[vc].IsFull()
		}, c.numVCs))
	}
}

// sendable returns the first egress buffer, in round-robin order from
// nextTxVC, whose front flit the remote port can take this cycle.
func (pc *portComplex) sendable(
	numVCs int,
) (*sim.BoundedBuffer[*messaging.Flit], *messaging.Flit) {
	for i := 0; i < numVCs; i++ {
		vc := (pc.nextTxVC + i) % numVCs

		f, ok := pc.egress[vc].Peek()
		if ok && pc.port.CanSend(vc) {
			return pc.egress[vc], f
		}
	}

	return nil, nil
}

func (c *Comp) hasPendingFlits() bool {
	for _, pc := range c.ports {
		for vc := range pc.ingress {
			if !pc.ingress[vc].IsEmpty() || !pc.egress[vc].IsEmpty() {
				return true
			}
		}
	}

	return false
}

func (c *Comp) flitTaskID(f *messaging.Flit) string {
	return fmt.Sprintf("%s_%d_%s", f.TxnID, f.Src, c.Name())
}
