package router

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// Builder can help building routers
type Builder struct {
	topo        routing.Topology
	nodeID      int
	numVCs      int
	bufferDepth int
	egressDepth int
	cadence     int
	algorithm   routing.Algorithm
	selector    routing.Selector
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		topo:        routing.Topology{Width: 1, Height: 1},
		numVCs:      1,
		bufferDepth: 4,
		egressDepth: 2,
		cadence:     2,
	}
}

// WithConfig takes the buffer, virtual channel and arbitration parameters
// from a configuration. The routing algorithm and the selection strategy
// are still set separately so that routers can share them.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.topo = routing.Topology{Width: cfg.MeshWidth, Height: cfg.MeshHeight}
	b.numVCs = cfg.NumVCs
	b.bufferDepth = cfg.BufferDepth
	b.egressDepth = cfg.EgressDepth
	b.cadence = cfg.ReservationCadence

	return b
}

// WithTopology sets the mesh that the router is part of.
func (b Builder) WithTopology(topo routing.Topology) Builder {
	b.topo = topo
	return b
}

// WithNodeID sets the node that the router serves.
func (b Builder) WithNodeID(id int) Builder {
	b.nodeID = id
	return b
}

// WithNumVCs sets the number of virtual channels.
func (b Builder) WithNumVCs(n int) Builder {
	b.numVCs = n
	return b
}

// WithBufferDepth sets the capacity of every ingress buffer.
func (b Builder) WithBufferDepth(n int) Builder {
	b.bufferDepth = n
	return b
}

// WithEgressDepth sets the capacity of every egress buffer.
func (b Builder) WithEgressDepth(n int) Builder {
	b.egressDepth = n
	return b
}

// WithReservationCadence sets how many ticks pass between two moves of the
// round-robin start port.
func (b Builder) WithReservationCadence(n int) Builder {
	b.cadence = n
	return b
}

// WithAlgorithm sets the routing algorithm.
func (b Builder) WithAlgorithm(a routing.Algorithm) Builder {
	b.algorithm = a
	return b
}

// WithSelector sets the selection strategy.
func (b Builder) WithSelector(s routing.Selector) Builder {
	b.selector = s
	return b
}

// Build creates a new router
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		nodeID:        b.nodeID,
		numVCs:        b.numVCs,
		selector:      b.selector,
		reservations:  arbitration.NewReservationTable(name),
		rr:            arbitration.NewRoundRobin(int(routing.NumDirections), b.cadence),
	}

	c.routingTable = routing.NewTable(b.topo, b.algorithm, b.topo.Coord(b.nodeID))

	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		c.ports[d] = b.buildPortComplex(name, d)
	}

	return c
}

func (b Builder) buildPortComplex(name string, d routing.Direction) *portComplex {
	portName := fmt.Sprintf("%s.%sPort", name, d)

	pc := &portComplex{
		dir:           d,
		port:          wiring.NewPort(portName),
		ingress:       make([]*sim.BoundedBuffer[*messaging.Flit], b.numVCs),
		egress:        make([]*sim.BoundedBuffer[*messaging.Flit], b.numVCs),
		headForwarded: make([]bool, b.numVCs),
	}

	for vc := range pc.ingress {
		pc.ingress[vc] = sim.NewBuffer[*messaging.Flit](
			sim.BuildNameWithIndex(portName, "IngressBuf", vc),
			b.bufferDepth)
		pc.egress[vc] = sim.NewBuffer[*messaging.Flit](
			sim.BuildNameWithIndex(portName, "EgressBuf", vc),
			b.egressDepth)
	}

	return pc
}

func (b Builder) parametersMustBeValid() {
	if b.algorithm == nil {
		panic("router requires a routing algorithm to operate")
	}

	if b.selector == nil {
		panic("router requires a selection strategy to operate")
	}

	if b.numVCs <= 0 || b.numVCs > 64 {
		panic(fmt.Sprintf("router cannot have %d VCs", b.numVCs))
	}

	if b.nodeID < 0 || b.nodeID >= b.topo.NumNodes() {
		panic(fmt.Sprintf("node %d is outside the mesh", b.nodeID))
	}
}
