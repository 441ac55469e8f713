package niu

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// Builder can build NIUs.
type Builder struct {
	timeTeller  sim.TimeTeller
	nodeID      int
	flitSize    int
	numVCs      int
	bufferDepth int
	queueDepth  int
	cadence     int
	receiver    Receiver
	memory      mem.Memory
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		flitSize:    128,
		numVCs:      1,
		bufferDepth: 4,
		queueDepth:  4,
		cadence:     2,
	}
}

// WithConfig takes the flit, buffer and queue parameters from a
// configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.flitSize = cfg.FlitSize
	b.numVCs = cfg.NumVCs
	b.bufferDepth = cfg.BufferDepth
	b.queueDepth = cfg.NIUQueueDepth
	b.cadence = cfg.ReservationCadence

	return b
}

// WithEngine sets the engine that tells the time.
func (b Builder) WithEngine(t sim.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithNodeID sets the node that the NIU serves.
func (b Builder) WithNodeID(id int) Builder {
	b.nodeID = id
	return b
}

// WithFlitSize sets the payload capacity of a flit.
func (b Builder) WithFlitSize(n int) Builder {
	b.flitSize = n
	return b
}

// WithNumVCs sets the number of virtual channels.
func (b Builder) WithNumVCs(n int) Builder {
	b.numVCs = n
	return b
}

// WithBufferDepth sets the capacity of every receive buffer.
func (b Builder) WithBufferDepth(n int) Builder {
	b.bufferDepth = n
	return b
}

// WithQueueDepth sets how many transactions may wait for injection.
func (b Builder) WithQueueDepth(n int) Builder {
	b.queueDepth = n
	return b
}

// WithReceiver sets the collaborator that takes arriving transactions.
func (b Builder) WithReceiver(r Receiver) Builder {
	b.receiver = r
	return b
}

// WithMemory sets the memory that a legacy NIU serves requests from.
func (b Builder) WithMemory(m mem.Memory) Builder {
	b.memory = m
	return b
}

// Build creates a new NIU.
func (b Builder) Build(name string) *Comp {
	b.mustHaveEngine()

	if b.numVCs <= 0 || b.numVCs > 64 {
		panic(fmt.Sprintf("NIU cannot have %d VCs", b.numVCs))
	}

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		nodeID:        b.nodeID,
		flitSize:      b.flitSize,
		timeTeller:    b.timeTeller,
		receiver:      b.receiver,
		port:          wiring.NewPort(name + ".Port"),
		queue: sim.NewBuffer[*messaging.Transaction](
			name+".TxnQueue", b.queueDepth),
		inbounds: make([]*inbound, b.numVCs),
		rr:       arbitration.NewRoundRobin(b.numVCs, b.cadence),
	}

	for vc := range c.inbounds {
		bufName := sim.BuildNameWithIndex(name, "RxBuf", vc)
		c.inbounds[vc] = &inbound{
			buf:         sim.NewBuffer[*messaging.Flit](bufName, b.bufferDepth),
			reassembler: messaging.NewReassembler(bufName, b.flitSize),
		}
	}

	return c
}

// BuildLegacy creates a new legacy NIU. A legacy NIU uses one virtual
// channel.
func (b Builder) BuildLegacy(name string) *LegacyComp {
	b.mustHaveEngine()

	c := &LegacyComp{
		ComponentBase: sim.NewComponentBase(name),
		nodeID:        b.nodeID,
		timeTeller:    b.timeTeller,
		memory:        b.memory,
		port:          wiring.NewPort(name + ".Port"),
	}

	return c
}

func (b Builder) mustHaveEngine() {
	if b.timeTeller == nil {
		panic("NIU requires an engine")
	}
}
