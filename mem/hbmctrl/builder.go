package hbmctrl

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/arbitration"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// Builder can build HBM controllers.
type Builder struct {
	timeTeller  sim.TimeTeller
	memory      mem.Memory
	flitSize    int
	numVCs      int
	bufferDepth int
	txDepth     int
	cadence     int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		flitSize:    128,
		numVCs:      1,
		bufferDepth: 4,
		txDepth:     2,
		cadence:     2,
	}
}

// WithConfig takes the flit, buffer and arbitration parameters from a
// configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.flitSize = cfg.FlitSize
	b.numVCs = cfg.NumVCs
	b.bufferDepth = cfg.BufferDepth
	b.txDepth = cfg.EgressDepth
	b.cadence = cfg.ReservationCadence

	return b
}

// WithEngine sets the engine that tells the time.
func (b Builder) WithEngine(t sim.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithMemory sets the memory that serves the accesses.
func (b Builder) WithMemory(m mem.Memory) Builder {
	b.memory = m
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

// WithBufferDepth sets the capacity of each receive buffer.
func (b Builder) WithBufferDepth(n int) Builder {
	b.bufferDepth = n
	return b
}

// WithTxDepth sets the capacity of the transmit buffer.
func (b Builder) WithTxDepth(n int) Builder {
	b.txDepth = n
	return b
}

// Build creates a new controller.
func (b Builder) Build(name string) *Comp {
	if b.timeTeller == nil {
		panic("HBM controller requires an engine")
	}

	if b.memory == nil {
		panic("HBM controller requires a memory")
	}

	if b.numVCs <= 0 || b.numVCs > 64 {
		panic(fmt.Sprintf("HBM controller cannot have %d VCs", b.numVCs))
	}

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		timeTeller:    b.timeTeller,
		memory:        b.memory,
		flitSize:      b.flitSize,
		port:          wiring.NewPort(name + ".Port"),
		rx:            make([]*sim.BoundedBuffer[*messaging.Flit], b.numVCs),
		tx:            sim.NewBuffer[*messaging.Flit](name+".TxBuf", b.txDepth),
		rr:            arbitration.NewRoundRobin(b.numVCs, b.cadence),
	}

	for vc := range c.rx {
		c.rx[vc] = sim.NewBuffer[*messaging.Flit](
			sim.BuildNameWithIndex(name, "RxBuf", vc), b.bufferDepth)
	}

	return c
}
