package traffic

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
	"github.com/sarchlab/hbmnoc/sim"
)

// readShare is the probability that a transaction to the HBM is a read.
const readShare = 0.5

// A Generator creates transactions following a pattern.
//
// The HBM is split in two halves. Writes take consecutive slots of the lower
// half, so that they do not overlap until the half wraps around. Reads pick
// random ranges of the upper half, which no generated write touches.
type Generator struct {
	topo    routing.Topology
	pattern Pattern
	rng     *rand.Rand

	minLen, maxLen uint32

	half   uint64
	cursor uint64
}

// NewGenerator creates a generator from the traffic parameters of a
// configuration.
func NewGenerator(cfg config.Config) (*Generator, error) {
	topo := routing.Topology{Width: cfg.MeshWidth, Height: cfg.MeshHeight}

	p, err := PatternByName(cfg.TrafficPattern, topo, cfg.Hotspots)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		topo:    topo,
		pattern: p,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		minLen:  max(cfg.MinTxnLen, 1),
		maxLen:  max(cfg.MaxTxnLen, 1),
		half:    cfg.HBMSize / 2,
	}

	if uint64(g.maxLen) > g.half {
		return nil, fmt.Errorf("%w: transactions of %d bytes do not fit "+
			"half of a %d byte HBM", config.ErrInvalidConfig, g.maxLen, cfg.HBMSize)
	}

	return g, nil
}

// Pattern returns the pattern that picks destinations.
func (g *Generator) Pattern() Pattern {
	return g.pattern
}

// ReadRange returns the address range that reads are drawn from.
func (g *Generator) ReadRange() (lo, hi uint64) {
	return g.half, 2 * g.half
}

// Next creates a transaction from src. It returns false if the pattern gives
// src nothing to send.
func (g *Generator) Next(src int) (*messaging.Transaction, bool) {
	dst := g.pattern.Destination(src, g.rng)
	if dst == src {
		return nil, false
	}

	length := g.minLen + uint32(g.rng.Intn(int(g.maxLen-g.minLen)+1))
	txn := &messaging.Transaction{
		ID:  sim.GetIDGenerator().Generate(),
		Cmd: mem.CmdWrite,
		Src: src,
		Dst: dst,
		Len: length,
	}

	switch {
	case dst != messaging.HBMNodeID:
		txn.Data = g.randomData(length)
	case g.rng.Float64() < readShare:
		txn.Cmd = mem.CmdRead
		txn.Addr = g.half + uint64(g.rng.Int63n(int64(g.half-uint64(length)+1)))
	default:
		txn.Addr = g.allocate(length)
		txn.Data = g.randomData(length)
	}

	return txn, true
}

func (g *Generator) allocate(length uint32) uint64 {
	if g.cursor+uint64(length) > g.half {
		g.cursor = 0
	}

	addr := g.cursor
	g.cursor += uint64(length)

	return addr
}

func (g *Generator) randomData(length uint32) []byte {
	data := make([]byte, length)
	g.rng.Read(data)

	return data
}
