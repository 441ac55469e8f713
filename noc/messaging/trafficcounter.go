package messaging

import (
	"github.com/sarchlab/hbmnoc/sim"
)

// A TrafficCounter counts the flits and payload bytes that pass a hook
// position, for example the send side of a link.
type TrafficCounter struct {
	Pos *sim.HookPos

	Flits      uint64
	TotalBytes uint64
}

// Func adds the traffic of a flit to the counter
func (c *TrafficCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos != c.Pos {
		return
	}

	f, ok := ctx.Item.(*Flit)
	if !ok {
		return
	}

	c.Flits++

	if f.Type == FlitBody {
		c.TotalBytes += uint64(f.ValidLen)
	}
}
