// Package mesh assembles routers, network interface units, HBM controllers
// and the shared HBM into a clocked 2D mesh.
package mesh

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/mem/hbm"
	"github.com/sarchlab/hbmnoc/mem/hbmctrl"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
	"github.com/sarchlab/hbmnoc/noc/networking/switching/router"
	"github.com/sarchlab/hbmnoc/noc/niu"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// Mesh is a built network. Routers, NIUs and legacy NIUs are indexed by node
// id. Ctrls[y] serves the west column router of row y.
type Mesh struct {
	Topology routing.Topology
	Clock    *sim.Clock
	Memory   *hbm.Comp

	Routers    []*router.Comp
	NIUs       []*niu.Comp
	LegacyNIUs []*niu.LegacyComp
	Ctrls      []*hbmctrl.Comp
	Wires      []*wiring.Wire
}

// NumNodes returns the number of tiles.
func (m *Mesh) NumNodes() int {
	return m.Topology.NumNodes()
}

// IsLegacy tells if the tiles use legacy NIUs.
func (m *Mesh) IsLegacy() bool {
	return len(m.LegacyNIUs) > 0
}

// RegisterTicker lets the mesh clock tick additional components, such as
// traffic agents. They tick after the network components of the same cycle.
func (m *Mesh) RegisterTicker(t ...sim.Ticker) {
	m.Clock.RegisterTicker(t...)
}

// Components returns every ticking component of the mesh.
func (m *Mesh) Components() []sim.Component {
	comps := make([]sim.Component, 0,
		len(m.Routers)+len(m.NIUs)+len(m.LegacyNIUs)+len(m.Ctrls))

	for _, r := range m.Routers {
		comps = append(comps, r)
	}

	for _, n := range m.NIUs {
		comps = append(comps, n)
	}

	for _, n := range m.LegacyNIUs {
		comps = append(comps, n)
	}

	for _, c := range m.Ctrls {
		comps = append(comps, c)
	}

	return comps
}

// Buffers returns every buffer of the mesh.
func (m *Mesh) Buffers() []sim.Buffer {
	var bufs []sim.Buffer

	for _, r := range m.Routers {
		bufs = append(bufs, r.Buffers()...)
	}

	for _, n := range m.NIUs {
		bufs = append(bufs, n.Buffers()...)
	}

	for _, c := range m.Ctrls {
		bufs = append(bufs, c.Buffers()...)
	}

	return bufs
}

// TotalFlitsRouted sums the flits sent by all the routers.
func (m *Mesh) TotalFlitsRouted() uint64 {
	total := uint64(0)
	for _, r := range m.Routers {
		total += r.Stats().TotalFlitsRouted()
	}

	return total
}

func (m *Mesh) String() string {
	return fmt.Sprintf("%dx%d mesh with %d HBM controllers",
		m.Topology.Width, m.Topology.Height, len(m.Ctrls))
}
