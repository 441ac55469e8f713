package mesh

import (
	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/logging"
	"github.com/sarchlab/hbmnoc/mem/hbm"
	"github.com/sarchlab/hbmnoc/mem/hbmctrl"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
	"github.com/sarchlab/hbmnoc/noc/networking/switching/router"
	"github.com/sarchlab/hbmnoc/noc/niu"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// Builder can build meshes.
type Builder struct {
	engine sim.Engine
	cfg    config.Config
	legacy bool
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: config.Default()}
}

// WithEngine sets the engine that the clock schedules its ticks on.
func (b Builder) WithEngine(e sim.Engine) Builder {
	b.engine = e
	return b
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLegacyNIUs makes every tile use a legacy NIU that serves requests
// from the shared HBM.
func (b Builder) WithLegacyNIUs() Builder {
	b.legacy = true
	return b
}

// Build creates the mesh. The clock is created but not started.
func (b Builder) Build(name string) *Mesh {
	b.mustBeValid()

	alg, err := routing.AlgorithmByName(b.cfg.RoutingAlgorithm)
	if err != nil {
		panic(err)
	}

	sel, err := routing.SelectorByName(b.cfg.SelectionStrategy, b.cfg.Seed)
	if err != nil {
		panic(err)
	}

	m := &Mesh{
		Topology: routing.Topology{
			Width:  b.cfg.MeshWidth,
			Height: b.cfg.MeshHeight,
		},
		Clock: sim.NewClock(sim.BuildName(name, "Clock"), b.engine),
		Memory: hbm.MakeBuilder().
			WithConfig(b.cfg).
			Build(sim.BuildName(name, "HBM")),
	}

	b.buildRouters(name, m, alg, sel)
	b.linkRouters(m)
	b.attachTiles(name, m)
	b.attachCtrls(name, m)
	b.register(m)

	logging.Trace("mesh built", "mesh", name,
		"width", m.Topology.Width, "height", m.Topology.Height,
		"wires", len(m.Wires))

	return m
}

func (b Builder) mustBeValid() {
	if b.engine == nil {
		panic("mesh requires an engine")
	}

	if err := b.cfg.Validate(); err != nil {
		panic(err)
	}
}

func (b Builder) buildRouters(
	name string,
	m *Mesh,
	alg routing.Algorithm,
	sel routing.Selector,
) {
	rb := router.MakeBuilder().
		WithConfig(b.cfg).
		WithAlgorithm(alg).
		WithSelector(sel)

	m.Routers = make([]*router.Comp, m.NumNodes())
	for id := range m.Routers {
		m.Routers[id] = rb.WithNodeID(id).
			Build(sim.BuildNameWithIndex(name, "Router", id))
	}
}

// linkRouters connects every router to its east and south neighbors, which
// covers every mesh link exactly once.
func (b Builder) linkRouters(m *Mesh) {
	for id, r := range m.Routers {
		cur := m.Topology.Coord(id)

		for _, d := range []routing.Direction{routing.East, routing.South} {
			n, ok := m.Topology.Neighbor(cur, d)
			if !ok {
				continue
			}

			neighbor := m.Routers[m.Topology.ID(n)]
			m.Wires = append(m.Wires,
				wiring.Connect(r.Port(d), neighbor.Port(d.Opposite()))...)
		}
	}
}

func (b Builder) attachTiles(name string, m *Mesh) {
	nb := niu.MakeBuilder().
		WithConfig(b.cfg).
		WithEngine(b.engine).
		WithMemory(m.Memory)

	for id, r := range m.Routers {
		nb = nb.WithNodeID(id)
		niuName := sim.BuildNameWithIndex(name, "NIU", id)

		var port *wiring.Port
		if b.legacy {
			n := nb.BuildLegacy(niuName)
			m.LegacyNIUs = append(m.LegacyNIUs, n)
			port = n.Port()
		} else {
			n := nb.Build(niuName)
			m.NIUs = append(m.NIUs, n)
			port = n.Port()
		}

		m.Wires = append(m.Wires,
			wiring.Connect(r.Port(routing.Local), port)...)
	}
}

func (b Builder) attachCtrls(name string, m *Mesh) {
	cb := hbmctrl.MakeBuilder().
		WithConfig(b.cfg).
		WithEngine(b.engine).
		WithMemory(m.Memory)

	for y := 0; y < m.Topology.Height; y++ {
		r := m.Routers[m.Topology.ID(routing.Coord{X: 0, Y: y})]
		c := cb.Build(sim.BuildNameWithIndex(name, "HBMCtrl", y))

		m.Ctrls = append(m.Ctrls, c)
		m.Wires = append(m.Wires,
			wiring.Connect(r.Port(routing.HBM), c.Port())...)
	}
}

func (b Builder) register(m *Mesh) {
	for _, c := range m.Components() {
		m.Clock.RegisterTicker(c)
	}

	for _, w := range m.Wires {
		m.Clock.RegisterLatch(w)
	}

	if b.cfg.CycleLimit > 0 {
		m.Clock.SetCycleLimit(sim.VTimeInCycle(b.cfg.CycleLimit))
	}
}
