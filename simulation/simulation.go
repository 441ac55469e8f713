// Package simulation assembles the engine, the data recorder, the tracer and
// the monitor that a simulation run shares.
package simulation

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/datarecording"
	"github.com/sarchlab/hbmnoc/monitoring"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id         string
	engine     *sim.SerialEngine
	monitorURL string

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	components    []sim.Component
	compNameIndex map[string]int
	terminated    bool
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *sim.SerialEngine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, if any.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// GetVisTracer returns the tracer used in the simulation.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RecordExecInfo adds a property to the exec_info table.
func (s *Simulation) RecordExecInfo(property, value string) {
	s.execRecorder.Record(property, value)
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// RegisterMesh registers every component of the mesh. The monitor, if any,
// also counts the traffic on the links and publishes the mesh statistics.
func (s *Simulation) RegisterMesh(m *mesh.Mesh) {
	for _, c := range m.Components() {
		s.RegisterComponent(c)
	}

	s.RecordExecInfo("Mesh", m.String())

	if s.monitor == nil {
		return
	}

	s.monitor.RegisterClock(m.Clock)

	for _, w := range m.Wires {
		s.monitor.RegisterWire(w)
	}

	s.monitor.RegisterStats("hbm", func() any { return m.Memory.Stats() })
	s.monitor.RegisterStats("flits_routed",
		func() any { return m.TotalFlitsRouted() })

	for _, c := range m.Ctrls {
		ctrl := c
		s.monitor.RegisterStats(ctrl.Name(), func() any { return ctrl.Stats() })
	}
}

// TraceComponent sends the tasks of the named component to the DB tracer.
func (s *Simulation) TraceComponent(name string) error {
	c := s.GetComponentByName(name)
	if c == nil {
		return fmt.Errorf("component %s not registered", name)
	}

	tracing.CollectTrace(c, s.visTracer)

	return nil
}

// Components returns all the registered components, in registration order.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Terminate writes the unfinished traces and the exec info and closes the
// data recorder. Calling it twice has no effect.
func (s *Simulation) Terminate() {
	if s.terminated {
		return
	}

	s.terminated = true

	s.visTracer.Terminate()
	s.execRecorder.End()

	if err := s.dataRecorder.Close(); err != nil {
		panic(err)
	}
}
