// Package analysis summarizes buffer levels and link traffic over fixed
// periods of simulated cycles.
package analysis

import (
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// PerfAnalyzerEntry is a single entry in the performance database.
type PerfAnalyzerEntry struct {
	Start     uint64
	End       uint64
	Where     string
	What      string
	EntryType string
	Value     float64
	Unit      string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

type summarizer interface {
	summarize()
}

// PerfAnalyzer can report performance metrics during simulation.
type PerfAnalyzer struct {
	period     sim.VTimeInCycle
	timeTeller sim.TimeTeller
	backend    PerfAnalyzerBackend

	analyzers []summarizer
}

// RegisterBuffer records the average level of a buffer.
func (p *PerfAnalyzer) RegisterBuffer(buf sim.Buffer) {
	a := MakeBufferAnalyzerBuilder().
		WithTimeTeller(p.timeTeller).
		WithPerfLogger(p).
		WithPeriod(p.period).
		WithBuffer(buf).
		Build()

	buf.AcceptHook(a)
	p.analyzers = append(p.analyzers, a)
}

// RegisterWire records the traffic sent over a wire.
func (p *PerfAnalyzer) RegisterWire(w *wiring.Wire) {
	a := MakeWireAnalyzerBuilder().
		WithTimeTeller(p.timeTeller).
		WithPerfLogger(p).
		WithPeriod(p.period).
		WithWire(w).
		Build()

	w.AcceptHook(a)
	p.analyzers = append(p.analyzers, a)
}

// RegisterMesh registers all the buffers and wires of a mesh.
func (p *PerfAnalyzer) RegisterMesh(m *mesh.Mesh) {
	for _, b := range m.Buffers() {
		p.RegisterBuffer(b)
	}

	for _, w := range m.Wires {
		p.RegisterWire(w)
	}
}

// AddDataEntry adds a data entry to the backend.
func (p *PerfAnalyzer) AddDataEntry(entry PerfAnalyzerEntry) {
	p.backend.AddDataEntry(entry)
}

// Summarize closes the current period of every analyzer and flushes the
// backend. It is called once the simulation is over.
func (p *PerfAnalyzer) Summarize() {
	for _, a := range p.analyzers {
		a.summarize()
	}

	p.backend.Flush()
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	period     sim.VTimeInCycle
	timeTeller sim.TimeTeller
	backend    PerfAnalyzerBackend
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{
		period: 1000,
	}
}

// WithPeriod sets the number of cycles summarized by one entry.
func (b PerfAnalyzerBuilder) WithPeriod(
	period sim.VTimeInCycle,
) PerfAnalyzerBuilder {
	b.period = period
	return b
}

// WithTimeTeller sets the clock source.
func (b PerfAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) PerfAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithBackend sets where the entries are written.
func (b PerfAnalyzerBuilder) WithBackend(
	backend PerfAnalyzerBackend,
) PerfAnalyzerBuilder {
	b.backend = backend
	return b
}

// Build creates a PerfAnalyzer.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	if b.period == 0 {
		panic("period must be positive")
	}

	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.backend == nil {
		panic("backend is not set")
	}

	return &PerfAnalyzer{
		period:     b.period,
		timeTeller: b.timeTeller,
		backend:    b.backend,
	}
}
