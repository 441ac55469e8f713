package analysis

import (
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

// WireAnalyzer is a hook that counts the flits and payload bytes sent over a
// wire in each period.
type WireAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	wire   *wiring.Wire
	period sim.VTimeInCycle

	periodStart sim.VTimeInCycle
	counter     messaging.TrafficCounter
}

// Func counts a flit sent on the wire.
func (h *WireAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != wiring.HookPosWireSend {
		return
	}

	now := h.CurrentTime()
	if now >= h.periodStart+h.period {
		h.report(h.periodStart + h.period)
		h.periodStart = periodStartTime(now, h.period)
	}

	h.counter.Func(ctx)
}

func (h *WireAnalyzer) report(end sim.VTimeInCycle) {
	if h.counter.Flits == 0 {
		return
	}

	entry := PerfAnalyzerEntry{
		Start:     uint64(h.periodStart),
		End:       uint64(end),
		Where:     h.wire.Name(),
		EntryType: "Wire",
	}

	entry.What = "Flits"
	entry.Value = float64(h.counter.Flits)
	entry.Unit = "flit"
	h.AddDataEntry(entry)

	entry.What = "Payload"
	entry.Value = float64(h.counter.TotalBytes)
	entry.Unit = "B"
	h.AddDataEntry(entry)

	h.counter.Flits = 0
	h.counter.TotalBytes = 0
}

func (h *WireAnalyzer) summarize() {
	now := h.CurrentTime()
	end := min(h.periodStart+h.period, now)

	if end > h.periodStart {
		h.report(end)
	}
}

// WireAnalyzerBuilder can build a WireAnalyzer.
type WireAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	period     sim.VTimeInCycle
	wire       *wiring.Wire
}

// MakeWireAnalyzerBuilder creates a WireAnalyzerBuilder.
func MakeWireAnalyzerBuilder() WireAnalyzerBuilder {
	return WireAnalyzerBuilder{
		period: 1000,
	}
}

// WithPerfLogger sets the PerfLogger to use.
func (b WireAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) WireAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithTimeTeller sets the TimeTeller to use.
func (b WireAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) WireAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithPeriod sets the period to use.
func (b WireAnalyzerBuilder) WithPeriod(
	period sim.VTimeInCycle,
) WireAnalyzerBuilder {
	b.period = period
	return b
}

// WithWire sets the wire to watch.
func (b WireAnalyzerBuilder) WithWire(w *wiring.Wire) WireAnalyzerBuilder {
	b.wire = w
	return b
}

// Build creates a WireAnalyzer.
func (b WireAnalyzerBuilder) Build() *WireAnalyzer {
	if b.perfLogger == nil {
		panic("perfLogger is not set")
	}

	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.wire == nil {
		panic("wire is not set")
	}

	if b.period == 0 {
		panic("period must be positive")
	}

	return &WireAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		wire:       b.wire,
		period:     b.period,
		counter:    messaging.TrafficCounter{Pos: wiring.HookPosWireSend},
	}
}
