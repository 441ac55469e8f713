package analysis

import (
	"github.com/sarchlab/hbmnoc/sim"
)

// BufferAnalyzer can periodically record the buffer level of a buffer. The
// level is averaged over the cycles of each period.
type BufferAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	buf    sim.Buffer
	period sim.VTimeInCycle

	lastTime     sim.VTimeInCycle
	lastBufLevel int
	levelCycles  float64
}

// Func is a function that records buffer level change.
func (b *BufferAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBufPush && ctx.Pos != sim.HookPosBufPop {
		return
	}

	b.advance(b.CurrentTime())
	b.lastBufLevel = b.buf.Size()
}

// advance accounts the cycles from lastTime to now at the last level and
// reports every period that ends on the way.
func (b *BufferAnalyzer) advance(now sim.VTimeInCycle) {
	for end := periodEndTime(b.lastTime, b.period); end <= now; end += b.period {
		b.levelCycles += float64(b.lastBufLevel) * float64(end-b.lastTime)
		b.report(end-b.period, end)
		b.lastTime = end
	}

	b.levelCycles += float64(b.lastBufLevel) * float64(now-b.lastTime)
	b.lastTime = now
}

func (b *BufferAnalyzer) report(start, end sim.VTimeInCycle) {
	avgLevel := b.levelCycles / float64(end-start)
	b.levelCycles = 0

	if avgLevel == 0 {
		return
	}

	b.PerfLogger.AddDataEntry(PerfAnalyzerEntry{
		Start:     uint64(start),
		End:       uint64(end),
		Where:     b.buf.Name(),
		What:      "Level",
		EntryType: "Buffer",
		Value:     avgLevel,
	})
}

// summarize reports the unfinished period.
func (b *BufferAnalyzer) summarize() {
	now := b.CurrentTime()
	b.advance(now)

	start := periodStartTime(now, b.period)
	if now > start {
		b.report(start, now)
	}
}

func periodStartTime(t, period sim.VTimeInCycle) sim.VTimeInCycle {
	return t / period * period
}

func periodEndTime(t, period sim.VTimeInCycle) sim.VTimeInCycle {
	return periodStartTime(t, period) + period
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	period     sim.VTimeInCycle
	buffer     sim.Buffer
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{
		period: 1000,
	}
}

// WithPerfLogger sets the PerfLogger to use.
func (b BufferAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) BufferAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithTimeTeller sets the TimeTeller to use.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithPeriod sets the period to use.
func (b BufferAnalyzerBuilder) WithPeriod(
	period sim.VTimeInCycle,
) BufferAnalyzerBuilder {
	b.period = period
	return b
}

// WithBuffer sets the buffer to use.
func (b BufferAnalyzerBuilder) WithBuffer(
	buffer sim.Buffer,
) BufferAnalyzerBuilder {
	b.buffer = buffer
	return b
}

// Build creates a BufferAnalyzer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.perfLogger == nil {
		panic("perfLogger is not set")
	}

	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.buffer == nil {
		panic("buffer is not set")
	}

	if b.period == 0 {
		panic("period must be positive")
	}

	return &BufferAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		buf:        b.buffer,
		period:     b.period,
	}
}
