package sim

import (
	"errors"
	"fmt"
)

// ErrCycleLimit is returned by the engine when a clock reaches its cycle
// limit before the simulated system becomes idle.
var ErrCycleLimit = errors.New("cycle limit reached")

// HookPosClockTick marks the end of a clock cycle, after all signals are
// latched. The item is the cycle number.
var HookPosClockTick = &HookPos{Name: "Clock Tick"}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	// Tick advances one cycle and reports if any progress was made.
	Tick() bool
}

// A Clock drives a set of tickers in lock step. Every cycle runs in two
// phases. In the first phase every ticker reads the latched signals and
// stages its outputs. In the second phase every latch publishes the staged
// value. The clock stops when a cycle makes no progress and changes no
// signal.
type Clock struct {
	HookableBase

	name       string
	engine     EventScheduler
	tickers    []Ticker
	latches    []Latch
	cycleLimit VTimeInCycle
	cycles     VTimeInCycle
	running    bool
}

// NewClock creates a clock that schedules its ticks on the engine.
func NewClock(name string, engine EventScheduler) *Clock {
	NameMustBeValid(name)

	return &Clock{
		name:   name,
		engine: engine,
	}
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// RegisterTicker adds tickers to be ticked every cycle, in registration
// order.
func (c *Clock) RegisterTicker(t ...Ticker) {
	c.tickers = append(c.tickers, t...)
}

// RegisterLatch adds latches to be published at the end of every cycle.
func (c *Clock) RegisterLatch(l ...Latch) {
	c.latches = append(c.latches, l...)
}

// SetCycleLimit makes the clock fail with ErrCycleLimit after n cycles. Zero
// means no limit.
func (c *Clock) SetCycleLimit(n VTimeInCycle) {
	c.cycleLimit = n
}

// Cycles returns the number of cycles executed so far.
func (c *Clock) Cycles() VTimeInCycle {
	return c.cycles
}

// Start schedules a tick at the current time unless the clock is already
// running.
func (c *Clock) Start() {
	if c.running {
		return
	}

	c.running = true
	c.engine.Schedule(ScheduledEvent{
		Event:   TickEvent{Cycle: c.engine.CurrentTime()},
		Time:    c.engine.CurrentTime(),
		Handler: c,
	})
}

// Handle runs one cycle.
func (c *Clock) Handle(event any) error {
	switch e := event.(type) {
	case TickEvent:
		return c.tick(e)
	default:
		return fmt.Errorf("clock %s: unknown event type %T", c.name, event)
	}
}

func (c *Clock) tick(e TickEvent) error {
	madeProgress := false
	for _, t := range c.tickers {
		madeProgress = t.Tick() || madeProgress
	}

	changed := false
	for _, l := range c.latches {
		changed = l.Latch() || changed
	}

	c.cycles++

	if c.NumHooks() > 0 {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosClockTick,
			Item:   e.Cycle,
		})
	}

	if c.cycleLimit > 0 && c.cycles >= c.cycleLimit {
		c.running = false
		return fmt.Errorf("clock %s: %w after %d cycles",
			c.name, ErrCycleLimit, c.cycles)
	}

	if !madeProgress && !changed {
		c.running = false
		return nil
	}

	next := NextTick(e.Cycle)
	c.engine.Schedule(ScheduledEvent{
		Event:   TickEvent{Cycle: next},
		Time:    next,
		Handler: c,
	})

	return nil
}
