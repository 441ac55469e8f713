package sim

import "log"

// VTimeInCycle is the simulated time measured in cycles of the global clock.
type VTimeInCycle uint64

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks in seconds.
func (f Freq) Period() float64 {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return 1.0 / float64(f)
}

// Seconds converts a number of cycles to seconds.
func (f Freq) Seconds(cycles VTimeInCycle) float64 {
	return float64(cycles) * f.Period()
}

// NextTick returns the cycle that follows now.
func NextTick(now VTimeInCycle) VTimeInCycle {
	return now + 1
}

// NCyclesLater returns the cycle that is n cycles after now.
func NCyclesLater(n int, now VTimeInCycle) VTimeInCycle {
	if n < 0 {
		log.Panic("cannot schedule in the past")
	}

	return now + VTimeInCycle(n)
}
