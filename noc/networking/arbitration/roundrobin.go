package arbitration

import "log"

// A RoundRobin pointer names the port at which arbitration starts. It moves
// to the next port once every cadence ticks.
type RoundRobin struct {
	n       int
	cadence int
	start   int
	ticks   int
}

// NewRoundRobin creates a pointer over n ports.
func NewRoundRobin(n, cadence int) *RoundRobin {
	if n <= 0 || cadence <= 0 {
		log.Panicf("round robin needs positive size and cadence, got %d, %d",
			n, cadence)
	}

	return &RoundRobin{n: n, cadence: cadence}
}

// Start returns the current start port.
func (r *RoundRobin) Start() int {
	return r.start
}

// Order returns all ports beginning at the start port.
func (r *RoundRobin) Order() []int {
	order := make([]int, r.n)
	for i := range order {
		order[i] = (r.start + i) % r.n
	}

	return order
}

// Tick counts one cycle and moves the pointer when the cadence is reached.
func (r *RoundRobin) Tick() {
	r.ticks++

	if r.ticks%r.cadence == 0 {
		r.start = (r.start + 1) % r.n
	}
}
