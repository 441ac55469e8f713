// Package arbitration keeps track of which router outputs are committed to
// which inputs and in which order inputs are served.
package arbitration

import (
	"fmt"
	"sort"

	"github.com/sarchlab/hbmnoc/sim"
)

// An Endpoint is a virtual channel of a router port.
type Endpoint struct {
	Port int
	VC   int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("port %d vc %d", e.Port, e.VC)
}

// Status is the answer of a reservation check.
type Status int

// The reservation check results.
const (
	// Available means the output can be reserved by the input.
	Available Status = iota

	// HeldByOther means another input holds the output. The caller retries
	// later.
	HeldByOther

	// AlreadyReserved means the input holds a reservation already.
	AlreadyReserved
)

func (s Status) String() string {
	switch s {
	case Available:
		return "available"
	case HeldByOther:
		return "held by other"
	case AlreadyReserved:
		return "already reserved"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// A Reservation commits an output to an input from a HEAD to its TAIL.
type Reservation struct {
	In, Out Endpoint
}

// ReservationTable records the live reservations of a router. An input holds
// at most one reservation and an output is held by at most one input.
type ReservationTable struct {
	where string
	byIn  map[Endpoint]Endpoint
	byOut map[Endpoint]Endpoint
}

// NewReservationTable creates an empty table. Where names the owner in fatal
// errors.
func NewReservationTable(where string) *ReservationTable {
	return &ReservationTable{
		where: where,
		byIn:  make(map[Endpoint]Endpoint),
		byOut: make(map[Endpoint]Endpoint),
	}
}

// Check tells if in could reserve out.
func (t *ReservationTable) Check(in, out Endpoint) Status {
	if _, ok := t.byIn[in]; ok {
		return AlreadyReserved
	}

	if holder, ok := t.byOut[out]; ok && holder != in {
		return HeldByOther
	}

	return Available
}

// Reserve commits out to in. Reserving for an input that already holds a
// reservation, or an output held by another input, is fatal.
func (t *ReservationTable) Reserve(in, out Endpoint) {
	switch t.Check(in, out) {
	case AlreadyReserved:
		sim.Fatalf(t.where, sim.DuplicateReservation,
			"%s already reserved %s", in, t.byIn[in])
	case HeldByOther:
		sim.Fatalf(t.where, sim.DuplicateReservation,
			"%s is held by %s, cannot reserve for %s", out, t.byOut[out], in)
	}

	t.byIn[in] = out
	t.byOut[out] = in
}

// Release removes the reservation of in.
func (t *ReservationTable) Release(in Endpoint) {
	out, ok := t.byIn[in]
	if !ok {
		panic(fmt.Sprintf("%s: releasing %s without reservation",
			t.where, in))
	}

	delete(t.byIn, in)
	delete(t.byOut, out)
}

// Output returns the output reserved by in.
func (t *ReservationTable) Output(in Endpoint) (Endpoint, bool) {
	out, ok := t.byIn[in]
	return out, ok
}

// Holder returns the input that holds out.
func (t *ReservationTable) Holder(out Endpoint) (Endpoint, bool) {
	in, ok := t.byOut[out]
	return in, ok
}

// Size returns the number of live reservations.
func (t *ReservationTable) Size() int {
	return len(t.byIn)
}

// Reservations lists the live reservations ordered by input.
func (t *ReservationTable) Reservations() []Reservation {
	list := make([]Reservation, 0, len(t.byIn))
	for in, out := range t.byIn {
		list = append(list, Reservation{In: in, Out: out})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].In.Port != list[j].In.Port {
			return list[i].In.Port < list[j].In.Port
		}

		return list[i].In.VC < list[j].In.VC
	})

	return list
}
