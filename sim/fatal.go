package sim

import (
	"errors"
	"fmt"
)

// ViolationKind names the invariant that a FatalError reports.
type ViolationKind int

// The invariants whose violation halts a simulation.
const (
	MalformedSequence ViolationKind = iota
	LengthMismatch
	SourceMismatch
	DuplicateReservation
	AddressOutOfRange
	UnknownCommand
)

var violationNames = map[ViolationKind]string{
	MalformedSequence:    "malformed sequence",
	LengthMismatch:       "length mismatch",
	SourceMismatch:       "source mismatch",
	DuplicateReservation: "duplicate reservation",
	AddressOutOfRange:    "address out of range",
	UnknownCommand:       "unknown command",
}

func (k ViolationKind) String() string {
	name, ok := violationNames[k]
	if !ok {
		return fmt.Sprintf("violation(%d)", int(k))
	}

	return name
}

// A FatalError reports a broken protocol or model invariant. It is raised
// with a panic so that the violating component stops immediately, and turned
// back into an error by CatchFatal.
type FatalError struct {
	Where  string
	Kind   ViolationKind
	Detail string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Where, e.Kind, e.Detail)
}

// Fatalf raises a FatalError.
func Fatalf(where string, kind ViolationKind, format string, args ...any) {
	panic(&FatalError{
		Where:  where,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	})
}

// CatchFatal runs f and converts a FatalError panic into a returned error.
// Other panics propagate.
func CatchFatal(f func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		fatal, ok := r.(*FatalError)
		if !ok {
			panic(r)
		}

		err = fatal
	}()

	return f()
}

// IsViolation tells if err carries a FatalError of the given kind.
func IsViolation(err error, kind ViolationKind) bool {
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		return false
	}

	return fatal.Kind == kind
}
