package routing

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAlgorithm is returned for an unknown routing algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown routing algorithm")

// An Algorithm returns the candidate output ports of a flit at router cur
// heading to dst. It must be stateless and never return an empty slice.
type Algorithm interface {
	Name() string
	Route(cur, dst Coord) []Direction
}

var algorithms = map[string]Algorithm{
	"xy":         xy{},
	"yx":         yx{},
	"west_first": westFirst{},
}

// AlgorithmByName returns the routing algorithm registered under name.
func AlgorithmByName(name string) (Algorithm, error) {
	a, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}

	return a, nil
}

// AlgorithmNames lists the registered routing algorithms.
func AlgorithmNames() []string {
	names := make([]string, 0, len(algorithms))
	for n := range algorithms {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// towardsHBM walks west to column 0 and leaves through the boundary port.
func towardsHBM(cur Coord) []Direction {
	if cur.X > 0 {
		return []Direction{West}
	}

	return []Direction{HBM}
}

type xy struct{}

func (xy) Name() string { return "xy" }

func (xy) Route(cur, dst Coord) []Direction {
	switch {
	case dst.IsHBM():
		return towardsHBM(cur)
	case dst.X > cur.X:
		return []Direction{East}
	case dst.X < cur.X:
		return []Direction{West}
	case dst.Y > cur.Y:
		return []Direction{South}
	case dst.Y < cur.Y:
		return []Direction{North}
	default:
		return []Direction{Local}
	}
}

type yx struct{}

func (yx) Name() string { return "yx" }

func (yx) Route(cur, dst Coord) []Direction {
	switch {
	case dst.IsHBM():
		return towardsHBM(cur)
	case dst.Y > cur.Y:
		return []Direction{South}
	case dst.Y < cur.Y:
		return []Direction{North}
	case dst.X > cur.X:
		return []Direction{East}
	case dst.X < cur.X:
		return []Direction{West}
	default:
		return []Direction{Local}
	}
}

// westFirst takes all west hops first and then adapts among the remaining
// minimal directions.
type westFirst struct{}

func (westFirst) Name() string { return "west_first" }

func (westFirst) Route(cur, dst Coord) []Direction {
	if dst.IsHBM() {
		return towardsHBM(cur)
	}

	if dst.X < cur.X {
		return []Direction{West}
	}

	dirs := make([]Direction, 0, 2)

	if dst.X > cur.X {
		dirs = append(dirs, East)
	}

	if dst.Y > cur.Y {
		dirs = append(dirs, South)
	}

	if dst.Y < cur.Y {
		dirs = append(dirs, North)
	}

	if len(dirs) == 0 {
		dirs = append(dirs, Local)
	}

	return dirs
}
