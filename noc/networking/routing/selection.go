package routing

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ErrUnknownSelection is returned for an unknown selection strategy name.
var ErrUnknownSelection = errors.New("unknown selection strategy")

// A Selector picks one port out of the candidates of a routing algorithm.
// Load reports the occupancy behind an output port and start is the port at
// which the round-robin scan begins.
type Selector interface {
	Name() string
	Select(candidates []Direction, load func(Direction) int, start Direction) Direction
}

// SelectorByName creates the selection strategy registered under name. The
// seed is used by the random strategy only.
func SelectorByName(name string, seed int64) (Selector, error) {
	switch name {
	case "buffer_level":
		return bufferLevel{}, nil
	case "random":
		return &randomSelector{rng: rand.New(rand.NewSource(seed))}, nil
	case "first":
		return first{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, name)
	}
}

// SelectorNames lists the selection strategies.
func SelectorNames() []string {
	names := []string{"buffer_level", "random", "first"}
	sort.Strings(names)

	return names
}

type first struct{}

func (first) Name() string { return "first" }

func (first) Select(c []Direction, _ func(Direction) int, _ Direction) Direction {
	return c[0]
}

// bufferLevel prefers the least loaded candidate. Ties go to the candidate
// met first when scanning from start.
type bufferLevel struct{}

func (bufferLevel) Name() string { return "buffer_level" }

func (bufferLevel) Select(
	c []Direction,
	load func(Direction) int,
	start Direction,
) Direction {
	if len(c) == 1 {
		return c[0]
	}

	best := c[0]
	bestLoad := -1
	bestDist := int(NumDirections)

	for _, d := range c {
		l := load(d)
		dist := (int(d) - int(start) + int(NumDirections)) % int(NumDirections)

		if bestLoad < 0 || l < bestLoad || (l == bestLoad && dist < bestDist) {
			best, bestLoad, bestDist = d, l, dist
		}
	}

	return best
}

type randomSelector struct {
	rng *rand.Rand
}

func (*randomSelector) Name() string { return "random" }

func (s *randomSelector) Select(
	c []Direction,
	_ func(Direction) int,
	_ Direction,
) Direction {
	if len(c) == 1 {
		return c[0]
	}

	return c[s.rng.Intn(len(c))]
}
