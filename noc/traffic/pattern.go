// Package traffic generates synthetic transactions for the mesh.
package traffic

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"sort"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/routing"
)

// ErrUnknownPattern is returned for an unknown traffic pattern name.
var ErrUnknownPattern = errors.New("unknown traffic pattern")

// hotspotShare is the probability that the hotspot pattern picks a hotspot.
const hotspotShare = 0.5

// A Pattern maps a source node to a destination node. The destination may be
// messaging.HBMNodeID. A destination equal to the source means that the
// source has nothing to send under the pattern.
type Pattern interface {
	Name() string
	Destination(src int, rng *rand.Rand) int
}

// PatternByName creates the pattern registered under name.
func PatternByName(
	name string,
	topo routing.Topology,
	hotspots []int,
) (Pattern, error) {
	switch name {
	case "random":
		return uniform{topo: topo}, nil
	case "hotspot":
		if len(hotspots) == 0 {
			return nil, fmt.Errorf("%w: hotspot pattern requires hotspots",
				config.ErrInvalidConfig)
		}

		return hotspot{uniform: uniform{topo: topo}, hotspots: hotspots}, nil
	case "transpose1":
		return transpose{topo: topo, mirrored: true}, nil
	case "transpose2":
		return transpose{topo: topo}, nil
	case "bitreversal":
		return bitPattern{name: name, topo: topo, permute: bitReverse}, nil
	case "shuffle":
		return bitPattern{name: name, topo: topo, permute: shuffle}, nil
	case "butterfly":
		return bitPattern{name: name, topo: topo, permute: butterfly}, nil
	case "hbm":
		return toHBM{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
}

// PatternNames lists the traffic patterns.
func PatternNames() []string {
	names := []string{
		"random", "hotspot", "transpose1", "transpose2",
		"bitreversal", "shuffle", "butterfly", "hbm",
	}
	sort.Strings(names)

	return names
}

type uniform struct {
	topo routing.Topology
}

func (uniform) Name() string { return "random" }

func (p uniform) Destination(src int, rng *rand.Rand) int {
	n := p.topo.NumNodes()
	if n < 2 {
		return src
	}

	dst := rng.Intn(n - 1)
	if dst >= src {
		dst++
	}

	return dst
}

type hotspot struct {
	uniform
	hotspots []int
}

func (hotspot) Name() string { return "hotspot" }

func (p hotspot) Destination(src int, rng *rand.Rand) int {
	if rng.Float64() < hotspotShare {
		dst := p.hotspots[rng.Intn(len(p.hotspots))]
		if dst != src {
			return dst
		}
	}

	return p.uniform.Destination(src, rng)
}

// transpose sends (x, y) to (y, x). The mirrored variant sends it to
// (W-1-y, H-1-x). Coordinates that leave a non-square mesh are clamped.
type transpose struct {
	topo     routing.Topology
	mirrored bool
}

func (p transpose) Name() string {
	if p.mirrored {
		return "transpose1"
	}

	return "transpose2"
}

func (p transpose) Destination(src int, _ *rand.Rand) int {
	c := p.topo.Coord(src)
	d := routing.Coord{X: c.Y, Y: c.X}

	if p.mirrored {
		d = routing.Coord{X: p.topo.Width - 1 - c.Y, Y: p.topo.Height - 1 - c.X}
	}

	d.X = clamp(d.X, p.topo.Width)
	d.Y = clamp(d.Y, p.topo.Height)

	return p.topo.ID(d)
}

func clamp(v, n int) int {
	return max(0, min(v, n-1))
}

// bitPattern permutes the bits of the node id. Results outside the mesh
// fall back to the source.
type bitPattern struct {
	name    string
	topo    routing.Topology
	permute func(id, nbits int) int
}

func (p bitPattern) Name() string { return p.name }

func (p bitPattern) Destination(src int, _ *rand.Rand) int {
	n := p.topo.NumNodes()

	nbits := bits.Len(uint(n - 1))
	if nbits < 2 {
		return src
	}

	dst := p.permute(src, nbits)
	if dst >= n {
		return src
	}

	return dst
}

func bit(x, i int) int {
	return (x >> i) & 1
}

func bitReverse(id, nbits int) int {
	d := 0
	for i := 0; i < nbits; i++ {
		d |= bit(id, nbits-1-i) << i
	}

	return d
}

// shuffle rotates the id left by one bit.
func shuffle(id, nbits int) int {
	d := 0
	for i := 0; i < nbits-1; i++ {
		d |= bit(id, i) << (i + 1)
	}

	return d | bit(id, nbits-1)
}

// butterfly swaps the lowest and the highest bit.
func butterfly(id, nbits int) int {
	d := id &^ (1 | 1<<(nbits-1))
	d |= bit(id, nbits-1)
	d |= bit(id, 0) << (nbits - 1)

	return d
}

type toHBM struct{}

func (toHBM) Name() string { return "hbm" }

func (toHBM) Destination(int, *rand.Rand) int {
	return messaging.HBMNodeID
}
