// Package routing decides which output ports a flit may take on a 2D mesh.
package routing

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/noc/messaging"
)

// Direction identifies a router port.
type Direction int

// The router ports. HBM is the boundary port of the west column routers that
// leads to the memory.
const (
	North Direction = iota
	East
	South
	West
	Local
	HBM
	NumDirections
)

var directionNames = [...]string{"North", "East", "South", "West", "Local", "HBM"}

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return fmt.Sprintf("Direction(%d)", int(d))
	}

	return directionNames[d]
}

// Opposite returns the port on the neighbor that faces this port.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		return d
	}
}

// Coord is the position of a router in the mesh.
type Coord struct {
	X, Y int
}

// HBMCoord stands for the memory endpoint, which has no mesh position.
var HBMCoord = Coord{X: -1, Y: -1}

// IsHBM tells if the coordinate stands for the memory endpoint.
func (c Coord) IsHBM() bool {
	return c == HBMCoord
}

func (c Coord) String() string {
	if c.IsHBM() {
		return "(HBM)"
	}

	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Topology maps node ids to mesh coordinates. Node (x, y) has id y*Width+x.
type Topology struct {
	Width, Height int
}

// NumNodes returns the number of mesh nodes.
func (t Topology) NumNodes() int {
	return t.Width * t.Height
}

// Coord returns the coordinate of a node.
func (t Topology) Coord(id int) Coord {
	if id == messaging.HBMNodeID {
		return HBMCoord
	}

	if id < 0 || id >= t.NumNodes() {
		panic(fmt.Sprintf("node %d is outside a %dx%d mesh",
			id, t.Width, t.Height))
	}

	return Coord{X: id % t.Width, Y: id / t.Width}
}

// ID returns the node id at a coordinate.
func (t Topology) ID(c Coord) int {
	if c.IsHBM() {
		return messaging.HBMNodeID
	}

	return c.Y*t.Width + c.X
}

// Neighbor returns the coordinate reached by leaving c through d, and false
// if that leaves the mesh.
func (t Topology) Neighbor(c Coord, d Direction) (Coord, bool) {
	n := c

	switch d {
	case North:
		n.Y--
	case South:
		n.Y++
	case East:
		n.X++
	case West:
		n.X--
	default:
		return c, false
	}

	if n.X < 0 || n.Y < 0 || n.X >= t.Width || n.Y >= t.Height {
		return c, false
	}

	return n, true
}
