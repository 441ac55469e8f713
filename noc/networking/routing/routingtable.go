package routing

// Table finds the candidate output ports of one router by destination node.
// Routes are computed by the algorithm on first use and cached.
type Table interface {
	FindPorts(dst int) []Direction
	DefineRoute(dst int, ports []Direction)
}

// NewTable creates a table for the router at cur.
func NewTable(topo Topology, alg Algorithm, cur Coord) Table {
	return &table{
		topo: topo,
		alg:  alg,
		cur:  cur,
		t:    make(map[int][]Direction),
	}
}

type table struct {
	topo Topology
	alg  Algorithm
	cur  Coord
	t    map[int][]Direction
}

func (t *table) FindPorts(dst int) []Direction {
	ports, found := t.t[dst]
	if found {
		return ports
	}

	ports = t.alg.Route(t.cur, t.topo.Coord(dst))
	t.t[dst] = ports

	return ports
}

func (t *table) DefineRoute(dst int, ports []Direction) {
	t.t[dst] = ports
}
