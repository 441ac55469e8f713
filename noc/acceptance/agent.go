// Package acceptance drives a mesh with synthetic traffic and checks that
// every transaction arrives intact.
package acceptance

import (
	"math/rand"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/niu"
	"github.com/sarchlab/hbmnoc/sim"
)

// Agent is the traffic source and sink of one tile.
type Agent struct {
	*sim.ComponentBase
	test *Test
	niu  *niu.Comp
	rng  *rand.Rand

	injectionRate float64

	TxnsToSend []*messaging.Transaction
	sendBytes  uint64
	recvBytes  uint64
}

// NewAgent creates an agent that injects through n. The agent becomes the
// receiver of n.
func NewAgent(
	name string,
	n *niu.Comp,
	injectionRate float64,
	seed int64,
	test *Test,
) *Agent {
	a := &Agent{
		ComponentBase: sim.NewComponentBase(name),
		test:          test,
		niu:           n,
		rng:           rand.New(rand.NewSource(seed)),
		injectionRate: injectionRate,
	}

	n.SetReceiver(a)

	return a
}

// NodeID returns the node of the tile.
func (a *Agent) NodeID() int {
	return a.niu.NodeID()
}

// Tick tries to inject the next transaction.
func (a *Agent) Tick() bool {
	if len(a.TxnsToSend) == 0 {
		return false
	}

	if a.rng.Float64() >= a.injectionRate {
		return true
	}

	txn := a.TxnsToSend[0]
	if a.niu.Send(txn) != mem.StatusOK {
		return true
	}

	a.TxnsToSend = a.TxnsToSend[1:]
	a.sendBytes += uint64(len(txn.Data))

	return true
}

// Deliver takes a transaction that arrived at the tile.
func (a *Agent) Deliver(txn *messaging.Transaction) mem.Status {
	a.test.receiveTxn(txn, a)
	a.recvBytes += uint64(len(txn.Data))

	return mem.StatusOK
}

// AttachAgents creates an agent for every NIU of the mesh, registers it with
// the test and lets the mesh clock tick it.
func AttachAgents(
	m *mesh.Mesh,
	test *Test,
	injectionRate float64,
	seed int64,
) []*Agent {
	agents := make([]*Agent, 0, len(m.NIUs))

	for id, n := range m.NIUs {
		name := sim.BuildNameWithIndex("Agent", "Tile", id)
		a := NewAgent(name, n, injectionRate, seed+int64(id), test)

		test.RegisterAgent(a)
		m.RegisterTicker(a)
		agents = append(agents, a)
	}

	return agents
}
