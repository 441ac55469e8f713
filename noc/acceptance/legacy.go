package acceptance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"

	"github.com/sarchlab/hbmnoc/mem/hbm"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/niu"
	"github.com/sarchlab/hbmnoc/sim"
)

const legacyWordSize = 8

// LegacyAgent issues split transactions through a legacy NIU, one at a time.
type LegacyAgent struct {
	*sim.ComponentBase
	niu *niu.LegacyComp

	RequestsToSend []niu.LegacyRequest
}

// Tick issues the next request once the NIU is free.
func (a *LegacyAgent) Tick() bool {
	if len(a.RequestsToSend) == 0 {
		return false
	}

	if a.niu.Issue(a.RequestsToSend[0]) != mem.StatusOK {
		return false
	}

	a.RequestsToSend = a.RequestsToSend[1:]

	return true
}

// LegacyTest drives the even tiles of a legacy mesh as masters against the
// odd tiles, which serve from the shared HBM. Masters never receive
// requests, so two masters cannot invalidate each other forever.
type LegacyTest struct {
	memory *hbm.Comp
	rng    *rand.Rand

	agents []*LegacyAgent
	slaves []int

	expected  map[uint64]uint64
	writes    map[uint64]uint64
	issued    int
	completed int
	errs      []error
}

// NewLegacyTest creates a test for a mesh built with legacy NIUs.
func NewLegacyTest(m *mesh.Mesh, seed int64) *LegacyTest {
	if !m.IsLegacy() {
		panic("legacy test needs a mesh with legacy NIUs")
	}

	t := &LegacyTest{
		memory:   m.Memory,
		rng:      rand.New(rand.NewSource(seed)),
		expected: make(map[uint64]uint64),
		writes:   make(map[uint64]uint64),
	}

	for id, n := range m.LegacyNIUs {
		if id%2 == 1 {
			t.slaves = append(t.slaves, id)
			continue
		}

		a := &LegacyAgent{
			ComponentBase: sim.NewComponentBase(
				sim.BuildNameWithIndex("Agent", "Tile", id)),
			niu: n,
		}
		n.AcceptHook(sim.HookFunc(t.onDone))
		m.RegisterTicker(a)
		t.agents = append(t.agents, a)
	}

	return t
}

// Agents returns the master agents.
func (t *LegacyTest) Agents() []*LegacyAgent {
	return t.agents
}

// GenerateRequests creates n requests. Each request uses its own word, so
// reads and writes never race. It returns the number of requests created.
func (t *LegacyTest) GenerateRequests(n int) int {
	if len(t.slaves) == 0 {
		return 0
	}

	half := t.memory.TotalSize() / 2
	words := half / legacyWordSize

	for i := 0; i < n; i++ {
		agent := t.agents[t.rng.Intn(len(t.agents))]
		req := niu.LegacyRequest{
			Dst: t.slaves[t.rng.Intn(len(t.slaves))],
		}

		if t.rng.Intn(2) == 0 {
			req.Cmd = mem.CmdWrite
			req.Addr = uint64(i) % words * legacyWordSize
			req.Data = t.rng.Uint64()
			t.writes[req.Addr] = req.Data
		} else {
			req.Cmd = mem.CmdRead
			req.Addr = half + uint64(i)%words*legacyWordSize
			t.prefill(req.Addr)
		}

		agent.RequestsToSend = append(agent.RequestsToSend, req)
		t.issued++
	}

	return n
}

func (t *LegacyTest) prefill(addr uint64) {
	word := t.rng.Uint64()
	t.expected[addr] = word

	rsp := t.memory.Access(mem.WriteReq(addr,
		binary.LittleEndian.AppendUint64(nil, word)))
	if rsp.Status != mem.StatusOK {
		panic(fmt.Sprintf("cannot prefill memory at 0x%x: %s", addr, rsp.Status))
	}
}

func (t *LegacyTest) onDone(ctx sim.HookCtx) {
	if ctx.Pos != niu.HookPosLegacyDone {
		return
	}

	result := ctx.Item.(niu.LegacyResult)
	t.completed++

	if result.Request.Cmd != mem.CmdRead {
		return
	}

	if want := t.expected[result.Request.Addr]; result.Data != want {
		t.errs = append(t.errs, fmt.Errorf(
			"%w: read at 0x%x returned 0x%x, want 0x%x",
			ErrCorrupted, result.Request.Addr, result.Data, want))
	}
}

// Completed returns the number of finished requests.
func (t *LegacyTest) Completed() int {
	return t.completed
}

// Verify checks that every request completed, every read returned the
// prefilled word and every write reached the HBM.
func (t *LegacyTest) Verify() error {
	errs := append([]error(nil), t.errs...)

	if t.completed != t.issued {
		errs = append(errs, fmt.Errorf("%d of %d legacy requests completed",
			t.completed, t.issued))
	}

	for addr, word := range t.writes {
		rsp := t.memory.Access(mem.ReadReq(addr, legacyWordSize))
		if rsp.Status != mem.StatusOK ||
			binary.LittleEndian.Uint64(rsp.Data) != word {
			errs = append(errs, fmt.Errorf("%w: write at 0x%x", ErrCorrupted, addr))
		}
	}

	return errors.Join(errs...)
}
