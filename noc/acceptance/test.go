package acceptance

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/traffic"
	"github.com/sarchlab/hbmnoc/sim"
)

// ErrCorrupted is wrapped by every memory check failure.
var ErrCorrupted = errors.New("memory content corrupted")

// Summary counts the traffic of a test.
type Summary struct {
	Generated     int
	Delivered     int
	HBMReads      int
	HBMWrites     int
	TileTxns      int
	BytesSent     uint64
	BytesReceived uint64
}

// Test is a test case.
type Test struct {
	memory mem.Memory
	rng    *rand.Rand

	agents        []*Agent
	txns          []*messaging.Transaction
	txnTable      map[string]*messaging.Transaction
	receivedTable map[string]bool
}

// NewTest creates a new test. Reads are checked against the contents that
// the test writes into memory before the simulation starts.
func NewTest(memory mem.Memory, seed int64) *Test {
	return &Test{
		memory:        memory,
		rng:           rand.New(rand.NewSource(seed)),
		txnTable:      make(map[string]*messaging.Transaction),
		receivedTable: make(map[string]bool),
	}
}

// RegisterAgent adds an agent to the Test
func (t *Test) RegisterAgent(agent *Agent) {
	t.agents = append(t.agents, agent)
}

// GenerateTxns generates up to n transactions from random agents. It gives
// up on sources that the pattern leaves silent and returns the number of
// transactions generated.
func (t *Test) GenerateTxns(gen *traffic.Generator, n int) int {
	generated := 0

	for attempts := 0; generated < n && attempts < 16*(n+1); attempts++ {
		agent := t.agents[t.rng.Intn(len(t.agents))]

		txn, ok := gen.Next(agent.NodeID())
		if !ok {
			continue
		}

		if txn.Cmd == mem.CmdRead {
			t.prefill(txn)
		}

		agent.TxnsToSend = append(agent.TxnsToSend, txn)
		t.registerTxn(txn)
		generated++
	}

	return generated
}

func (t *Test) registerTxn(txn *messaging.Transaction) {
	t.txns = append(t.txns, txn)
	t.txnTable[txn.ID] = txn
}

func expectedByte(addr uint64) byte {
	return byte(addr ^ addr>>8 ^ addr>>16)
}

func expectedData(addr uint64, length uint32) []byte {
	data := make([]byte, length)
	for i := range data {
		data[i] = expectedByte(addr + uint64(i))
	}

	return data
}

func (t *Test) prefill(txn *messaging.Transaction) {
	rsp := t.memory.Access(
		mem.WriteReq(txn.Addr, expectedData(txn.Addr, txn.Len)))
	if rsp.Status != mem.StatusOK {
		panic(fmt.Sprintf("cannot prefill memory for %s: %s", txn, rsp.Status))
	}
}

// receiveTxn marks that a transaction is received.
func (t *Test) receiveTxn(txn *messaging.Transaction, agent *Agent) {
	sent, found := t.txnTable[txn.ID]
	if !found {
		panic(fmt.Sprintf("unknown transaction %s delivered", txn))
	}

	t.txnMustNotBeReceivedBefore(txn)

	if sent.Dst == messaging.HBMNodeID {
		t.readMustBeAnswered(sent, txn, agent)
		return
	}

	t.txnMustBeReceivedAtItsDestination(sent, agent)

	if !bytes.Equal(txn.Data, sent.Data) {
		panic(fmt.Sprintf("transaction %s delivered corrupted data", txn))
	}
}

func (t *Test) txnMustNotBeReceivedBefore(txn *messaging.Transaction) {
	if t.receivedTable[txn.ID] {
		panic(fmt.Sprintf("transaction %s is double delivered", txn))
	}

	t.receivedTable[txn.ID] = true
}

func (t *Test) txnMustBeReceivedAtItsDestination(
	sent *messaging.Transaction,
	agent *Agent,
) {
	if sent.Dst != agent.NodeID() {
		panic(fmt.Sprintf("transaction %s delivered to node %d",
			sent, agent.NodeID()))
	}
}

func (t *Test) readMustBeAnswered(
	sent, rsp *messaging.Transaction,
	agent *Agent,
) {
	if sent.Cmd != mem.CmdRead || !rsp.IsReadResponse() {
		panic(fmt.Sprintf("HBM answered %s with %s", sent, rsp))
	}

	if rsp.Src != messaging.HBMNodeID || agent.NodeID() != sent.Src {
		panic(fmt.Sprintf("read response %s delivered to node %d",
			rsp, agent.NodeID()))
	}

	if !bytes.Equal(rsp.Data, expectedData(sent.Addr, sent.Len)) {
		panic(fmt.Sprintf("read response %s carries wrong data", rsp))
	}
}

func expectsDelivery(txn *messaging.Transaction) bool {
	return txn.Dst != messaging.HBMNodeID || txn.Cmd == mem.CmdRead
}

// MustHaveReceivedAllTxns asserts that every read got its response and every
// transaction between tiles arrived.
func (t *Test) MustHaveReceivedAllTxns() {
	missing := 0

	for _, txn := range t.txns {
		if expectsDelivery(txn) && !t.receivedTable[txn.ID] {
			log.Printf("transaction %s expected, but not received\n", txn)
			missing++
		}
	}

	if missing > 0 {
		panic(fmt.Sprintf("%d transactions are dropped", missing))
	}
}

// VerifyMemory checks that the HBM holds the data of every write. Writes
// that overlap another write are skipped since their order is not defined.
func (t *Test) VerifyMemory() error {
	var writes []*messaging.Transaction

	for _, txn := range t.txns {
		if txn.Dst == messaging.HBMNodeID && txn.Cmd == mem.CmdWrite {
			writes = append(writes, txn)
		}
	}

	sort.SliceStable(writes, func(i, j int) bool {
		return writes[i].Addr < writes[j].Addr
	})

	var errs []error

	maxEnd := uint64(0)

	for i, w := range writes {
		end := w.Addr + uint64(w.Len)
		overlaps := maxEnd > w.Addr ||
			(i+1 < len(writes) && end > writes[i+1].Addr)
		maxEnd = max(maxEnd, end)

		if overlaps {
			continue
		}

		rsp := t.memory.Access(mem.ReadReq(w.Addr, w.Len))
		if rsp.Status != mem.StatusOK || !bytes.Equal(rsp.Data, w.Data) {
			errs = append(errs, fmt.Errorf("%w: write %s", ErrCorrupted, w))
		}
	}

	return errors.Join(errs...)
}

// NumDelivered returns the number of transactions received so far.
func (t *Test) NumDelivered() int {
	return len(t.receivedTable)
}

// Summary counts the generated and the delivered traffic.
func (t *Test) Summary() Summary {
	s := Summary{
		Generated: len(t.txns),
		Delivered: len(t.receivedTable),
	}

	for _, txn := range t.txns {
		switch {
		case txn.Dst != messaging.HBMNodeID:
			s.TileTxns++
		case txn.Cmd == mem.CmdRead:
			s.HBMReads++
		default:
			s.HBMWrites++
		}
	}

	for _, a := range t.agents {
		s.BytesSent += a.sendBytes
		s.BytesReceived += a.recvBytes
	}

	return s
}

// ReportBandwidthAchieved dumps the bandwidth observed by each agents.
func (t *Test) ReportBandwidthAchieved(now sim.VTimeInCycle, freq sim.Freq) {
	seconds := freq.Seconds(now)
	if seconds == 0 {
		return
	}

	for _, a := range t.agents {
		log.Printf(
			"agent %s, send bandwidth %.2f GB/s, recv bandwidth %.2f GB/s",
			a.Name(),
			float64(a.sendBytes)/seconds/1e9,
			float64(a.recvBytes)/seconds/1e9)
	}
}
