package niu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

const flitSize = 128

// router stands in for the local port of a router.
type router struct {
	port     *wiring.Port
	toSend   []*messaging.Flit
	received []*messaging.Flit
}

func (r *router) tick() {
	if f := r.port.RetrieveIncoming(); f != nil {
		r.received = append(r.received, f)
	}

	if len(r.toSend) > 0 && r.port.Send(r.toSend[0]) {
		r.toSend = r.toSend[1:]
	}
}

type niuHarness struct {
	niu    *Comp
	router *router
	wires  []*wiring.Wire
}

func newNIUHarness(recv Receiver, queueDepth int) *niuHarness {
	h := &niuHarness{
		router: &router{port: wiring.NewPort("Router.LocalPort")},
	}

	h.niu = MakeBuilder().
		WithEngine(sim.NewSerialEngine()).
		WithNodeID(3).
		WithFlitSize(flitSize).
		WithNumVCs(2).
		WithBufferDepth(2).
		WithQueueDepth(queueDepth).
		WithReceiver(recv).
		Build("NIU")

	h.wires = wiring.Connect(h.niu.Port(), h.router.port)

	return h
}

func (h *niuHarness) run(cycles int) {
	for i := 0; i < cycles; i++ {
		h.router.tick()
		h.niu.Tick()

		for _, w := range h.wires {
			w.Latch()
		}
	}
}

func writeTxn(id string, src, dst int, addr uint64, n int) *messaging.Transaction {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}

	return &messaging.Transaction{
		ID:   id,
		Cmd:  mem.CmdWrite,
		Src:  src,
		Dst:  dst,
		Addr: addr,
		Len:  uint32(n),
		Data: data,
	}
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
		recv     *MockReceiver
		h        *niuHarness
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recv = NewMockReceiver(mockCtrl)
		h = newNIUHarness(recv, 2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when sending", func() {
		It("should inject a write as a flit sequence", func() {
			status := h.niu.Send(writeTxn("W", 3, 7, 0x40, 300))
			Expect(status).To(Equal(mem.StatusOK))

			h.run(30)

			flits := h.router.received
			Expect(flits).To(HaveLen(5))
			Expect(flits[0].Type).To(Equal(messaging.FlitHead))
			Expect(flits[0].Cmd).To(Equal(mem.CmdWrite))
			Expect(flits[0].Addr).To(Equal(uint64(0x40)))
			Expect(flits[4].Type).To(Equal(messaging.FlitTail))

			for i, f := range flits {
				Expect(f.TxnID).To(Equal("W"))
				Expect(f.Src).To(Equal(3))
				Expect(f.Dst).To(Equal(7))
				Expect(f.VC).To(Equal(0))
				Expect(f.SeqNo).To(Equal(i))
			}

			Expect(h.niu.Stats().TxnsSent).To(Equal(uint64(1)))
			Expect(h.niu.Stats().FlitsSent).To(Equal(uint64(5)))
			Expect(h.niu.Stats().BytesSent).To(Equal(uint64(300)))
			Expect(h.niu.Tick()).To(BeFalse())
		})

		It("should send one flit every two cycles", func() {
			h.niu.Send(writeTxn("W", 3, 7, 0, 600))

			h.run(6)

			Expect(h.router.received).To(HaveLen(3))
		})

		It("should alternate virtual channels per transaction", func() {
			h.niu.Send(&messaging.Transaction{
				ID: "A", Cmd: mem.CmdRead, Src: 3, Dst: messaging.HBMNodeID,
				Addr: 0, Len: 64,
			})
			h.niu.Send(&messaging.Transaction{
				ID: "B", Cmd: mem.CmdRead, Src: 3, Dst: messaging.HBMNodeID,
				Addr: 64, Len: 64,
			})

			h.run(20)

			flits := h.router.received
			Expect(flits).To(HaveLen(4))
			Expect(flits[0].TxnID).To(Equal("A"))
			Expect(flits[0].VC).To(Equal(0))
			Expect(flits[2].TxnID).To(Equal("B"))
			Expect(flits[2].VC).To(Equal(1))
		})

		It("should assign an id to an anonymous transaction", func() {
			txn := writeTxn("", 3, 0, 0, 8)

			h.niu.Send(txn)

			Expect(txn.ID).NotTo(BeEmpty())
		})

		It("should ask for a retry when the queue is full", func() {
			Expect(h.niu.Send(writeTxn("A", 3, 0, 0, 8))).
				To(Equal(mem.StatusOK))
			Expect(h.niu.Send(writeTxn("B", 3, 0, 0, 8))).
				To(Equal(mem.StatusOK))
			Expect(h.niu.Send(writeTxn("C", 3, 0, 0, 8))).
				To(Equal(mem.StatusRetry))

			Expect(h.niu.Stats().QueueRejections).To(Equal(uint64(1)))
		})

		It("should reject unknown commands", func() {
			txn := writeTxn("A", 3, 0, 0, 8)
			txn.Cmd = mem.Command(9)

			Expect(h.niu.Send(txn)).To(Equal(mem.StatusCommandError))
		})

		It("should panic on a transaction from another node", func() {
			Expect(func() {
				h.niu.Send(writeTxn("A", 4, 0, 0, 8))
			}).To(Panic())
		})
	})

	Context("when receiving", func() {
		It("should deliver a reassembled transaction", func() {
			txn := writeTxn("W", 5, 3, 0x80, 200)
			h.router.toSend = messaging.Decompose(txn, flitSize, 1, 0)

			var got *messaging.Transaction
			recv.EXPECT().Deliver(gomock.Any()).
				DoAndReturn(func(t *messaging.Transaction) mem.Status {
					got = t
					return mem.StatusOK
				})

			h.run(30)

			Expect(got).NotTo(BeNil())
			Expect(got.ID).To(Equal("W"))
			Expect(got.Src).To(Equal(5))
			Expect(got.Addr).To(Equal(uint64(0x80)))
			Expect(got.Data).To(Equal(txn.Data))
			Expect(h.niu.Stats().TxnsReceived).To(Equal(uint64(1)))
			Expect(h.niu.Stats().FlitsReceived).To(Equal(uint64(4)))
			Expect(h.niu.Stats().BytesReceived).To(Equal(uint64(200)))
		})

		It("should offer the transaction again after a retry", func() {
			h.router.toSend = messaging.Decompose(
				writeTxn("W", 5, 3, 0, 16), flitSize, 0, 0)

			gomock.InOrder(
				recv.EXPECT().Deliver(gomock.Any()).Return(mem.StatusRetry),
				recv.EXPECT().Deliver(gomock.Any()).Return(mem.StatusRetry),
				recv.EXPECT().Deliver(gomock.Any()).Return(mem.StatusOK),
			)

			h.run(30)

			Expect(h.niu.Stats().DeliveryRetries).To(Equal(uint64(2)))
			Expect(h.niu.Stats().TxnsReceived).To(Equal(uint64(1)))
		})

		It("should keep sequences on different VCs apart", func() {
			a := messaging.Decompose(writeTxn("A", 5, 3, 0, 200), flitSize, 0, 0)
			b := messaging.Decompose(writeTxn("B", 6, 3, 0, 100), flitSize, 1, 0)
			h.router.toSend = []*messaging.Flit{
				a[0], b[0], a[1], b[1], a[2], b[2], a[3],
			}

			var ids []string
			recv.EXPECT().Deliver(gomock.Any()).
				DoAndReturn(func(t *messaging.Transaction) mem.Status {
					ids = append(ids, t.ID)
					return mem.StatusOK
				}).Times(2)

			h.run(40)

			Expect(ids).To(ConsistOf("A", "B"))
		})

		It("should panic on a flit for another node", func() {
			f := messaging.Decompose(writeTxn("W", 5, 4, 0, 8), flitSize, 0, 0)
			h.router.toSend = f[:1]

			Expect(func() { h.run(4) }).To(Panic())
		})

		It("should panic on a flit on a nonexistent VC", func() {
			f := messaging.Decompose(writeTxn("W", 5, 3, 0, 8), flitSize, 0, 0)
			f[0].VC = 5
			h.router.toSend = f[:1]

			Expect(func() { h.run(4) }).To(Panic())
		})
	})
})
