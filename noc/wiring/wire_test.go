package wiring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/sim"
)

func flitOnVC(vc, seq int) *messaging.Flit {
	return messaging.MakeFlitBuilder().
		WithVC(vc).
		WithType(messaging.FlitHead).
		WithSeq(seq, 2).
		Build()
}

var _ = Describe("Wire", func() {
	var w *Wire

	BeforeEach(func() {
		w = NewWire("Wire")
	})

	It("should not deliver in the cycle of sending", func() {
		f := flitOnVC(0, 0)

		Expect(w.Send(f)).To(BeTrue())
		Expect(w.Peek()).To(BeNil())

		w.Latch()

		Expect(w.Peek()).To(BeIdenticalTo(f))
		Expect(w.Peek()).To(BeIdenticalTo(f))
	})

	It("should block the sender until acknowledged", func() {
		Expect(w.Send(flitOnVC(0, 0))).To(BeTrue())
		Expect(w.CanSend(0)).To(BeFalse())
		Expect(w.Send(flitOnVC(0, 1))).To(BeFalse())

		w.Latch()
		Expect(w.CanSend(0)).To(BeFalse())

		Expect(w.Retrieve()).NotTo(BeNil())
		Expect(w.Retrieve()).To(BeNil())
		w.Latch()

		Expect(w.CanSend(0)).To(BeTrue())
		Expect(w.Peek()).To(BeNil())
	})

	It("should alternate the level", func() {
		for i := 0; i < 4; i++ {
			f := flitOnVC(0, i)
			Expect(w.Send(f)).To(BeTrue())
			w.Latch()

			Expect(w.Retrieve()).To(BeIdenticalTo(f))
			w.Latch()
		}

		Expect(w.NumFlits()).To(Equal(uint64(4)))
	})

	It("should respect the full mask per virtual channel", func() {
		w.SetFull(0b10)
		w.Latch()

		Expect(w.CanSend(0)).To(BeTrue())
		Expect(w.CanSend(1)).To(BeFalse())
		Expect(w.Send(flitOnVC(1, 0))).To(BeFalse())
		Expect(w.Send(flitOnVC(0, 0))).To(BeTrue())
	})

	It("should report changes when latching", func() {
		Expect(w.Latch()).To(BeFalse())

		w.Send(flitOnVC(0, 0))

		Expect(w.Latch()).To(BeTrue())
		Expect(w.Latch()).To(BeFalse())
	})

	It("should invoke hooks", func() {
		counter := &messaging.TrafficCounter{Pos: HookPosWireSend}
		retrieved := 0
		w.AcceptHook(counter)
		w.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == HookPosWireRetrieve {
				retrieved++
			}
		}))

		w.Send(flitOnVC(0, 0))
		w.Latch()
		w.Retrieve()

		Expect(counter.Flits).To(Equal(uint64(1)))
		Expect(retrieved).To(Equal(1))
	})
})

var _ = Describe("Port", func() {
	It("should not send or receive before connected", func() {
		p := NewPort("Port")

		Expect(p.IsConnected()).To(BeFalse())
		Expect(p.CanSend(0)).To(BeFalse())
		Expect(p.Send(flitOnVC(0, 0))).To(BeFalse())
		Expect(p.PeekIncoming()).To(BeNil())
		Expect(p.RetrieveIncoming()).To(BeNil())
		Expect(func() { p.SetFull(1) }).NotTo(Panic())
	})

	It("should carry flits both ways", func() {
		a, b := NewPort("A"), NewPort("B")
		wires := Connect(a, b)
		latch := func() {
			for _, w := range wires {
				w.Latch()
			}
		}

		fa, fb := flitOnVC(0, 0), flitOnVC(1, 0)
		Expect(a.Send(fa)).To(BeTrue())
		Expect(b.Send(fb)).To(BeTrue())
		latch()

		Expect(b.RetrieveIncoming()).To(BeIdenticalTo(fa))
		Expect(a.RetrieveIncoming()).To(BeIdenticalTo(fb))
		Expect(wires[0].Name()).To(Equal("A-B"))
	})

	It("should forward the full mask to the remote sender", func() {
		a, b := NewPort("A"), NewPort("B")
		wires := Connect(a, b)

		b.SetFull(FullMask(func(vc int) bool { return vc == 1 }, 2))
		for _, w := range wires {
			w.Latch()
		}

		Expect(a.CanSend(0)).To(BeTrue())
		Expect(a.CanSend(1)).To(BeFalse())
		Expect(b.CanSend(1)).To(BeTrue())
	})

	It("should refuse to connect twice", func() {
		a, b, c := NewPort("A"), NewPort("B"), NewPort("C")
		Connect(a, b)

		Expect(func() { Connect(a, c) }).To(Panic())
	})
})
