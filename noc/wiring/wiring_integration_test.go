package wiring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/sim"
)

type sender struct {
	port   *Port
	toSend []*messaging.Flit
}

func (s *sender) Tick() bool {
	if len(s.toSend) == 0 {
		return false
	}

	if !s.port.Send(s.toSend[0]) {
		return true
	}

	s.toSend = s.toSend[1:]

	return true
}

// receiver drains its buffer only every drainEvery cycles.
type receiver struct {
	port       *Port
	buf        *sim.BoundedBuffer[*messaging.Flit]
	drainEvery int
	cycle      int
	received   []*messaging.Flit
}

func (r *receiver) Tick() bool {
	progress := false
	r.cycle++

	if r.cycle%r.drainEvery == 0 && !r.buf.IsEmpty() {
		r.received = append(r.received, r.buf.Pop())
		progress = true
	}

	if f := r.port.PeekIncoming(); f != nil && r.buf.CanPush() {
		r.buf.Push(r.port.RetrieveIncoming())
		progress = true
	}

	r.port.SetFull(FullMask(func(int) bool { return r.buf.IsFull() }, 1))

	return progress || !r.buf.IsEmpty()
}

var _ = Describe("Wiring Integration", func() {
	It("should deliver every flit in order through a slow receiver", func() {
		engine := sim.NewSerialEngine()
		clock := sim.NewClock("Clock", engine)

		a, b := NewPort("A"), NewPort("B")
		wires := Connect(a, b)

		flits := make([]*messaging.Flit, 20)
		for i := range flits {
			flits[i] = flitOnVC(0, i)
		}

		s := &sender{port: a, toSend: append([]*messaging.Flit(nil), flits...)}
		r := &receiver{
			port:       b,
			buf:        sim.NewBuffer[*messaging.Flit]("Buf", 2),
			drainEvery: 5,
		}

		clock.RegisterTicker(s, r)
		for _, w := range wires {
			clock.RegisterLatch(w)
		}

		clock.SetCycleLimit(1000)
		clock.Start()

		Expect(engine.Run()).To(Succeed())
		Expect(r.received).To(Equal(flits))
		Expect(wires[0].NumFlits()).To(Equal(uint64(20)))
	})
})
