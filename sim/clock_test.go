package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

// pingPong stages a counter on a signal and only reads the latched value.
type pingPong struct {
	in, out *Signal[int]
	seen    []int
	limit   int
}

func (p *pingPong) Tick() bool {
	v := p.in.Get()
	p.seen = append(p.seen, v)

	if v >= p.limit {
		return false
	}

	p.out.Set(v + 1)

	return true
}

var _ = Describe("Clock", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
		clock    *Clock
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
		clock = NewClock("Clock", engine)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should tick before latching in every cycle", func() {
		ticker := NewMockTicker(mockCtrl)
		latch := NewMockLatch(mockCtrl)
		clock.RegisterTicker(ticker)
		clock.RegisterLatch(latch)

		t1 := ticker.EXPECT().Tick().Return(true)
		l1 := latch.EXPECT().Latch().Return(false).After(t1)
		t2 := ticker.EXPECT().Tick().Return(false).After(l1)
		latch.EXPECT().Latch().Return(false).After(t2)

		clock.Start()

		Expect(engine.Run()).To(Succeed())
		Expect(clock.Cycles()).To(Equal(VTimeInCycle(2)))
	})

	It("should keep running while signals change", func() {
		ticker := NewMockTicker(mockCtrl)
		latch := NewMockLatch(mockCtrl)
		clock.RegisterTicker(ticker)
		clock.RegisterLatch(latch)

		ticker.EXPECT().Tick().Return(false).Times(3)
		latch.EXPECT().Latch().Return(true).Times(2)
		latch.EXPECT().Latch().Return(false)

		clock.Start()

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInCycle(2)))
	})

	It("should make writes visible one cycle later", func() {
		a := NewSignal(0)
		b := NewSignal(0)
		p1 := &pingPong{in: a, out: b, limit: 4}
		p2 := &pingPong{in: b, out: a, limit: 4}
		clock.RegisterTicker(p1, p2)
		clock.RegisterLatch(a, b)

		clock.Start()

		Expect(engine.Run()).To(Succeed())
		Expect(p1.seen).To(Equal([]int{0, 1, 2, 3, 4}))
		Expect(p2.seen).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("should fail when the cycle limit is reached", func() {
		ticker := NewMockTicker(mockCtrl)
		clock.RegisterTicker(ticker)
		clock.SetCycleLimit(5)

		ticker.EXPECT().Tick().Return(true).Times(5)

		clock.Start()

		err := engine.Run()
		Expect(errors.Is(err, ErrCycleLimit)).To(BeTrue())
	})
})
