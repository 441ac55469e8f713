package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/hbmnoc/sim"
)

var _ = Describe("BufferAnalyzer", func() {
	var (
		mockCtrl       *gomock.Controller
		timeTeller     *MockTimeTeller
		logger         *MockPerfLogger
		buffer         *sim.BoundedBuffer[int]
		bufferAnalyzer *BufferAnalyzer
	)

	level := func(start, end uint64, v float64) PerfAnalyzerEntry {
		return PerfAnalyzerEntry{
			Start:     start,
			End:       end,
			Where:     "Buffer",
			What:      "Level",
			EntryType: "Buffer",
			Value:     v,
		}
	}

	pushAt := func(t sim.VTimeInCycle) {
		timeTeller.EXPECT().CurrentTime().Return(t)
		buffer.Push(1)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		logger = NewMockPerfLogger(mockCtrl)
		buffer = sim.NewBuffer[int]("Buffer", 4)

		bufferAnalyzer = MakeBufferAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(timeTeller).
			WithPeriod(10).
			WithBuffer(buffer).
			Build()
		buffer.AcceptHook(bufferAnalyzer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should calculate average buffer level", func() {
		pushAt(1)

		logger.EXPECT().AddDataEntry(level(0, 10, 0.9))
		pushAt(11)
	})

	It("should report multiple periods together", func() {
		pushAt(1)

		gomock.InOrder(
			logger.EXPECT().AddDataEntry(level(0, 10, 0.9)),
			logger.EXPECT().AddDataEntry(level(10, 20, 1)),
			logger.EXPECT().AddDataEntry(level(20, 30, 1)),
		)
		pushAt(31)
	})

	It("should skip empty periods", func() {
		pushAt(1)
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(2))
		buffer.Pop()

		logger.EXPECT().AddDataEntry(level(0, 10, 0.1))
		pushAt(45)
	})

	It("should report the unfinished period on summarize", func() {
		pushAt(1)
		logger.EXPECT().AddDataEntry(gomock.Any()).Times(3)
		pushAt(31)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(35))
		logger.EXPECT().AddDataEntry(level(30, 35, 1.8))

		bufferAnalyzer.summarize()
	})

	It("should ignore other hook positions", func() {
		bufferAnalyzer.Func(sim.HookCtx{Domain: buffer, Pos: sim.HookPosClockTick})
	})

	It("should panic without a buffer", func() {
		Expect(func() {
			MakeBufferAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				Build()
		}).To(Panic())
	})
})
