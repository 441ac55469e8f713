package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

var _ = Describe("WireAnalyzer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		logger     *MockPerfLogger
		wire       *wiring.Wire
		analyzer   *WireAnalyzer
	)

	body := messaging.MakeFlitBuilder().
		WithType(messaging.FlitBody).
		WithSeq(1, 3).
		WithPayload(16, make([]byte, 10)).
		Build()
	head := messaging.MakeFlitBuilder().
		WithType(messaging.FlitHead).
		WithSeq(0, 3).
		Build()

	sendAt := func(t sim.VTimeInCycle, f *messaging.Flit) {
		timeTeller.EXPECT().CurrentTime().Return(t)
		analyzer.Func(sim.HookCtx{
			Domain: wire,
			Pos:    wiring.HookPosWireSend,
			Item:   f,
		})
	}

	entry := func(what, unit string, v float64) PerfAnalyzerEntry {
		return PerfAnalyzerEntry{
			Start:     0,
			End:       10,
			Where:     "A-B",
			What:      what,
			EntryType: "Wire",
			Value:     v,
			Unit:      unit,
		}
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		logger = NewMockPerfLogger(mockCtrl)
		wire = wiring.NewWire("A-B")

		analyzer = MakeWireAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(timeTeller).
			WithPeriod(10).
			WithWire(wire).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should count flits and payload per period", func() {
		sendAt(1, head)
		sendAt(3, body)

		gomock.InOrder(
			logger.EXPECT().AddDataEntry(entry("Flits", "flit", 2)),
			logger.EXPECT().AddDataEntry(entry("Payload", "B", 10)),
		)
		sendAt(25, body)
	})

	It("should report the unfinished period on summarize", func() {
		sendAt(1, body)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(7))
		flits := entry("Flits", "flit", 1)
		flits.End = 7
		payload := entry("Payload", "B", 10)
		payload.End = 7

		gomock.InOrder(
			logger.EXPECT().AddDataEntry(flits),
			logger.EXPECT().AddDataEntry(payload),
		)
		analyzer.summarize()
	})

	It("should not report idle periods", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(50))
		analyzer.summarize()
	})
})
