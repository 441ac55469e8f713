package acceptance

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/traffic"
	"github.com/sarchlab/hbmnoc/sim"
)

func testConfig(pattern string) config.Config {
	cfg := config.Default()
	cfg.MeshWidth = 3
	cfg.MeshHeight = 3
	cfg.HBMChannels = 4
	cfg.HBMInterleave = 256
	cfg.HBMSize = 256 << 10
	cfg.CycleLimit = 200_000
	cfg.TrafficPattern = pattern
	cfg.InjectionRate = 0.5
	cfg.MinTxnLen = 8
	cfg.MaxTxnLen = 300

	return cfg
}

var _ = Describe("Acceptance", func() {
	for _, pattern := range []string{"random", "hbm", "transpose1", "shuffle"} {
		It("should deliver "+pattern+" traffic", func() {
			cfg := testConfig(pattern)
			engine := sim.NewSerialEngine()
			m := mesh.MakeBuilder().
				WithEngine(engine).
				WithConfig(cfg).
				Build("Mesh")

			gen, err := traffic.NewGenerator(cfg)
			Expect(err).NotTo(HaveOccurred())

			test := NewTest(m.Memory, cfg.Seed)
			AttachAgents(m, test, cfg.InjectionRate, cfg.Seed)
			Expect(test.GenerateTxns(gen, 60)).To(BeNumerically(">", 0))

			m.Clock.Start()
			Expect(engine.Run()).To(Succeed())

			test.MustHaveReceivedAllTxns()
			Expect(test.VerifyMemory()).To(Succeed())

			s := test.Summary()
			Expect(s.Generated).To(Equal(s.HBMReads + s.HBMWrites + s.TileTxns))
			Expect(s.Delivered).To(Equal(s.HBMReads + s.TileTxns))
			test.ReportBandwidthAchieved(engine.CurrentTime(), cfg.Freq)
		})
	}

	Context("when saturated", func() {
		for _, numVCs := range []int{2, 3} {
			for _, pattern := range []string{"hbm", "hotspot"} {
				It(fmt.Sprintf("should drain %s traffic on %d VCs",
					pattern, numVCs), func() {
					cfg := testConfig(pattern)
					cfg.NumVCs = numVCs
					cfg.InjectionRate = 1
					cfg.Hotspots = []int{4, 8}

					for seed := int64(1); seed <= 2; seed++ {
						cfg.Seed = seed
						engine := sim.NewSerialEngine()
						m := mesh.MakeBuilder().
							WithEngine(engine).
							WithConfig(cfg).
							Build("Mesh")

						gen, err := traffic.NewGenerator(cfg)
						Expect(err).NotTo(HaveOccurred())

						test := NewTest(m.Memory, cfg.Seed)
						AttachAgents(m, test, cfg.InjectionRate, cfg.Seed)
						Expect(test.GenerateTxns(gen, 300)).To(Equal(300))

						m.Clock.Start()
						Expect(engine.Run()).To(Succeed())
						Expect(uint64(engine.CurrentTime())).
							To(BeNumerically("<", cfg.CycleLimit))

						test.MustHaveReceivedAllTxns()
						Expect(test.VerifyMemory()).To(Succeed())
					}
				})
			}
		}
	})

	Context("when checking deliveries", func() {
		var (
			test   *Test
			agents []*Agent
			txn    *messaging.Transaction
		)

		BeforeEach(func() {
			cfg := testConfig("random")
			cfg.MeshWidth = 2
			cfg.MeshHeight = 1
			m := mesh.MakeBuilder().
				WithEngine(sim.NewSerialEngine()).
				WithConfig(cfg).
				Build("Mesh")

			test = NewTest(m.Memory, 1)
			agents = AttachAgents(m, test, 1, 1)

			txn = &messaging.Transaction{
				ID: "T", Cmd: mem.CmdWrite, Src: 0, Dst: 1,
				Len: 2, Data: []byte{1, 2},
			}
			test.registerTxn(txn)
		})

		It("should accept a correct delivery", func() {
			Expect(agents[1].Deliver(txn)).To(Equal(mem.StatusOK))

			test.MustHaveReceivedAllTxns()
		})

		It("should panic on double delivery", func() {
			agents[1].Deliver(txn)

			Expect(func() { agents[1].Deliver(txn) }).To(Panic())
		})

		It("should panic on a delivery to the wrong tile", func() {
			Expect(func() { agents[0].Deliver(txn) }).To(Panic())
		})

		It("should panic on corrupted data", func() {
			bad := *txn
			bad.Data = []byte{1, 3}

			Expect(func() { agents[1].Deliver(&bad) }).To(Panic())
		})

		It("should panic when a transaction is missing", func() {
			Expect(func() { test.MustHaveReceivedAllTxns() }).To(Panic())
		})

		It("should detect a corrupted write", func() {
			w := &messaging.Transaction{
				ID: "W", Cmd: mem.CmdWrite, Src: 0, Dst: messaging.HBMNodeID,
				Addr: 0x40, Len: 2, Data: []byte{9, 9},
			}
			test.registerTxn(w)

			Expect(test.VerifyMemory()).To(MatchError(ErrCorrupted))
		})
	})
})
