package niu

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/hbmnoc/mem/hbm"
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/noc/wiring"
	"github.com/sarchlab/hbmnoc/sim"
)

func buildLegacy(name string, id int, m mem.Memory) *LegacyComp {
	return MakeBuilder().
		WithEngine(sim.NewSerialEngine()).
		WithNodeID(id).
		WithMemory(m).
		BuildLegacy(name)
}

func collectResults(c *LegacyComp) *[]LegacyResult {
	results := &[]LegacyResult{}

	c.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos == HookPosLegacyDone {
			*results = append(*results, ctx.Item.(LegacyResult))
		}
	}))

	return results
}

func handshakePair(src, dst int, h messaging.Handshake) []*messaging.Flit {
	b := messaging.MakeFlitBuilder().
		WithTxnID("script").
		WithSrc(src).
		WithDst(dst)

	return []*messaging.Flit{
		b.WithType(messaging.FlitHead).WithSeq(0, 2).WithHandshake(h).Build(),
		b.WithType(messaging.FlitTail).WithSeq(1, 2).Build(),
	}
}

func word(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

var _ = Describe("LegacyComp", func() {
	Context("with a master and a slave on one link", func() {
		var (
			memory  *hbm.Comp
			master  *LegacyComp
			slave   *LegacyComp
			wires   []*wiring.Wire
			results *[]LegacyResult
		)

		run := func(cycles int) {
			for i := 0; i < cycles; i++ {
				master.Tick()
				slave.Tick()

				for _, w := range wires {
					w.Latch()
				}
			}
		}

		BeforeEach(func() {
			memory = hbm.MakeBuilder().
				WithNumChannels(2).
				WithInterleave(64).
				WithTotalSize(4 << 10).
				Build("HBM")
			master = buildLegacy("Master", 1, nil)
			slave = buildLegacy("Slave", 2, memory)
			wires = wiring.Connect(master.Port(), slave.Port())
			results = collectResults(master)
		})

		It("should read a word", func() {
			memory.Access(mem.WriteReq(0x100, word(0xdeadbeef)))

			status := master.Issue(LegacyRequest{
				Cmd: mem.CmdRead, Dst: 2, Addr: 0x100,
			})
			Expect(status).To(Equal(mem.StatusOK))

			run(60)

			Expect(*results).To(HaveLen(1))
			Expect((*results)[0].Data).To(Equal(uint64(0xdeadbeef)))
			Expect(master.IsIdle()).To(BeTrue())
			Expect(slave.IsIdle()).To(BeTrue())
			Expect(master.Stats().Reads).To(Equal(uint64(1)))
			Expect(slave.Stats().Served).To(Equal(uint64(1)))
		})

		It("should write a word", func() {
			master.Issue(LegacyRequest{
				Cmd: mem.CmdWrite, Dst: 2, Addr: 0x208, Data: 42,
			})

			run(60)

			Expect(*results).To(HaveLen(1))
			rsp := memory.Access(mem.ReadReq(0x208, 8))
			Expect(binary.LittleEndian.Uint64(rsp.Data)).To(Equal(uint64(42)))
			Expect(master.Stats().Writes).To(Equal(uint64(1)))
		})

		It("should run transactions back to back", func() {
			master.Issue(LegacyRequest{
				Cmd: mem.CmdWrite, Dst: 2, Addr: 0x10, Data: 7,
			})
			run(60)

			master.Issue(LegacyRequest{Cmd: mem.CmdRead, Dst: 2, Addr: 0x10})
			run(60)

			Expect(*results).To(HaveLen(2))
			Expect((*results)[1].Data).To(Equal(uint64(7)))
		})

		It("should refuse a request while busy", func() {
			master.Issue(LegacyRequest{Cmd: mem.CmdRead, Dst: 2})

			status := master.Issue(LegacyRequest{Cmd: mem.CmdRead, Dst: 2})

			Expect(status).To(Equal(mem.StatusRetry))
		})

		It("should reject unknown commands", func() {
			status := master.Issue(LegacyRequest{Cmd: mem.Command(7), Dst: 2})

			Expect(status).To(Equal(mem.StatusCommandError))
			Expect(master.IsIdle()).To(BeTrue())
		})

		It("should panic when the slave address is out of range", func() {
			master.Issue(LegacyRequest{
				Cmd: mem.CmdWrite, Dst: 2, Addr: 1 << 20, Data: 1,
			})

			Expect(func() { run(60) }).To(Panic())
		})
	})

	Context("when the slave memory asks for a retry", func() {
		It("should repeat the address phase", func() {
			mockCtrl := gomock.NewController(GinkgoT())
			memory := NewMockMemory(mockCtrl)
			master := buildLegacy("Master", 1, nil)
			slave := buildLegacy("Slave", 2, memory)
			wires := wiring.Connect(master.Port(), slave.Port())
			results := collectResults(master)

			gomock.InOrder(
				memory.EXPECT().Access(mem.ReadReq(0x40, 8)).
					Return(mem.Response{Status: mem.StatusRetry}),
				memory.EXPECT().Access(mem.ReadReq(0x40, 8)).
					Return(mem.Response{Data: word(99)}),
			)

			master.Issue(LegacyRequest{Cmd: mem.CmdRead, Dst: 2, Addr: 0x40})

			for i := 0; i < 100; i++ {
				master.Tick()
				slave.Tick()

				for _, w := range wires {
					w.Latch()
				}
			}

			Expect(*results).To(HaveLen(1))
			Expect((*results)[0].Data).To(Equal(uint64(99)))
			Expect(master.Stats().Retries).To(Equal(uint64(1)))
			Expect(slave.Stats().Declined).To(Equal(uint64(1)))
			Expect(slave.Stats().Served).To(Equal(uint64(1)))
		})
	})

	Context("when another node interrupts", func() {
		It("should invalidate the request and keep waiting", func() {
			master := buildLegacy("Master", 1, nil)
			r := &router{port: wiring.NewPort("Router.LocalPort")}
			wires := wiring.Connect(master.Port(), r.port)
			results := collectResults(master)

			r.toSend = append(r.toSend, handshakePair(5, 1, messaging.Handshake{
				Channel: messaging.ChannelAW, Valid: true, ID: 5,
			})...)
			r.toSend = append(r.toSend, handshakePair(2, 1, messaging.Handshake{
				Channel: messaging.ChannelAR, Ready: true, ID: 2,
			})...)
			r.toSend = append(r.toSend, handshakePair(2, 1, messaging.Handshake{
				Channel: messaging.ChannelR, Valid: true, ID: 2, Data: 12,
			})...)

			master.Issue(LegacyRequest{Cmd: mem.CmdRead, Dst: 2, Addr: 0x80})

			for i := 0; i < 80; i++ {
				r.tick()
				master.Tick()

				for _, w := range wires {
					w.Latch()
				}
			}

			Expect(*results).To(HaveLen(1))
			Expect((*results)[0].Data).To(Equal(uint64(12)))
			Expect(master.Stats().Invalidated).To(Equal(uint64(1)))

			sent := r.received
			Expect(sent).To(HaveLen(6))
			Expect(sent[0].Dst).To(Equal(2))
			Expect(sent[0].Handshake.Channel).To(Equal(messaging.ChannelAR))
			Expect(sent[0].Handshake.Addr).To(Equal(uint64(0x80)))
			Expect(sent[2].Dst).To(Equal(5))
			Expect(sent[2].Handshake.Channel).To(Equal(messaging.ChannelAW))
			Expect(sent[2].Handshake.Valid).To(BeFalse())
			Expect(sent[2].Handshake.Ready).To(BeFalse())
			Expect(sent[4].Dst).To(Equal(2))
			Expect(sent[4].Handshake.Channel).To(Equal(messaging.ChannelR))
			Expect(sent[4].Handshake.Ready).To(BeTrue())
		})
	})
})
