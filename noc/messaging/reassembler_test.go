package messaging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

func feed(r *Reassembler, flits []*Flit) (txn *Transaction, err error) {
	err = sim.CatchFatal(func() error {
		for _, f := range flits {
			txn = r.Accept(f)
		}

		return nil
	})

	return txn, err
}

var _ = Describe("Reassembler", func() {
	var (
		r     *Reassembler
		write *Transaction
	)

	BeforeEach(func() {
		r = NewReassembler("Test.NIU", 128)
		write = &Transaction{
			ID: "w1", Cmd: mem.CmdWrite, Src: 2, Dst: HBMNodeID,
			Addr: 0x80, Len: 600, Data: pattern(600),
		}
	})

	It("should rebuild a write", func() {
		txn, err := feed(r, Decompose(write, 128, 0, 0))

		Expect(err).NotTo(HaveOccurred())
		Expect(txn).To(Equal(write))
		Expect(r.InProgress()).To(BeFalse())
	})

	It("should return nil until the TAIL", func() {
		flits := Decompose(write, 128, 0, 0)

		for _, f := range flits[:len(flits)-1] {
			Expect(r.Accept(f)).To(BeNil())
			Expect(r.InProgress()).To(BeTrue())
		}

		Expect(r.Accept(flits[len(flits)-1])).NotTo(BeNil())
	})

	It("should rebuild a read request without data", func() {
		read := &Transaction{
			ID: "r1", Cmd: mem.CmdRead, Src: 2, Dst: HBMNodeID,
			Addr: 0x80, Len: 300,
		}

		txn, err := feed(r, Decompose(read, 128, 0, 0))

		Expect(err).NotTo(HaveOccurred())
		Expect(txn.Data).To(BeNil())
		Expect(txn.IsReadResponse()).To(BeFalse())
		Expect(txn.Len).To(Equal(uint32(300)))
	})

	It("should rebuild a read response", func() {
		resp := &Transaction{
			ID: "r1", Cmd: mem.CmdRead, Src: HBMNodeID, Dst: 2,
			Addr: 0x80, Len: 300, Data: pattern(300),
		}

		txn, err := feed(r, Decompose(resp, 128, 0, 0))

		Expect(err).NotTo(HaveOccurred())
		Expect(txn.IsReadResponse()).To(BeTrue())
		Expect(txn.Data).To(Equal(pattern(300)))
	})

	It("should rebuild sequences back to back", func() {
		flits := Decompose(write, 128, 0, 0)
		flits = append(flits, Decompose(write, 128, 0, 0)...)

		txn, err := feed(r, flits)

		Expect(err).NotTo(HaveOccurred())
		Expect(txn.Data).To(Equal(write.Data))
	})

	It("should reject a sequence not starting with HEAD", func() {
		flits := Decompose(write, 128, 0, 0)

		_, err := feed(r, flits[1:])

		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})

	It("should reject a flit from another source", func() {
		flits := Decompose(write, 128, 0, 0)
		flits[2].Src = 9

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.SourceMismatch)).To(BeTrue())
	})

	It("should reject a second HEAD", func() {
		flits := Decompose(write, 128, 0, 0)
		flits[1] = flits[0]

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})

	It("should reject a skipped flit", func() {
		flits := Decompose(write, 128, 0, 0)
		flits = append(flits[:2], flits[3:]...)

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})

	It("should reject a short payload", func() {
		flits := Decompose(write, 128, 0, 0)
		flits[5].ValidLen = 80

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.LengthMismatch)).To(BeTrue())
	})

	It("should reject a long payload", func() {
		flits := Decompose(&Transaction{
			ID: "w1", Cmd: mem.CmdWrite, Src: 2, Len: 600, Data: pattern(600),
		}, 128, 0, 0)
		flits[0].Len = 520

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.LengthMismatch)).To(BeTrue())
	})

	It("should reject a write without payload", func() {
		flits := Decompose(write, 128, 0, 0)
		head, tail := flits[0], flits[6]
		head.SeqLength = 2
		tail.SeqNo = 1
		tail.SeqLength = 2

		_, err := feed(r, []*Flit{head, tail})

		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})

	It("should reject a HEAD whose flit count does not fit its length", func() {
		flits := []*Flit{
			MakeFlitBuilder().WithTxnID("w2").WithSrc(2).WithDst(HBMNodeID).
				WithType(FlitHead).WithSeq(0, 5).
				WithHeader(mem.CmdWrite, 0x100, 256).Build(),
		}
		for i, n := range []int{128, 64, 64} {
			flits = append(flits, MakeFlitBuilder().WithTxnID("w2").
				WithSrc(2).WithDst(HBMNodeID).
				WithType(FlitBody).WithSeq(i+1, 5).
				WithPayload(128, pattern(n)).Build())
		}
		flits = append(flits, MakeFlitBuilder().WithTxnID("w2").
			WithSrc(2).WithDst(HBMNodeID).
			WithType(FlitTail).WithSeq(4, 5).Build())

		txn, err := feed(r, flits)

		Expect(txn).To(BeNil())
		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})

	It("should reject a partial BODY before the last one", func() {
		flits := Decompose(&Transaction{
			ID: "w3", Cmd: mem.CmdWrite, Src: 2, Len: 256, Data: pattern(256),
		}, 128, 0, 0)
		flits[1].ValidLen = 64

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.LengthMismatch)).To(BeTrue())
	})

	It("should reject a BODY in place of the TAIL", func() {
		read := &Transaction{
			ID: "r2", Cmd: mem.CmdRead, Src: 2, Dst: HBMNodeID,
			Addr: 0x80, Len: 100,
		}
		flits := Decompose(read, 128, 0, 0)
		flits[1] = MakeFlitBuilder().WithTxnID("r2").WithSrc(2).
			WithDst(HBMNodeID).WithType(FlitBody).WithSeq(1, 2).
			WithPayload(128, pattern(100)).Build()

		_, err := feed(r, flits)

		Expect(sim.IsViolation(err, sim.MalformedSequence)).To(BeTrue())
	})
})
