package messaging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hbmnoc/mem/mem"
)

var _ = Describe("Codec", func() {
	It("should encode every flit to the same size", func() {
		txn := &Transaction{
			ID: "w1", Cmd: mem.CmdWrite, Src: 1, Dst: HBMNodeID,
			Addr: 0x1234, Len: 200, Data: pattern(200),
		}

		for _, f := range Decompose(txn, 128, 1, 7) {
			b, err := Encode(f, 128)

			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(HaveLen(EncodedSize(128)))

			decoded, err := Decode(b, 128)

			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(f))
		}
	})

	It("should carry the handshake signals", func() {
		f := MakeFlitBuilder().
			WithTxnID("legacy").
			WithSrc(HBMNodeID).
			WithDst(3).
			WithType(FlitHead).
			WithSeq(0, 2).
			WithHandshake(Handshake{
				Channel: ChannelR,
				Valid:   true,
				ID:      -4,
				Addr:    0x10,
				Data:    0xdeadbeef,
			}).
			Build()

		b, err := Encode(f, 8)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := Decode(b, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Handshake).To(Equal(f.Handshake))
		Expect(decoded.Src).To(Equal(HBMNodeID))
	})

	It("should reject a long transaction id", func() {
		f := &Flit{TxnID: string(make([]byte, MaxTxnIDLen+1))}

		_, err := Encode(f, 8)

		Expect(err).To(MatchError(ErrBadEncoding))
	})

	It("should reject a frame of the wrong size", func() {
		_, err := Decode(make([]byte, 10), 8)

		Expect(err).To(MatchError(ErrBadEncoding))
	})

	It("should reject an unknown flit type", func() {
		b, _ := Encode(&Flit{}, 8)
		b[9] = 7

		_, err := Decode(b, 8)

		Expect(err).To(MatchError(ErrBadEncoding))
	})
})
