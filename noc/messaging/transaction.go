package messaging

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/mem/mem"
)

// A Transaction is a memory operation exchanged between two endpoints.
type Transaction struct {
	ID   string
	Cmd  mem.Command
	Src  int
	Dst  int
	Addr uint64
	Len  uint32
	Data []byte
}

func (t *Transaction) String() string {
	return fmt.Sprintf("%s %s %d->%d addr 0x%x len %d",
		t.ID, t.Cmd, t.Src, t.Dst, t.Addr, t.Len)
}

// IsReadResponse tells if the transaction carries the data of a read.
func (t *Transaction) IsReadResponse() bool {
	return t.Cmd == mem.CmdRead && t.Data != nil
}

// NumBodyFlits returns the number of BODY flits that carry length bytes.
func NumBodyFlits(length uint32, flitSize int) int {
	return int((uint64(length) + uint64(flitSize) - 1) / uint64(flitSize))
}

// SequenceLength returns the number of flits of a sequence with the given
// number of BODY flits.
func SequenceLength(numBody int) int {
	return numBody + 2
}

// ValidSeqLength tells if a HEAD announcing cmd and length may open a
// sequence of seqLength flits. Writes carry length bytes. A read is either a
// request without BODY flits or a response with length bytes.
func ValidSeqLength(
	cmd mem.Command,
	length uint32,
	seqLength, flitSize int,
) bool {
	withData := SequenceLength(NumBodyFlits(length, flitSize))

	switch cmd {
	case mem.CmdWrite:
		return seqLength == withData
	case mem.CmdRead:
		return seqLength == withData || seqLength == SequenceLength(0)
	default:
		return false
	}
}

// BodyValidLen returns the number of valid bytes in the BODY flit that
// follows received bytes of a length byte payload. Only the last BODY may be
// partial.
func BodyValidLen(length uint32, received, flitSize int) int {
	return min(flitSize, int(length)-received)
}
