package messaging

import (
	"log"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

// A Sequencer cuts a transaction into flits one at a time. Payload bytes are
// copied into the flits, so the sequencer never hands out the transaction's
// own data.
type Sequencer struct {
	txn      *Transaction
	flitSize int
	vc       int
	now      sim.VTimeInCycle
	numBody  int
	next     int
}

// NewSequencer creates a sequencer. Read requests carry no payload, while
// writes and read responses carry Len bytes.
func NewSequencer(
	txn *Transaction,
	flitSize, vc int,
	now sim.VTimeInCycle,
) *Sequencer {
	if flitSize <= 0 {
		log.Panicf("flit size must be positive, got %d", flitSize)
	}

	s := &Sequencer{
		txn:      txn,
		flitSize: flitSize,
		vc:       vc,
		now:      now,
	}

	if txn.Cmd == mem.CmdWrite || txn.IsReadResponse() {
		if len(txn.Data) != int(txn.Len) {
			log.Panicf("transaction %s has %d bytes of data but length %d",
				txn.ID, len(txn.Data), txn.Len)
		}

		s.numBody = NumBodyFlits(txn.Len, flitSize)
	}

	return s
}

// SeqLength returns the number of flits in the sequence.
func (s *Sequencer) SeqLength() int {
	return SequenceLength(s.numBody)
}

// Done tells if all the flits have been produced.
func (s *Sequencer) Done() bool {
	return s.next >= s.SeqLength()
}

// Peek builds the next flit without advancing. Each call builds a new flit.
func (s *Sequencer) Peek() *Flit {
	if s.Done() {
		return nil
	}

	b := MakeFlitBuilder().
		WithTxnID(s.txn.ID).
		WithSrc(s.txn.Src).
		WithDst(s.txn.Dst).
		WithVC(s.vc).
		WithSeq(s.next, s.SeqLength()).
		WithTimestamp(s.now)

	switch {
	case s.next == 0:
		b = b.WithType(FlitHead).
			WithHeader(s.txn.Cmd, s.txn.Addr, s.txn.Len)
	case s.next == s.SeqLength()-1:
		b = b.WithType(FlitTail)
	default:
		start := (s.next - 1) * s.flitSize
		end := min(start+s.flitSize, int(s.txn.Len))
		b = b.WithType(FlitBody).
			WithPayload(s.flitSize, s.txn.Data[start:end])
	}

	return b.Build()
}

// Advance moves past the flit returned by the last Peek.
func (s *Sequencer) Advance() {
	if s.Done() {
		panic("advancing a finished sequencer")
	}

	s.next++
}

// Next returns the next flit and advances.
func (s *Sequencer) Next() *Flit {
	f := s.Peek()
	if f != nil {
		s.Advance()
	}

	return f
}

// Decompose cuts a transaction into its whole flit sequence.
func Decompose(
	txn *Transaction,
	flitSize, vc int,
	now sim.VTimeInCycle,
) []*Flit {
	s := NewSequencer(txn, flitSize, vc, now)
	flits := make([]*Flit, 0, s.SeqLength())

	for !s.Done() {
		flits = append(flits, s.Next())
	}

	return flits
}
