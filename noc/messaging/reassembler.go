package messaging

import (
	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

// A Reassembler rebuilds transactions from the flits of one virtual channel.
// Any deviation from a well-formed sequence is a fatal error.
type Reassembler struct {
	where    string
	flitSize int

	head    *Flit
	lastSeq int
	numBody int
	data    []byte
}

// NewReassembler creates a reassembler for flits of flitSize payload bytes.
// Where names the owner in fatal errors.
func NewReassembler(where string, flitSize int) *Reassembler {
	return &Reassembler{where: where, flitSize: flitSize}
}

// InProgress tells if a HEAD has been accepted and its TAIL has not.
func (r *Reassembler) InProgress() bool {
	return r.head != nil
}

// Accept consumes one flit. It returns the transaction once its TAIL has
// been accepted and nil otherwise.
func (r *Reassembler) Accept(f *Flit) *Transaction {
	if r.head == nil {
		r.start(f)
		return nil
	}

	r.mustContinue(f)

	switch f.Type {
	case FlitBody:
		r.appendBody(f)
		return nil
	case FlitTail:
		return r.finish(f)
	default:
		sim.Fatalf(r.where, sim.MalformedSequence,
			"flit %s arrived inside the sequence of %s", f, r.head.TxnID)
	}

	return nil
}

func (r *Reassembler) start(f *Flit) {
	if f.Type != FlitHead {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"sequence starts with %s", f)
	}

	if f.SeqNo != 0 || f.SeqLength < 2 {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"HEAD %s has bad numbering", f)
	}

	if !ValidSeqLength(f.Cmd, f.Len, f.SeqLength, r.flitSize) {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"HEAD %s announces %d flits for %s of %d bytes",
			f, f.SeqLength, f.Cmd, f.Len)
	}

	r.head = f
	r.lastSeq = 0
	r.numBody = 0
	r.data = nil
}

func (r *Reassembler) mustContinue(f *Flit) {
	if f.Src != r.head.Src {
		sim.Fatalf(r.where, sim.SourceMismatch,
			"flit %s interleaves the sequence from node %d",
			f, r.head.Src)
	}

	if f.SeqNo != r.lastSeq+1 || f.SeqLength != r.head.SeqLength {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"flit %s does not follow seq %d of %d",
			f, r.lastSeq, r.head.SeqLength)
	}

	r.lastSeq = f.SeqNo
}

func (r *Reassembler) appendBody(f *Flit) {
	if f.ValidLen < 0 || f.ValidLen > len(f.Data) {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"flit %s has %d valid bytes in a %d byte payload",
			f, f.ValidLen, len(f.Data))
	}

	if f.SeqNo == r.head.SeqLength-1 {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"BODY %s takes the place of the TAIL", f)
	}

	if r.data == nil {
		r.data = make([]byte, 0, r.head.Len)
	}

	want := BodyValidLen(r.head.Len, len(r.data), r.flitSize)
	if f.ValidLen != want {
		sim.Fatalf(r.where, sim.LengthMismatch,
			"BODY %s of %s carries %d bytes, expected %d",
			f, r.head.TxnID, f.ValidLen, want)
	}

	r.data = append(r.data, f.Payload()...)
	r.numBody++
}

func (r *Reassembler) finish(f *Flit) *Transaction {
	if f.SeqNo != r.head.SeqLength-1 {
		sim.Fatalf(r.where, sim.MalformedSequence,
			"TAIL %s ends the sequence early", f)
	}

	head := r.head
	data := r.data

	withData := r.numBody > 0 || head.Cmd == mem.CmdWrite
	if withData && len(data) != int(head.Len) {
		sim.Fatalf(r.where, sim.LengthMismatch,
			"%s carried %d bytes, expected %d",
			head.TxnID, len(data), head.Len)
	}

	if withData && data == nil {
		data = []byte{}
	}

	r.head = nil
	r.data = nil

	return &Transaction{
		ID:   head.TxnID,
		Cmd:  head.Cmd,
		Src:  head.Src,
		Dst:  head.Dst,
		Addr: head.Addr,
		Len:  head.Len,
		Data: data,
	}
}
