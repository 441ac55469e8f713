package hbmctrl

import (
	"fmt"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/noc/messaging"
	"github.com/sarchlab/hbmnoc/sim"
)

// phase tags the state of the controller.
type phase int

const (
	phaseIdle phase = iota
	phaseWrite
	phaseRead
	phaseRespond
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseWrite:
		return "Write"
	case phaseRead:
		return "Read"
	case phaseRespond:
		return "Respond"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// state is the whole progress of the transaction being served, in plain
// data. Only the fields of the current phase are meaningful.
type state struct {
	phase phase

	txnID     string
	src       int
	vc        int
	timestamp sim.VTimeInCycle

	// Write: addr is where the next BODY lands. Respond: addr is where the
	// next BODY is read from.
	addr      uint64
	length    uint32
	remaining uint32

	// seqNo is the last sequence number consumed (Write, Read) or the next
	// one to produce (Respond).
	seqNo     int
	seqLength int
}

func violation(kind sim.ViolationKind, format string, args ...any) error {
	return &sim.FatalError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// next returns the state after consuming f. It does not touch the memory,
// so the caller may drop the result when the memory asks for a retry.
func next(s state, f *messaging.Flit, flitSize int) (state, error) {
	switch s.phase {
	case phaseIdle:
		return nextFromIdle(f, flitSize)
	case phaseWrite, phaseRead:
		return nextInSequence(s, f, flitSize)
	default:
		return s, violation(sim.MalformedSequence,
			"flit %s consumed while in phase %s", f, s.phase)
	}
}

func nextFromIdle(f *messaging.Flit, flitSize int) (state, error) {
	idle := state{}

	if f.Type != messaging.FlitHead || f.SeqNo != 0 {
		return idle, violation(sim.MalformedSequence,
			"sequence starts with %s", f)
	}

	s := state{
		txnID:     f.TxnID,
		src:       f.Src,
		vc:        f.VC,
		timestamp: f.Timestamp,
		addr:      f.Addr,
		length:    f.Len,
		remaining: f.Len,
		seqLength: f.SeqLength,
	}

	switch f.Cmd {
	case mem.CmdWrite:
		s.phase = phaseWrite
	case mem.CmdRead:
		s.phase = phaseRead
	default:
		return idle, violation(sim.UnknownCommand,
			"command %s in %s", f.Cmd, f)
	}

	if !messaging.ValidSeqLength(f.Cmd, f.Len, f.SeqLength, flitSize) {
		return idle, violation(sim.MalformedSequence,
			"HEAD %s announces %d flits for %d bytes", f, f.SeqLength, f.Len)
	}

	return s, nil
}

func nextInSequence(
	s state,
	f *messaging.Flit,
	flitSize int,
) (state, error) {
	if f.Src != s.src {
		return s, violation(sim.SourceMismatch,
			"flit %s in the sequence from %d", f, s.src)
	}

	if f.SeqNo != s.seqNo+1 || f.SeqLength != s.seqLength {
		return s, violation(sim.MalformedSequence,
			"flit %s after %d/%d", f, s.seqNo, s.seqLength)
	}

	s.seqNo = f.SeqNo

	switch f.Type {
	case messaging.FlitBody:
		return nextOnBody(s, f, flitSize)
	case messaging.FlitTail:
		return nextOnTail(s, f, flitSize)
	default:
		return s, violation(sim.MalformedSequence,
			"HEAD %s inside a sequence", f)
	}
}

func nextOnBody(s state, f *messaging.Flit, flitSize int) (state, error) {
	if s.phase == phaseRead {
		return s, violation(sim.MalformedSequence,
			"read request carries BODY %s", f)
	}

	if f.SeqNo == s.seqLength-1 {
		return s, violation(sim.MalformedSequence,
			"BODY %s takes the place of the TAIL", f)
	}

	want := messaging.BodyValidLen(s.length, int(s.length-s.remaining), flitSize)
	if f.ValidLen != want {
		return s, violation(sim.LengthMismatch,
			"BODY %s carries %d bytes, expected %d", f, f.ValidLen, want)
	}

	n := uint32(f.ValidLen)

	s.addr += uint64(n)
	s.remaining -= n

	return s, nil
}

func nextOnTail(s state, f *messaging.Flit, flitSize int) (state, error) {
	if f.SeqNo != s.seqLength-1 {
		return s, violation(sim.MalformedSequence,
			"TAIL %s before the end of the sequence", f)
	}

	if s.phase == phaseWrite {
		if s.remaining != 0 {
			return s, violation(sim.LengthMismatch,
				"write %s ended with %d bytes missing", s.txnID, s.remaining)
		}

		return state{}, nil
	}

	s.phase = phaseRespond
	s.seqNo = 0
	s.seqLength = messaging.SequenceLength(
		messaging.NumBodyFlits(s.length, flitSize))
	s.remaining = s.length

	return s, nil
}
