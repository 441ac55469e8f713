package messaging

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

// MaxTxnIDLen is the room reserved for the transaction id on the wire.
const MaxTxnIDLen = 32

// HeaderSize is the number of bytes before the payload in an encoded flit.
const HeaderSize = 4 + 4 + 1 + 1 + 4 + 4 + 8 + 2 + // routing
	1 + 8 + 4 + 4 + // transaction
	1 + 1 + 4 + 8 + 8 + // handshake
	MaxTxnIDLen

// ErrBadEncoding is returned when bytes cannot be decoded into a flit.
var ErrBadEncoding = errors.New("bad flit encoding")

const (
	flagValid = 1 << iota
	flagReady
)

// EncodedSize returns the size of every encoded flit.
func EncodedSize(flitSize int) int {
	return HeaderSize + flitSize
}

// Encode serializes a flit into a fixed-size frame. The payload area is
// always flitSize bytes and is zero for non-BODY flits.
func Encode(f *Flit, flitSize int) ([]byte, error) {
	if len(f.TxnID) > MaxTxnIDLen {
		return nil, fmt.Errorf("%w: transaction id %q is too long",
			ErrBadEncoding, f.TxnID)
	}

	if f.Type == FlitBody && len(f.Data) > flitSize {
		return nil, fmt.Errorf("%w: %d byte payload in %d byte flit",
			ErrBadEncoding, len(f.Data), flitSize)
	}

	b := make([]byte, 0, EncodedSize(flitSize))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(f.Src)))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(f.Dst)))
	b = append(b, uint8(f.VC), uint8(f.Type))
	b = binary.BigEndian.AppendUint32(b, uint32(f.SeqNo))
	b = binary.BigEndian.AppendUint32(b, uint32(f.SeqLength))
	b = binary.BigEndian.AppendUint64(b, uint64(f.Timestamp))
	b = binary.BigEndian.AppendUint16(b, uint16(f.HopNo))

	b = append(b, uint8(f.Cmd))
	b = binary.BigEndian.AppendUint64(b, f.Addr)
	b = binary.BigEndian.AppendUint32(b, f.Len)
	b = binary.BigEndian.AppendUint32(b, uint32(f.ValidLen))

	h := f.Handshake
	flags := uint8(0)

	if h.Valid {
		flags |= flagValid
	}

	if h.Ready {
		flags |= flagReady
	}

	b = append(b, uint8(h.Channel), flags)
	b = binary.BigEndian.AppendUint32(b, uint32(int32(h.ID)))
	b = binary.BigEndian.AppendUint64(b, h.Addr)
	b = binary.BigEndian.AppendUint64(b, h.Data)

	var id [MaxTxnIDLen]byte

	copy(id[:], f.TxnID)
	b = append(b, id[:]...)

	var payload []byte
	if f.Type == FlitBody {
		payload = f.Data
	}

	b = append(b, payload...)
	b = append(b, make([]byte, flitSize-len(payload))...)

	return b, nil
}

// Decode parses a frame produced by Encode.
func Decode(b []byte, flitSize int) (*Flit, error) {
	if len(b) != EncodedSize(flitSize) {
		return nil, fmt.Errorf("%w: %d bytes, expected %d",
			ErrBadEncoding, len(b), EncodedSize(flitSize))
	}

	r := reader{buf: b}
	f := &Flit{}

	f.Src = int(int32(r.u32()))
	f.Dst = int(int32(r.u32()))
	f.VC = int(r.u8())
	f.Type = FlitType(r.u8())
	f.SeqNo = int(r.u32())
	f.SeqLength = int(r.u32())
	f.Timestamp = sim.VTimeInCycle(r.u64())
	f.HopNo = int(r.u16())

	f.Cmd = mem.Command(r.u8())
	f.Addr = r.u64()
	f.Len = r.u32()
	f.ValidLen = int(r.u32())

	f.Handshake.Channel = Channel(r.u8())
	flags := r.u8()
	f.Handshake.Valid = flags&flagValid != 0
	f.Handshake.Ready = flags&flagReady != 0
	f.Handshake.ID = int(int32(r.u32()))
	f.Handshake.Addr = r.u64()
	f.Handshake.Data = r.u64()

	id := r.bytes(MaxTxnIDLen)
	end := 0

	for end < len(id) && id[end] != 0 {
		end++
	}

	f.TxnID = string(id[:end])

	if f.Type > FlitTail {
		return nil, fmt.Errorf("%w: unknown flit type %d",
			ErrBadEncoding, f.Type)
	}

	if f.ValidLen > flitSize {
		return nil, fmt.Errorf("%w: %d valid bytes in %d byte flit",
			ErrBadEncoding, f.ValidLen, flitSize)
	}

	if f.Type == FlitBody {
		f.Data = append([]byte(nil), r.bytes(flitSize)...)
	}

	return f, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) u8() uint8 {
	return r.bytes(1)[0]
}

func (r *reader) u16() uint16 {
	return binary.BigEndian.Uint16(r.bytes(2))
}

func (r *reader) u32() uint32 {
	return binary.BigEndian.Uint32(r.bytes(4))
}

func (r *reader) u64() uint64 {
	return binary.BigEndian.Uint64(r.bytes(8))
}
