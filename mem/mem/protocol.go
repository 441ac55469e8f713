// Package mem defines the transaction protocol spoken between bridges and
// memories.
package mem

import "fmt"

// Command is the operation requested by a transaction.
type Command uint8

// The supported commands. Any other value is answered with
// StatusCommandError.
const (
	CmdRead Command = iota
	CmdWrite
)

func (c Command) String() string {
	switch c {
	case CmdRead:
		return "READ"
	case CmdWrite:
		return "WRITE"
	default:
		return fmt.Sprintf("CMD(%d)", uint8(c))
	}
}

// Status tells how a request was served.
type Status uint8

// StatusRetry is not an error. The caller must resubmit the identical request
// later.
const (
	StatusOK Status = iota
	StatusRetry
	StatusAddressError
	StatusCommandError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRetry:
		return "RETRY"
	case StatusAddressError:
		return "ADDRESS_ERROR"
	case StatusCommandError:
		return "COMMAND_ERROR"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// A Request asks a memory to read or write a contiguous range.
type Request struct {
	Command Command
	Address uint64
	Length  uint32

	// Data is owned by the request and only set for writes.
	Data []byte
}

// A Response carries the status of a request and, for reads, the data.
type Response struct {
	Status Status
	Data   []byte
}

// ReadReq builds a read request.
func ReadReq(addr uint64, length uint32) Request {
	return Request{Command: CmdRead, Address: addr, Length: length}
}

// WriteReq builds a write request that takes ownership of data.
func WriteReq(addr uint64, data []byte) Request {
	return Request{
		Command: CmdWrite,
		Address: addr,
		Length:  uint32(len(data)),
		Data:    data,
	}
}

// A Memory serves requests. Implementations may return StatusRetry on
// contention.
type Memory interface {
	Access(req Request) Response
}
