// Package hbm models a banked high-bandwidth memory. Addresses are striped
// over channels in interleave blocks and every block carries a reader/writer
// lock, so accesses from concurrent bridges are checked for conflicts.
package hbm

import (
	"sync"
	"sync/atomic"

	"github.com/sarchlab/hbmnoc/mem/mem"
	"github.com/sarchlab/hbmnoc/sim"
)

// HookPosBlockLocked is triggered while an access holds the locks of all the
// blocks it touches. The item is an AccessInfo.
var HookPosBlockLocked = &sim.HookPos{Name: "HBM Block Locked"}

// AccessInfo describes an access that currently holds its block locks.
type AccessInfo struct {
	Req     mem.Request
	Channel int
	Offset  uint64
}

// Stats are the access counters of an HBM.
type Stats struct {
	Reads          uint64
	Writes         uint64
	BytesRead      uint64
	BytesWritten   uint64
	ReadConflicts  uint64
	WriteConflicts uint64
}

type channel struct {
	data  []byte
	locks []sync.RWMutex
}

// segment is the part of an access that falls into one interleave block.
type segment struct {
	channel int
	offset  uint64
	start   uint64
	length  uint64
}

// Comp is a banked memory. It is safe for concurrent use. Hooks must be
// registered before the first access.
type Comp struct {
	sim.HookableBase

	name        string
	interleave  uint64
	channelSize uint64
	channels    []*channel

	reads          atomic.Uint64
	writes         atomic.Uint64
	bytesRead      atomic.Uint64
	bytesWritten   atomic.Uint64
	readConflicts  atomic.Uint64
	writeConflicts atomic.Uint64
}

// Name returns the name of the memory.
func (c *Comp) Name() string {
	return c.name
}

// NumChannels returns the number of channels.
func (c *Comp) NumChannels() int {
	return len(c.channels)
}

// TotalSize returns the capacity in bytes.
func (c *Comp) TotalSize() uint64 {
	return c.channelSize * uint64(len(c.channels))
}

// MapAddress returns the channel that holds addr and the offset of addr in
// that channel.
func (c *Comp) MapAddress(addr uint64) (ch int, offset uint64) {
	n := uint64(len(c.channels))
	block := addr / c.interleave
	ch = int(block % n)
	offset = (block/n)*c.interleave + addr%c.interleave

	return ch, offset
}

// Access serves one request.
func (c *Comp) Access(req mem.Request) mem.Response {
	switch req.Command {
	case mem.CmdRead:
		return c.read(req)
	case mem.CmdWrite:
		return c.write(req)
	default:
		return mem.Response{Status: mem.StatusCommandError}
	}
}

func (c *Comp) inRange(addr, length uint64) bool {
	end := addr + length
	return end >= addr && end <= c.TotalSize()
}

func (c *Comp) split(addr, length uint64) []segment {
	var segs []segment

	for done := uint64(0); done < length; {
		a := addr + done
		ch, off := c.MapAddress(a)
		n := min(c.interleave-a%c.interleave, length-done)
		segs = append(segs, segment{
			channel: ch,
			offset:  off,
			start:   done,
			length:  n,
		})
		done += n
	}

	return segs
}

func (c *Comp) lockOf(s segment) *sync.RWMutex {
	return &c.channels[s.channel].locks[s.offset/c.interleave]
}

func (c *Comp) read(req mem.Request) mem.Response {
	length := uint64(req.Length)
	if !c.inRange(req.Address, length) {
		return mem.Response{Status: mem.StatusAddressError}
	}

	segs := c.split(req.Address, length)
	conflicted := false

	for _, s := range segs {
		lock := c.lockOf(s)
		if !lock.TryRLock() {
			conflicted = true
			lock.RLock()
		}
	}

	data := make([]byte, length)
	for _, s := range segs {
		copy(data[s.start:s.start+s.length],
			c.channels[s.channel].data[s.offset:s.offset+s.length])
	}

	c.invokeLockedHook(req)

	for _, s := range segs {
		c.lockOf(s).RUnlock()
	}

	if conflicted {
		c.readConflicts.Add(1)
	}

	c.reads.Add(1)
	c.bytesRead.Add(length)

	return mem.Response{Status: mem.StatusOK, Data: data}
}

func (c *Comp) write(req mem.Request) mem.Response {
	if len(req.Data) != int(req.Length) {
		return mem.Response{Status: mem.StatusCommandError}
	}

	length := uint64(req.Length)
	if !c.inRange(req.Address, length) {
		return mem.Response{Status: mem.StatusAddressError}
	}

	segs := c.split(req.Address, length)

	for i, s := range segs {
		if !c.lockOf(s).TryLock() {
			for _, acquired := range segs[:i] {
				c.lockOf(acquired).Unlock()
			}

			c.writeConflicts.Add(1)

			return mem.Response{Status: mem.StatusRetry}
		}
	}

	for _, s := range segs {
		copy(c.channels[s.channel].data[s.offset:s.offset+s.length],
			req.Data[s.start:s.start+s.length])
	}

	c.invokeLockedHook(req)

	for _, s := range segs {
		c.lockOf(s).Unlock()
	}

	c.writes.Add(1)
	c.bytesWritten.Add(length)

	return mem.Response{Status: mem.StatusOK}
}

func (c *Comp) invokeLockedHook(req mem.Request) {
	if c.NumHooks() == 0 {
		return
	}

	ch, off := c.MapAddress(req.Address)
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosBlockLocked,
		Item:   AccessInfo{Req: req, Channel: ch, Offset: off},
	})
}

// Stats returns a snapshot of the access counters.
func (c *Comp) Stats() Stats {
	return Stats{
		Reads:          c.reads.Load(),
		Writes:         c.writes.Load(),
		BytesRead:      c.bytesRead.Load(),
		BytesWritten:   c.bytesWritten.Load(),
		ReadConflicts:  c.readConflicts.Load(),
		WriteConflicts: c.writeConflicts.Load(),
	}
}
