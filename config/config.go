// Package config holds the simulation-wide parameters. A Config is built
// once at startup and passed by value into every builder.
package config

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/sarchlab/hbmnoc/sim"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable set of parameters shared by all components.
type Config struct {
	MeshWidth  int
	MeshHeight int

	// FlitSize is the payload capacity of one flit in bytes.
	FlitSize int

	// BufferDepth is the capacity of every ingress buffer, per port per VC.
	BufferDepth int

	// EgressDepth is the capacity of each per-VC egress buffer of a router
	// port.
	EgressDepth int

	NumVCs int

	RoutingAlgorithm  string
	SelectionStrategy string

	// ReservationCadence is the number of ticks between two advances of the
	// round-robin start port of a router.
	ReservationCadence int

	HBMChannels   int
	HBMInterleave uint64
	HBMSize       uint64

	// NIUQueueDepth bounds the transactions waiting in an NIU.
	NIUQueueDepth int

	Freq       sim.Freq
	CycleLimit uint64
	Seed       int64

	TrafficPattern  string
	InjectionRate   float64
	NumTransactions int
	MinTxnLen       uint32
	MaxTxnLen       uint32
	Hotspots        []int
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		MeshWidth:          4,
		MeshHeight:         4,
		FlitSize:           128,
		BufferDepth:        4,
		EgressDepth:        2,
		NumVCs:             2,
		RoutingAlgorithm:   "xy",
		SelectionStrategy:  "buffer_level",
		ReservationCadence: 2,
		HBMChannels:        16,
		HBMInterleave:      256,
		HBMSize:            16 << 20,
		NIUQueueDepth:      4,
		Freq:               1 * sim.GHz,
		CycleLimit:         1_000_000,
		Seed:               1,
		TrafficPattern:     "random",
		InjectionRate:      0.05,
		NumTransactions:    64,
		MinTxnLen:          1,
		MaxTxnLen:          512,
	}
}

// NumNodes returns the number of tiles in the mesh.
func (c Config) NumNodes() int {
	return c.MeshWidth * c.MeshHeight
}

// Validate checks the configuration and returns all the problems found.
func (c Config) Validate() error {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs,
				fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.MeshWidth > 0, "mesh width %d must be positive", c.MeshWidth)
	check(c.MeshHeight > 0, "mesh height %d must be positive", c.MeshHeight)
	check(c.FlitSize > 0, "flit size %d must be positive", c.FlitSize)
	check(c.BufferDepth > 0, "buffer depth %d must be positive", c.BufferDepth)
	check(c.EgressDepth > 0, "egress depth %d must be positive", c.EgressDepth)
	check(c.NumVCs > 0 && c.NumVCs <= 64,
		"number of VCs %d must be in [1, 64]", c.NumVCs)
	check(c.ReservationCadence > 0,
		"reservation cadence %d must be positive", c.ReservationCadence)
	check(c.HBMChannels > 0, "HBM channels %d must be positive", c.HBMChannels)
	check(c.HBMInterleave > 0 && bits.OnesCount64(c.HBMInterleave) == 1,
		"HBM interleave %d must be a power of two", c.HBMInterleave)
	check(c.HBMChannels > 0 && c.HBMInterleave > 0 &&
		c.HBMSize%(uint64(c.HBMChannels)*c.HBMInterleave) == 0,
		"HBM size %d must be a multiple of channels x interleave", c.HBMSize)
	check(c.HBMSize > 0, "HBM size must be positive")
	check(c.NIUQueueDepth > 0, "NIU queue depth %d must be positive", c.NIUQueueDepth)
	check(c.Freq > 0, "frequency %g must be positive", float64(c.Freq))
	check(c.InjectionRate > 0 && c.InjectionRate <= 1,
		"injection rate %g must be in (0, 1]", c.InjectionRate)
	check(c.NumTransactions >= 0,
		"number of transactions %d must not be negative", c.NumTransactions)
	check(c.MinTxnLen > 0, "minimum transaction length must be positive")
	check(c.MinTxnLen <= c.MaxTxnLen,
		"transaction length range [%d, %d] is empty", c.MinTxnLen, c.MaxTxnLen)

	for _, h := range c.Hotspots {
		check(h >= 0 && h < c.NumNodes(), "hotspot %d is not a node", h)
	}

	return errors.Join(errs...)
}
