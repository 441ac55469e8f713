package hbm

import (
	"log"
	"math/bits"
	"sync"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/sim"
)

// Builder can build HBM modules.
type Builder struct {
	numChannels int
	interleave  uint64
	totalSize   uint64
}

// MakeBuilder creates a builder with 16 channels, 256-byte interleaving and
// 16 MiB of storage.
func MakeBuilder() Builder {
	return Builder{
		numChannels: 16,
		interleave:  256,
		totalSize:   16 << 20,
	}
}

// WithConfig copies the HBM geometry from the simulation configuration.
func (b Builder) WithConfig(c config.Config) Builder {
	b.numChannels = c.HBMChannels
	b.interleave = c.HBMInterleave
	b.totalSize = c.HBMSize

	return b
}

// WithNumChannels sets the number of channels.
func (b Builder) WithNumChannels(n int) Builder {
	b.numChannels = n
	return b
}

// WithInterleave sets the size of the interleave block in bytes.
func (b Builder) WithInterleave(size uint64) Builder {
	b.interleave = size
	return b
}

// WithTotalSize sets the total capacity in bytes.
func (b Builder) WithTotalSize(size uint64) Builder {
	b.totalSize = size
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.numChannels <= 0 {
		log.Panicf("hbm: number of channels %d must be positive", b.numChannels)
	}

	if b.interleave == 0 || bits.OnesCount64(b.interleave) != 1 {
		log.Panicf("hbm: interleave %d must be a power of two", b.interleave)
	}

	if b.totalSize%(uint64(b.numChannels)*b.interleave) != 0 {
		log.Panicf("hbm: size %d must be a multiple of channels x interleave",
			b.totalSize)
	}
}

// Build creates an HBM with the given name.
func (b Builder) Build(name string) *Comp {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid()

	c := &Comp{
		name:        name,
		interleave:  b.interleave,
		channelSize: b.totalSize / uint64(b.numChannels),
	}

	numBlocks := c.channelSize / b.interleave
	for i := 0; i < b.numChannels; i++ {
		c.channels = append(c.channels, &channel{
			data:  make([]byte, c.channelSize),
			locks: make([]sync.RWMutex, numBlocks),
		})
	}

	return c
}
