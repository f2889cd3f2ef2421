// Package bufpool recycles the byte slices used to stage Econet bulk
// transfers.
//
// Buffers come in three size classes matched to the blocks the
// transports carry:
//   - Small (512 bytes): one BeebEm data block or a file server request
//   - Medium (4KiB): one AUN data block
//   - Large (64KiB): the largest UDP datagram
//
// Larger requests are allocated directly and never pooled.
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// Default buffer size classes.
const (
	DefaultSmallSize  = 512
	DefaultMediumSize = 4 << 10
	DefaultLargeSize  = 64 << 10
)

// Pool hands out byte slices by size class.
type Pool struct {
	classes [3]sizeClass
}

type sizeClass struct {
	size int
	pool sync.Pool
}

// Config overrides the size classes. Zero fields keep the defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// NewPool creates a pool. A nil config uses the default classes.
func NewPool(cfg *Config) *Pool {
	sizes := [3]int{DefaultSmallSize, DefaultMediumSize, DefaultLargeSize}
	if cfg != nil {
		for i, v := range [3]int{cfg.SmallSize, cfg.MediumSize, cfg.LargeSize} {
			if v > 0 {
				sizes[i] = v
			}
		}
	}

	p := &Pool{}
	for i := range p.classes {
		c := &p.classes[i]
		c.size = sizes[i]
		c.pool.New = func() any {
			buf := make([]byte, c.size)
			return &buf
		}
	}
	return p
}

// Get returns a slice of length size. Its capacity is that of the
// smallest class that fits; the contents are not cleared.
//
// The caller must Put the slice back when done with it.
func (p *Pool) Get(size int) []byte {
	for i := range p.classes {
		c := &p.classes[i]
		if size <= c.size {
			buf := *c.pool.Get().(*[]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its class. Slices whose capacity matches no class
// are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) == c.size {
			full := buf[:cap(buf)]
			c.pool.Put(&full)
			return
		}
	}
}

var globalPool = NewPool(nil)

// Get returns a slice of length size from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a slice to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
