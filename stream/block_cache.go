package stream

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
)

// cacheBlock is one fixed-size, file-aligned block of a CachedReader.
// done is closed once data[:n] (or err) is final.
type cacheBlock struct {
	index   int64
	data    []byte
	n       int
	err     error
	refs    atomic.Int32
	done    chan struct{}
	lastUse uint64
}

func (b *cacheBlock) ready() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// blockCache keeps up to maxBlocks blocks of an io.ReaderAt resident and
// evicts the least recently used unreferenced block when full.
type blockCache struct {
	ra        io.ReaderAt
	size      int64
	blockSize int
	maxBlocks int

	mu     sync.Mutex
	blocks map[int64]*cacheBlock
	clock  uint64

	prefetcher *ants.Pool
	inflight   sync.WaitGroup
}

func newBlockCache(ra io.ReaderAt, size int64, blockSize, maxBlocks int, prefetch bool) (*blockCache, error) {
	c := &blockCache{
		ra:        ra,
		size:      size,
		blockSize: blockSize,
		maxBlocks: maxBlocks,
		blocks:    make(map[int64]*cacheBlock, maxBlocks),
	}
	if prefetch {
		// One worker; a busy worker means the read-ahead is simply skipped.
		p, err := ants.NewPool(1, ants.WithNonblocking(true), ants.WithDisablePurge(true))
		if err != nil {
			return nil, errors.Wrap(err, "create prefetch pool")
		}
		c.prefetcher = p
	}

	return c, nil
}

// acquire returns block idx with its reference count raised, reading it if needed.
func (c *blockCache) acquire(idx int64) (*cacheBlock, error) {
	c.mu.Lock()
	b, ok := c.blocks[idx]
	if ok {
		b.refs.Inc()
		c.touchLocked(b)
		c.mu.Unlock()
		<-b.done
	} else {
		b = c.allocLocked(idx)
		b.refs.Inc()
		c.mu.Unlock()
		c.fill(b)
	}

	if b.err != nil {
		err := b.err
		c.release(b)
		c.drop(b)

		return nil, err
	}

	return b, nil
}

func (c *blockCache) release(b *cacheBlock) {
	b.refs.Dec()
}

// drop removes a failed block so a later acquire retries the read.
func (c *blockCache) drop(b *cacheBlock) {
	c.mu.Lock()
	if c.blocks[b.index] == b && b.refs.Load() == 0 {
		delete(c.blocks, b.index)
	}
	c.mu.Unlock()
}

// prefetch schedules a background read of block idx if it is not resident and
// a slot can be freed. It never blocks.
func (c *blockCache) prefetch(idx int64) {
	if c.prefetcher == nil || idx*int64(c.blockSize) >= c.size {
		return
	}

	c.mu.Lock()
	if _, ok := c.blocks[idx]; ok {
		c.mu.Unlock()
		return
	}
	if len(c.blocks) >= c.maxBlocks && c.victimLocked() == nil {
		c.mu.Unlock()
		return
	}
	b := c.allocLocked(idx)
	b.refs.Inc()
	c.mu.Unlock()

	c.inflight.Add(1)
	err := c.prefetcher.Submit(func() {
		defer c.inflight.Done()
		c.fill(b)
		c.release(b)
	})
	if err != nil {
		c.inflight.Done()
		c.mu.Lock()
		delete(c.blocks, idx)
		c.mu.Unlock()
	}
}

func (c *blockCache) fill(b *cacheBlock) {
	defer close(b.done)

	off := b.index * int64(c.blockSize)
	want := c.blockSize
	if remain := c.size - off; remain < int64(want) {
		want = int(remain)
	}

	n, err := c.ra.ReadAt(b.data[:want], off)
	if errors.Is(err, io.EOF) && n == want {
		err = nil
	}
	b.n = n
	if err != nil {
		b.err = errors.Wrapf(err, "read block %d", b.index)
	}
}

// allocLocked registers a new, unfilled block for idx, recycling the memory of
// an evicted block when the cache is full. c.mu must be held.
func (c *blockCache) allocLocked(idx int64) *cacheBlock {
	var data []byte
	if len(c.blocks) >= c.maxBlocks {
		if victim := c.victimLocked(); victim != nil {
			delete(c.blocks, victim.index)
			data = victim.data
		}
	}
	if data == nil {
		data = make([]byte, c.blockSize)
	}

	b := &cacheBlock{index: idx, data: data, done: make(chan struct{})}
	c.touchLocked(b)
	c.blocks[idx] = b

	return b
}

// victimLocked returns the least recently used block that is filled and unreferenced.
func (c *blockCache) victimLocked() *cacheBlock {
	var victim *cacheBlock
	for _, b := range c.blocks {
		if b.refs.Load() != 0 || !b.ready() {
			continue
		}
		if victim == nil || b.lastUse < victim.lastUse {
			victim = b
		}
	}

	return victim
}

func (c *blockCache) touchLocked(b *cacheBlock) {
	c.clock++
	b.lastUse = c.clock
}

// resident returns the number of blocks currently held.
func (c *blockCache) resident() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.blocks)
}

// close waits for in-flight read-ahead and stops the worker.
func (c *blockCache) close() {
	c.inflight.Wait()
	if c.prefetcher != nil {
		c.prefetcher.Release()
		c.prefetcher = nil
	}
}
