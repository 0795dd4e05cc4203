package stream

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

type cachedSource struct {
	cache   *blockCache
	closer  io.Closer
	cur     *cacheBlock
	scratch []byte
}

func (s *cachedSource) view(pos int64, n int) ([]byte, error) {
	bs := int64(s.cache.blockSize)
	idx := pos / bs
	off := int(pos - idx*bs)

	if off+n <= s.cache.blockSize {
		b, err := s.block(idx)
		if err != nil {
			return nil, err
		}
		if off+n > b.n {
			return nil, errors.Newf("block %d holds %d bytes, need %d", idx, b.n, off+n)
		}

		return b.data[off : off+n], nil
	}

	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	copied := 0
	for copied < n {
		b, err := s.block(idx)
		if err != nil {
			return nil, err
		}
		if off >= b.n {
			return nil, errors.Newf("block %d holds %d bytes, need offset %d", idx, b.n, off)
		}
		copied += copy(s.scratch[copied:n], b.data[off:b.n])
		idx++
		off = 0
	}

	return s.scratch[:n], nil
}

// block pins block idx as the current block and schedules read-ahead of the next one.
func (s *cachedSource) block(idx int64) (*cacheBlock, error) {
	if s.cur != nil && s.cur.index == idx {
		return s.cur, nil
	}

	b, err := s.cache.acquire(idx)
	if err != nil {
		return nil, err
	}
	if s.cur != nil {
		s.cache.release(s.cur)
	}
	s.cur = b
	s.cache.prefetch(idx + 1)

	return b, nil
}

func (s *cachedSource) length() int64 { return s.cache.size }

func (s *cachedSource) close() error {
	if s.cur != nil {
		s.cache.release(s.cur)
		s.cur = nil
	}
	s.cache.close()
	if s.closer != nil {
		return s.closer.Close()
	}

	return nil
}

// CachedReader reads a stream through a cache of fixed-size blocks.
//
// Blocks are reference counted; the block under the read position is pinned
// and only unreferenced blocks are evicted. When prefetch is enabled, moving
// into block k schedules a background read of block k+1.
type CachedReader struct {
	primitiveReader
	src cachedSource
}

var _ Reader = (*CachedReader)(nil)

// NewCachedReader creates a reader over the first size bytes of ra.
// If ra implements io.Closer it is closed by Close.
//
// WithLabelWidth, WithBlockSize, WithCacheBlocks and WithPrefetch apply.
func NewCachedReader(ra io.ReaderAt, size int64, opts ...Option) (*CachedReader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	cache, err := newBlockCache(ra, size, cfg.blockSize, cfg.cacheBlocks, cfg.prefetch)
	if err != nil {
		return nil, err
	}

	r := &CachedReader{src: cachedSource{cache: cache}}
	if c, ok := ra.(io.Closer); ok {
		r.src.closer = c
	}
	r.init(&r.src, cfg.labelWidth)

	return r, nil
}

// OpenCachedFile opens path and returns a CachedReader over it.
func OpenCachedFile(path string, opts ...Option) (*CachedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	r, err := NewCachedReader(f, st.Size(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return r, nil
}
