package stream

import (
	"math"

	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/internal/options"
	"github.com/arloliu/fastserial/internal/pool"
)

const (
	// DefaultMaxMemorySize caps MemoryWriter at the largest stream a 32-bit label can address.
	DefaultMaxMemorySize = math.MaxUint32 - 1
	// DefaultWindowSize is the initial refill window of IOReader and the mmap view size of MappedFileReader.
	DefaultWindowSize = 1024 * 64
	// DefaultBlockSize is the CachedReader block size.
	DefaultBlockSize = 1024 * 64
	// DefaultCacheBlocks is the number of blocks CachedReader keeps resident.
	DefaultCacheBlocks = 16
	// DefaultFlushThreshold is the buffered byte count at which IOWriter flushes.
	DefaultFlushThreshold = 1024 * 64
)

// config is shared by every writer and reader; each constructor reads the fields it needs.
type config struct {
	labelWidth      format.LabelWidth
	maxSize         int64
	initialCapacity int
	segmentShift    uint
	windowSize      int
	blockSize       int
	cacheBlocks     int
	flushThreshold  int
	prefetch        bool
}

func defaultConfig() *config {
	return &config{
		labelWidth:      format.LabelWidth32,
		maxSize:         0,
		initialCapacity: pool.StreamBufferDefaultSize,
		segmentShift:    16,
		windowSize:      DefaultWindowSize,
		blockSize:       DefaultBlockSize,
		cacheBlocks:     DefaultCacheBlocks,
		flushThreshold:  DefaultFlushThreshold,
		prefetch:        true,
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Option configures a stream writer or reader.
type Option = options.Option[*config]

// WithLabelWidth sets the on-disk label width. Writer and reader must agree.
func WithLabelWidth(width format.LabelWidth) Option {
	return options.New(func(c *config) error {
		if !width.IsValid() {
			return options.Invalid("label width %d", width)
		}
		c.labelWidth = width

		return nil
	})
}

// WithMaxSize caps the number of bytes a memory or segmented writer may hold.
// Writes past the cap fail with errs.ErrCapacityExceeded.
func WithMaxSize(n int64) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return options.Invalid("max size %d", n)
		}
		c.maxSize = n

		return nil
	})
}

// WithInitialCapacity sets the initial buffer capacity of MemoryWriter.
func WithInitialCapacity(n int) Option {
	return options.New(func(c *config) error {
		if n < 0 {
			return options.Invalid("initial capacity %d", n)
		}
		c.initialCapacity = n

		return nil
	})
}

// WithSegmentShift sets the log2 segment size of SegmentedWriter.
func WithSegmentShift(shift uint) Option {
	return options.New(func(c *config) error {
		if shift == 0 || shift > 30 {
			return options.Invalid("segment shift %d", shift)
		}
		c.segmentShift = shift

		return nil
	})
}

// WithWindowSize sets the initial read window of IOReader and the view size of MappedFileReader.
func WithWindowSize(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return options.Invalid("window size %d", n)
		}
		c.windowSize = n

		return nil
	})
}

// WithBlockSize sets the CachedReader block size.
func WithBlockSize(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return options.Invalid("block size %d", n)
		}
		c.blockSize = n

		return nil
	})
}

// WithCacheBlocks sets how many blocks CachedReader keeps resident. At least two are required
// so the current block and the read-ahead block can coexist.
func WithCacheBlocks(n int) Option {
	return options.New(func(c *config) error {
		if n < 2 {
			return options.Invalid("cache blocks %d", n)
		}
		c.cacheBlocks = n

		return nil
	})
}

// WithFlushThreshold sets the number of buffered bytes at which IOWriter writes through.
func WithFlushThreshold(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return options.Invalid("flush threshold %d", n)
		}
		c.flushThreshold = n

		return nil
	})
}

// WithPrefetch enables or disables CachedReader background read-ahead.
func WithPrefetch(enabled bool) Option {
	return options.NoError(func(c *config) {
		c.prefetch = enabled
	})
}
