package fastserial

import (
	"github.com/arloliu/fastserial/compress"
	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/internal/options"
	"github.com/arloliu/fastserial/serial"
	"github.com/arloliu/fastserial/stream"
)

type config struct {
	labelWidth  format.LabelWidth
	compression format.CompressionType
	level       int
	serialOpts  []serial.Option
	streamOpts  []stream.Option
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		labelWidth:  format.LabelWidth32,
		compression: format.CompressionLZ,
		level:       compress.DefaultLZLevel,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) streamOptions() []stream.Option {
	return append([]stream.Option{stream.WithLabelWidth(c.labelWidth)}, c.streamOpts...)
}

// Option configures the top-level Marshal, Unmarshal, Pack and file helpers.
type Option = options.Option[*config]

// WithLabelWidth sets the label width of the stream. Writer and reader must agree.
func WithLabelWidth(width format.LabelWidth) Option {
	return options.New(func(c *config) error {
		if !width.IsValid() {
			return options.Invalid("label width %d", width)
		}
		c.labelWidth = width

		return nil
	})
}

// WithCompression selects the codec used by Pack and MarshalCompressed.
// The default is format.CompressionLZ.
func WithCompression(compression format.CompressionType) Option {
	return options.New(func(c *config) error {
		if _, err := compress.GetCodec(compression); err != nil {
			return err
		}
		c.compression = compression

		return nil
	})
}

// WithCompressionLevel sets the level of the LZ codec (compress.LZMinLevel to compress.LZMaxLevel).
func WithCompressionLevel(level int) Option {
	return options.New(func(c *config) error {
		if level < compress.LZMinLevel || level > compress.LZMaxLevel {
			return options.Invalid("compression level %d", level)
		}
		c.level = level

		return nil
	})
}

// WithSerialOptions passes options to the underlying serial.Serializer or serial.Deserializer.
func WithSerialOptions(opts ...serial.Option) Option {
	return options.NoError(func(c *config) {
		c.serialOpts = append(c.serialOpts, opts...)
	})
}

// WithStreamOptions passes options to the underlying stream writer or reader.
func WithStreamOptions(opts ...stream.Option) Option {
	return options.NoError(func(c *config) {
		c.streamOpts = append(c.streamOpts, opts...)
	})
}
