package serial

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arloliu/fastserial/stream"
)

// Tracer receives protocol events from a Serializer or Deserializer.
//
// Event is only called when Enabled reports true.
type Tracer interface {
	Enabled() bool
	Event(event string, label stream.Label, typeName string)
}

// NopTracer discards all events.
type NopTracer struct{}

func (NopTracer) Enabled() bool { return false }

func (NopTracer) Event(string, stream.Label, string) {}

// ZapTracer logs protocol events at debug level.
type ZapTracer struct {
	logger *zap.Logger
}

var _ Tracer = (*ZapTracer)(nil)

// NewZapTracer creates a tracer logging to logger. A nil logger yields a no-op logger.
func NewZapTracer(logger *zap.Logger) *ZapTracer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ZapTracer{logger: logger.Named("fastserial")}
}

func (t *ZapTracer) Enabled() bool {
	return t.logger.Core().Enabled(zapcore.DebugLevel)
}

func (t *ZapTracer) Event(event string, label stream.Label, typeName string) {
	fields := []zap.Field{zap.Int64("label", int64(label))}
	if typeName != "" {
		fields = append(fields, zap.String("type", typeName))
	}
	t.logger.Debug(event, fields...)
}
