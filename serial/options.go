package serial

import (
	"github.com/arloliu/fastserial/internal/options"
)

type config struct {
	tracer         Tracer
	registry       *Registry
	factories      map[string]Factory
	defaultFactory func(t *SerializationType) Serializable
	eager          bool
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		tracer:   NopTracer{},
		registry: defaultRegistry,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Option configures a Serializer or Deserializer.
type Option = options.Option[*config]

// WithTracer installs a protocol event tracer.
func WithTracer(tracer Tracer) Option {
	return options.New(func(c *config) error {
		if tracer == nil {
			return options.Invalid("nil tracer")
		}
		c.tracer = tracer

		return nil
	})
}

// WithRegistry sets the registry a Deserializer resolves type names with.
func WithRegistry(registry *Registry) Option {
	return options.New(func(c *config) error {
		if registry == nil {
			return options.Invalid("nil registry")
		}
		c.registry = registry

		return nil
	})
}

// WithFactory overrides the factory for one type name. Overrides take
// precedence over the default factory and the registry.
func WithFactory(name string, factory Factory) Option {
	return options.New(func(c *config) error {
		if name == "" || factory == nil {
			return options.Invalid("factory for %q", name)
		}
		if c.factories == nil {
			c.factories = make(map[string]Factory)
		}
		c.factories[name] = factory

		return nil
	})
}

// WithDefaultFactory installs a fallback consulted before the registry for
// names without an explicit factory. Returning nil defers to the registry.
func WithDefaultFactory(fn func(t *SerializationType) Serializable) Option {
	return options.New(func(c *config) error {
		if fn == nil {
			return options.Invalid("nil default factory")
		}
		c.defaultFactory = fn

		return nil
	})
}

// WithEagerRead makes the Deserializer read every top-level forward definition
// in stream order right after the entry object, instead of seeking to them on demand.
func WithEagerRead() Option {
	return options.NoError(func(c *config) {
		c.eager = true
	})
}
