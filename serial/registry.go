package serial

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/internal/collision"
	"github.com/arloliu/fastserial/internal/hash"
)

type registration struct {
	name    string
	factory Factory
}

// Registry maps type names to factories. Lookups are lock-free; registrations
// are serialized so name collisions are detected reliably.
type Registry struct {
	factories *xsync.Map[uint64, registration]

	mu      sync.Mutex
	tracker *collision.Tracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: xsync.NewMap[uint64, registration](),
		tracker:   collision.NewTracker(),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when a Deserializer
// is not given one explicitly.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// MustRegister adds a factory to the default registry and panics on failure.
// It is meant for package init functions.
func MustRegister(name string, factory Factory) {
	if err := defaultRegistry.Register(name, factory); err != nil {
		panic(err)
	}
}

// Register adds factory under name.
//
// Returns:
//   - errs.ErrInvalidTypeName if name is empty or factory is nil
//   - errs.ErrTypeAlreadyRegistered if name is already registered
//   - errs.ErrTypeNameCollision if name hashes to the identifier of another name
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return errors.Wrapf(errs.ErrInvalidTypeName, "nil factory for %q", name)
	}

	id := hash.TypeID(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.tracker.Track(name, id); err != nil {
		return err
	}
	r.factories.Store(id, registration{name: name, factory: factory})

	return nil
}

// Unregister removes name. It reports whether name was registered.
func (r *Registry) Unregister(name string) bool {
	id := hash.TypeID(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.factories.Load(id)
	if !ok || reg.name != name {
		return false
	}
	r.factories.Delete(id)
	r.tracker.Forget(id)

	return true
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	reg, ok := r.factories.Load(hash.TypeID(name))
	if !ok || reg.name != name {
		return nil, false
	}

	return reg.factory, true
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.tracker.Names()...)
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return r.factories.Size()
}
