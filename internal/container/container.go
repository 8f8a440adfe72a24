// Package container implements the DI Container of spec.md §4.C: a
// string-keyed capability registry with lazy, once-per-process singleton
// resolution and cycle detection. Grounded on the fabric-style
// ServiceContainer pattern from the example pack (type/name-indexed
// registrations guarded by sync.RWMutex, first-writer-wins construction)
// and on the reference platform's manual Options-based wiring, which
// is what this container generalizes into an explicit, testable graph.
package container

import (
	"fmt"
	"sync"

	"github.com/dataexplorer/core/internal/apperr"
)

// Factory builds a capability instance, given a Resolver to pull its own
// transitive dependencies from.
type Factory func(r Resolver) (any, error)

// Resolver is the read side of the Container, handed to factories so
// they cannot accidentally call Bind/Seal.
type Resolver interface {
	Resolve(name string) (any, error)
}

type binding struct {
	factory   Factory
	singleton bool
	instance  any
	built     bool
	buildMu   sync.Mutex
}

// Container binds capability names to provider factories and resolves
// the transitive dependency graph on demand.
type Container struct {
	mu       sync.RWMutex
	bindings map[string]*binding
	sealed   bool

	resolvingMu sync.Mutex
	resolving   map[string]bool // cycle-detection stack, guarded by resolvingMu
}

// New creates an empty, unsealed Container.
func New() *Container {
	return &Container{
		bindings:  make(map[string]*binding),
		resolving: make(map[string]bool),
	}
}

// BindOption configures a single Bind call.
type BindOption func(*binding)

// Transient marks a capability as constructed fresh on every Resolve
// call instead of cached as a process-wide singleton.
func Transient() BindOption {
	return func(b *binding) { b.singleton = false }
}

// Bind registers name to be built by factory. Bind fails once the
// container has been Sealed.
func (c *Container) Bind(name string, factory Factory, opts ...BindOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return apperr.New(apperr.KindInternal, "container: Bind called after Seal for "+name)
	}

	b := &binding{factory: factory, singleton: true}
	for _, opt := range opts {
		opt(b)
	}

	c.bindings[name] = b

	return nil
}

// Seal freezes the binding set. After Seal, Bind returns an error.
func (c *Container) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (c *Container) Sealed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sealed
}

// Resolve walks the transitive factory graph for name, returning the
// built capability instance. Concurrent first-resolutions of the same
// singleton capability construct exactly one instance (first-writer-wins
// per-name lock); cycles return ErrCycle, missing bindings return
// ErrUnbound.
func (c *Container) Resolve(name string) (any, error) {
	c.mu.RLock()
	b, ok := c.bindings[name]
	c.mu.RUnlock()

	if !ok {
		return nil, apperr.New(apperr.KindUnbound, "no binding for capability "+name)
	}

	if !b.singleton {
		return c.build(name, b)
	}

	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	if b.built {
		return b.instance, nil
	}

	instance, err := c.build(name, b)
	if err != nil {
		return nil, err
	}

	b.instance = instance
	b.built = true

	return instance, nil
}

func (c *Container) build(name string, b *binding) (any, error) {
	c.resolvingMu.Lock()
	if c.resolving[name] {
		c.resolvingMu.Unlock()
		return nil, apperr.New(apperr.KindCycle, fmt.Sprintf("capability resolution cycle detected at %q", name))
	}

	c.resolving[name] = true
	c.resolvingMu.Unlock()

	defer func() {
		c.resolvingMu.Lock()
		delete(c.resolving, name)
		c.resolvingMu.Unlock()
	}()

	return b.factory(c)
}

// MustResolve panics on resolution failure. Reserved for startup paths,
// matching the reference platform's convention that ErrConfig/ErrUnbound/
// ErrCycle are the only kinds allowed to abort the process outright.
func (c *Container) MustResolve(name string) any {
	v, err := c.Resolve(name)
	if err != nil {
		panic(err)
	}

	return v
}

// Names returns the set of bound capability names, for diagnostics and
// for the Module Registry's "does this capability resolve" startup check.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.bindings))
	for n := range c.bindings {
		names = append(names, n)
	}

	return names
}

// Bound reports whether name has a binding, without resolving it.
func (c *Container) Bound(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.bindings[name]

	return ok
}
