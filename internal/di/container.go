// Package di wires the orchestrator's services together: configuration,
// logging, the orphan sweeper and the compile Orchestrator itself. It is deliberately smaller than a general-purpose container —
// this server only ever needs one instance of each service — but keeps the
// teacher's named-factory-with-singleton-caching shape so the wiring stays
// legible as a dependency graph instead of a pile of constructor calls in
// main().
//
// Grounded on the teacher's internal/di.ServiceContainer
// (internal/di/container.go): same Register/Get/singleton-cache
// vocabulary, trimmed of the reflect-based GetByType/GetByTag lookups and
// the wait-group-based concurrent-creation coordination (this container is
// built once per CLI invocation before any concurrent use, so a single
// mutex held only around map access is enough; the "creating" map exists
// purely to turn an accidental factory cycle into an error instead of a
// deadlock).
package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/conneroisu/compileorch/internal/compile"
	"github.com/conneroisu/compileorch/internal/config"
	"github.com/conneroisu/compileorch/internal/logging"
	"github.com/conneroisu/compileorch/internal/orphan"
)

// FactoryFunc creates a service instance, looking up its own dependencies
// through the container passed to it.
type FactoryFunc func(c *Container) (interface{}, error)

// Container is a minimal named-singleton service registry.
type Container struct {
	cfg *config.Config

	mu        sync.Mutex
	factories map[string]FactoryFunc
	creating  map[string]bool
	instances map[string]interface{}
}

// New returns a Container seeded with cfg and the orchestrator's core
// service factories already registered (but not yet instantiated —
// instantiation happens lazily on first Get).
func New(cfg *config.Config) *Container {
	c := &Container{
		cfg:       cfg,
		factories: make(map[string]FactoryFunc),
		creating:  make(map[string]bool),
		instances: make(map[string]interface{}),
	}
	c.registerCoreServices()
	return c
}

// Register adds or replaces a named service factory. Call before the first
// Get of that name; replacing a factory after the service has already been
// instantiated has no effect on the cached instance.
func (c *Container) Register(name string, factory FactoryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// Get resolves name, creating and caching it on first use.
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.Lock()
	if instance, ok := c.instances[name]; ok {
		c.mu.Unlock()
		return instance, nil
	}
	if c.creating[name] {
		c.mu.Unlock()
		return nil, fmt.Errorf("di: circular dependency on %q", name)
	}
	factory, ok := c.factories[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("di: service %q not registered", name)
	}
	c.creating[name] = true
	c.mu.Unlock()

	instance, err := factory(c)

	c.mu.Lock()
	delete(c.creating, name)
	if err == nil {
		c.instances[name] = instance
	}
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("di: create %q: %w", name, err)
	}
	return instance, nil
}

// MustGet resolves name and panics on error. Reserved for wiring paths
// where the service's absence is a programming error, not a runtime one
// (e.g. a handler reaching for a service it registered itself).
func (c *Container) MustGet(name string) interface{} {
	instance, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return instance
}

func (c *Container) registerCoreServices() {
	c.Register("logger", func(c *Container) (interface{}, error) {
		return logging.New(logging.DefaultConfig()), nil
	})

	c.Register("orphan", func(c *Container) (interface{}, error) {
		if !c.cfg.Orphan.Enabled {
			return (*orphan.Sweeper)(nil), nil
		}
		logger, err := c.Logger()
		if err != nil {
			return nil, err
		}
		root := internalClassesRoot(c.cfg.OutRoot)
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create internal classes root: %w", err)
		}
		return orphan.New(root, c.cfg.Orphan.TTL, logger)
	})

	c.Register("orchestrator", func(c *Container) (interface{}, error) {
		return compile.New(""), nil
	})
}

// Logger returns the shared logging.Logger, instantiating it on first use.
func (c *Container) Logger() (logging.Logger, error) {
	instance, err := c.Get("logger")
	if err != nil {
		return nil, err
	}
	return instance.(logging.Logger), nil
}

// Orphan returns the shared orphan.Sweeper. It is nil when
// config.OrphanConfig.Enabled is false; callers must check before calling
// Start.
func (c *Container) Orphan() (*orphan.Sweeper, error) {
	instance, err := c.Get("orphan")
	if err != nil {
		return nil, err
	}
	return instance.(*orphan.Sweeper), nil
}

// Orchestrator returns the shared compile.Orchestrator.
func (c *Container) Orchestrator() (*compile.Orchestrator, error) {
	instance, err := c.Get("orchestrator")
	if err != nil {
		return nil, err
	}
	return instance.(*compile.Orchestrator), nil
}

// Shutdown releases any service that owns a background resource. Currently
// that is only the orphan sweeper's fsnotify watch.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	instance, ok := c.instances["orphan"]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	sweeper, _ := instance.(*orphan.Sweeper)
	if sweeper == nil {
		return nil
	}
	return sweeper.Stop()
}

func internalClassesRoot(outRoot string) string {
	return filepath.Join(outRoot, "bloop-internal-classes")
}
