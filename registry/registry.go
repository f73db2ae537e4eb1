// Package registry maps node type identifiers to factories that build a
// node.Node from its static config.
//
// The source this engine is modeled on discovers node classes by walking
// a package tree at import time (pkgutil.iter_modules + inspect). Go has
// no runtime package-reflection equivalent, so concrete node packages
// register themselves explicitly, typically from an init() func, the same
// way the teacher's coordinator/router.go registers custom mappings.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lyzr/flowengine/node"
)

// Factory builds a node.Node instance from its static config.
type Factory func(cfg node.Config) (node.Node, error)

// Registry is a concurrency-safe identifier -> Factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under identifier, overwriting any prior
// registration for the same identifier.
func (r *Registry) Register(identifier string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[identifier] = factory
}

// Create instantiates the node registered under cfg.Type. It returns an
// error naming the available types when cfg.Type is unknown, matching the
// diagnostic the source registry raises.
func (r *Registry) Create(cfg node.Config) (node.Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown node type %q for node id %q. Available types: %v",
			cfg.Type, cfg.ID, r.Types())
	}
	return factory(cfg)
}

// Types returns the sorted list of registered identifiers.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
