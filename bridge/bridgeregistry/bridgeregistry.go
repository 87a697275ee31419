// Package bridgeregistry names the available bridge transport backends.
//
// Backends typically register themselves in init():
//
//	bridgeregistry.MustRegister(bridgeregistry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
package bridgeregistry

import (
	"flag"
	"fmt"
	"sort"
	"sync"

	"namechain.dev/registry/bridge"
)

// Backend is a build-time plugin that can open a bridge.Bridge.
type Backend struct {
	Name        string
	Description string

	// RegisterFlags adds backend-specific flags to fs.
	// It must be safe to call exactly once per process.
	RegisterFlags func(fs *flag.FlagSet)

	// Open constructs the Bridge using values parsed into flags registered
	// by RegisterFlags. It returns an optional close function.
	Open func() (bridge.Bridge, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("bridgeregistry: backend name is required")
	}
	if b.RegisterFlags == nil {
		return fmt.Errorf("bridgeregistry: backend %q missing RegisterFlags", b.Name)
	}
	if b.Open == nil {
		return fmt.Errorf("bridgeregistry: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("bridgeregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns all backends, sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterFlags registers flags for all backends.
//
// This enables single-pass flag parsing (Go's flag package rejects unknown
// flags).
func RegisterFlags(fs *flag.FlagSet) {
	for _, b := range List() {
		b.RegisterFlags(fs)
	}
}

// Open opens the named backend if it exists.
func Open(name string) (bridge.Bridge, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown transport %q", name)
	}
	return b.Open()
}
