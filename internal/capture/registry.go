package capture

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a new, unconnected captor.
type Factory func() Captor

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a captor factory available under the given name.
// Captors call this from init; a later registration under the same
// name replaces the earlier one.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	return factory, ok
}

// IsRegistered reports whether a captor exists under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListCaptors returns the registered captor names in sorted order.
func ListCaptors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownCaptorError is returned when a config names a database type
// that no captor is registered for.
type UnknownCaptorError struct {
	Type      string
	Available []string
}

func (e *UnknownCaptorError) Error() string {
	return fmt.Sprintf("unknown database type %q (available: %s) - check the databases section of schemawatch.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

// New instantiates the captor for cfg.Type. The captor is not yet
// connected; call Connect before Snapshot.
func New(cfg Config) (Captor, error) {
	if cfg.Type == "" {
		return nil, errors.New("database type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownCaptorError{Type: cfg.Type, Available: ListCaptors()}
	}
	return factory(), nil
}
