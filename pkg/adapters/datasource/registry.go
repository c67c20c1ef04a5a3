package datasource

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
	"github.com/nehasindhwani0110/k-gai/pkg/connstring"
)

// Registry maps dialects to their drivers. A Registry instance is safe for
// concurrent use. Tests construct their own registries; production code uses
// Default, which dialect subpackages populate from init().
type Registry struct {
	mu      sync.RWMutex
	drivers map[connstring.Dialect]*Driver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[connstring.Dialect]*Driver)}
}

// Register adds or replaces the driver for its dialect.
func (r *Registry) Register(d *Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Dialect] = d
}

// Resolve returns the driver for a dialect, or an unsupported-dialect error.
func (r *Registry) Resolve(dialect connstring.Dialect) (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.drivers[dialect]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDialect, dialect)
}

// Dialects returns the registered dialects, for diagnostics.
func (r *Registry) Dialects() []connstring.Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]connstring.Dialect, 0, len(r.drivers))
	for d := range r.drivers {
		out = append(out, d)
	}
	return out
}

// LoggerAware is implemented by introspectors that emit their own logs,
// such as warnings for tables skipped during a scan. Dialect packages
// register from init(), before any logger exists, so the logger is pushed
// in afterwards via SetLogger.
type LoggerAware interface {
	SetLogger(*zap.Logger)
}

// SetLogger hands the logger to every registered driver component that
// accepts one.
func (r *Registry) SetLogger(logger *zap.Logger) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.drivers {
		if la, ok := d.Introspector.(LoggerAware); ok {
			la.SetLogger(logger)
		}
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register is called by each dialect subpackage's init() function.
// Thread-safe for concurrent init() calls.
func Register(d *Driver) {
	defaultRegistry.Register(d)
}
