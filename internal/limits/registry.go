// Package limits holds the per-device-class biophysical ceiling table and
// its YAML configuration surface. Limit values are treated as configuration:
// deriving them is a domain-expert task, not this package's.
package limits

import (
	"github.com/stimguard/stimguard/internal/model"
)

// Registry is an immutable table of biophysical ceilings keyed by device
// class. It is built once at kernel construction and never mutated; a new
// envelope means a new registry and a new kernel instance.
type Registry struct {
	classes map[model.DeviceClass]model.BiophysicalLimits
	hash    string
}

// NewRegistry copies the given table into an immutable registry.
// The hash identifies the configuration the table came from and is stamped
// into every log record produced under this registry.
func NewRegistry(classes map[model.DeviceClass]model.BiophysicalLimits, hash string) *Registry {
	cp := make(map[model.DeviceClass]model.BiophysicalLimits, len(classes))
	for k, v := range classes {
		cp[k] = v
	}
	return &Registry{classes: cp, hash: hash}
}

// Lookup returns the envelope for a device class. The second return is
// false for classes absent from the table; callers must fail closed on it.
func (r *Registry) Lookup(class model.DeviceClass) (model.BiophysicalLimits, bool) {
	l, ok := r.classes[class]
	return l, ok
}

// Hash returns the SHA-256 hex digest of the configuration this registry
// was built from.
func (r *Registry) Hash() string {
	return r.hash
}

// Snapshot returns a copy of the full table, in export form. Mutating the
// copy does not affect the registry.
func (r *Registry) Snapshot() map[model.DeviceClass]model.BiophysicalLimits {
	cp := make(map[model.DeviceClass]model.BiophysicalLimits, len(r.classes))
	for k, v := range r.classes {
		cp[k] = v
	}
	return cp
}

// Len returns the number of configured classes.
func (r *Registry) Len() int {
	return len(r.classes)
}
