package plugin

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/sbvh/botcore/errors"
)

// Registry holds every plugin registration known to the running process,
// keyed by plugin name.
type Registry struct {
	mu          sync.RWMutex
	plugins     map[string]Registration
	coreVersion string
}

// NewRegistry creates an empty registry. coreVersion gates registrations
// that declare a MinCoreVersion constraint.
func NewRegistry(coreVersion string) *Registry {
	return &Registry{
		plugins:     make(map[string]Registration),
		coreVersion: coreVersion,
	}
}

// Register installs reg under reg.Name. It fails if the name is already
// taken or reg.MinCoreVersion does not admit the running core version.
func (r *Registry) Register(reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg.Name == "" {
		return errors.New("plugin registration requires a name")
	}
	if _, exists := r.plugins[reg.Name]; exists {
		return errors.Newf("plugin already registered: %s", reg.Name)
	}
	if err := r.checkVersion(reg); err != nil {
		return errors.Wrapf(err, "version incompatible for %s", reg.Name)
	}

	r.plugins[reg.Name] = reg
	return nil
}

// Unregister removes a plugin's registration, e.g. on plugin unload. A
// scheduled job referencing a no-longer-registered plugin is auto-disabled
// at its next execution attempt rather than at unregister time.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plugins, name)
}

// Get retrieves a plugin registration by name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.plugins[name]
	return reg, ok
}

// List returns every registered plugin name in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) checkVersion(reg Registration) error {
	if reg.MinCoreVersion == "" {
		return nil
	}

	coreVer, err := semver.NewVersion(r.coreVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid core version %s", r.coreVersion)
	}

	constraint, err := semver.NewConstraint(reg.MinCoreVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %s", reg.MinCoreVersion)
	}

	if !constraint.Check(coreVer) {
		return errors.Newf("requires core %s, running %s", reg.MinCoreVersion, r.coreVersion)
	}
	return nil
}

// Global registry instance, mirroring the one-time-init convenience the
// host platform's own plugin surface exposes so call sites that don't want
// to thread a *Registry through can still reach the running set.
var (
	defaultRegistry *Registry
	registryMu      sync.RWMutex
)

// SetDefaultRegistry installs the process-wide registry. Call once at
// startup; a second call panics.
func SetDefaultRegistry(registry *Registry) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if defaultRegistry != nil {
		panic("default registry already initialized - call SetDefaultRegistry only once")
	}
	defaultRegistry = registry
}

// DefaultRegistry returns the process-wide registry, or nil if unset.
func DefaultRegistry() *Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return defaultRegistry
}
