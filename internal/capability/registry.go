package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"concierge/internal/logging"
)

// RemoteSource is a secondary supplier of capability descriptors, such
// as a cached remote catalog. Implementations must be best-effort: a
// failing source returns no descriptors rather than an error, so the
// registry can degrade to static-only capabilities.
type RemoteSource interface {
	// Descriptors returns the currently known remote descriptors.
	Descriptors(ctx context.Context) []Descriptor

	// Invoke calls a remote capability. Failures come back as a failed
	// Result, never a panic.
	Invoke(ctx context.Context, name string, params map[string]any) *Result
}

// Registry holds all registered capabilities and provides uniform,
// failure-contained invocation. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	caps      map[string]Capability
	validator Validator
	remote    RemoteSource
}

// NewRegistry creates an empty registry with the default schema validator.
func NewRegistry() *Registry {
	return &Registry{
		caps:      make(map[string]Capability),
		validator: SchemaValidator{},
	}
}

// SetValidator replaces the parameter validator.
func (r *Registry) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// SetRemoteSource attaches a remote catalog as a fallback descriptor
// source. Static registrations take precedence on name collision.
func (r *Registry) SetRemoteSource(src RemoteSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remote = src
}

// Register adds a capability, overwriting any existing registration
// under the same name.
func (r *Registry) Register(impl Capability) error {
	desc := impl.Descriptor()
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid capability: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[desc.Name]; exists {
		logging.Get(logging.CategoryRegistry).Debugw("overwriting capability", "name", desc.Name)
	}
	r.caps[desc.Name] = impl

	logging.Get(logging.CategoryRegistry).Debugw("registered capability",
		"name", desc.Name, "category", desc.Category)
	return nil
}

// MustRegister registers a capability and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(impl Capability) {
	if err := r.Register(impl); err != nil {
		panic(fmt.Sprintf("failed to register capability %s: %v", impl.Descriptor().Name, err))
	}
}

// Has reports whether a name resolves statically.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// Count returns the number of statically registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caps)
}

// List enumerates all currently known descriptors: static ones plus
// whatever the remote source reports, with static winning collisions.
// The result is sorted by name.
func (r *Registry) List(ctx context.Context) []Descriptor {
	r.mu.RLock()
	remote := r.remote
	descs := make([]Descriptor, 0, len(r.caps))
	seen := make(map[string]bool, len(r.caps))
	for name, impl := range r.caps {
		d := impl.Descriptor()
		if d.Origin == "" {
			d.Origin = OriginStatic
		}
		descs = append(descs, d)
		seen[name] = true
	}
	r.mu.RUnlock()

	if remote != nil {
		for _, d := range remote.Descriptors(ctx) {
			if seen[d.Name] {
				continue
			}
			d.Origin = OriginRemote
			descs = append(descs, d)
		}
	}

	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// ListCategories returns the unique categories of all known descriptors,
// sorted.
func (r *Registry) ListCategories(ctx context.Context) []Category {
	seen := make(map[Category]bool)
	for _, d := range r.List(ctx) {
		seen[d.Category] = true
	}
	cats := make([]Category, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// ByCategory returns all known descriptors of a category.
func (r *Registry) ByCategory(ctx context.Context, cat Category) []Descriptor {
	var out []Descriptor
	for _, d := range r.List(ctx) {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Invoke looks up a capability by name, validates the raw parameters
// against its schema, and runs it. Every failure mode (unknown name,
// validation failure, executor error, executor panic) is folded into a
// failed Result; nothing escapes this boundary.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) *Result {
	if params == nil {
		params = make(map[string]any)
	}
	log := logging.Get(logging.CategoryRegistry)

	r.mu.RLock()
	impl, ok := r.caps[name]
	validator := r.validator
	remote := r.remote
	r.mu.RUnlock()

	if !ok {
		if remote != nil {
			if desc, found := findRemote(ctx, remote, name); found {
				if err := validator.Validate(desc.Schema, params); err != nil {
					return Fail("invalid parameters for %s: %v", name, err)
				}
				res := remote.Invoke(ctx, name, params)
				if res == nil {
					res = Fail("remote capability %s returned no result", name)
				}
				res.Normalize()
				return res
			}
		}
		log.Debugw("unknown capability requested", "name", name)
		return Fail("%v: %s", ErrNotFound, name)
	}

	if err := validator.Validate(impl.Descriptor().Schema, params); err != nil {
		log.Debugw("parameter validation failed", "name", name, "error", err)
		return Fail("invalid parameters for %s: %v", name, err)
	}

	res := r.safeInvoke(ctx, impl, name, params)
	res.Normalize()
	return res
}

// safeInvoke runs the executor with panic containment.
func (r *Registry) safeInvoke(ctx context.Context, impl Capability, name string, params map[string]any) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Get(logging.CategoryRegistry).Errorw("capability panicked",
				"name", name, "panic", rec)
			res = Fail("capability %s panicked: %v", name, rec)
		}
	}()

	out, err := impl.Invoke(ctx, params)
	if err != nil {
		logging.Get(logging.CategoryRegistry).Debugw("capability failed",
			"name", name, "error", err)
		return Fail("capability %s failed: %v", name, err)
	}
	if out == nil {
		return Fail("capability %s returned no result", name)
	}
	return out
}

func findRemote(ctx context.Context, src RemoteSource, name string) (Descriptor, bool) {
	for _, d := range src.Descriptors(ctx) {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
