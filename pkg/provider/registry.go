package provider

// Registry holds providers keyed by name.
type Registry struct {
	providers map[Name]Provider
}

// NewRegistry registers providers. A later provider with the same name
// replaces an earlier one.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[Name]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name Name) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Configured reports whether name is registered and configured.
func (r *Registry) Configured(name Name) bool {
	p, ok := r.providers[name]
	return ok && p.IsConfigured()
}

// Select resolves a requested provider list. An empty request means
// [local]. A provider is kept when it was requested, is registered, and is
// either configured or local. Duplicates collapse and request order holds.
func (r *Registry) Select(names []Name) []Provider {
	if len(names) == 0 {
		names = []Name{Local}
	}

	seen := make(map[Name]bool, len(names))
	out := make([]Provider, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true

		p, ok := r.providers[n]
		if !ok {
			continue
		}
		if n != Local && !p.IsConfigured() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Primary picks the provider for a single-call stage: prefer when it is
// configured, otherwise local.
func (r *Registry) Primary(prefer Name) (Provider, bool) {
	if r.Configured(prefer) {
		return r.providers[prefer], true
	}
	p, ok := r.providers[Local]
	return p, ok
}
