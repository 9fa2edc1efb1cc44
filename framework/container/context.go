package container

import "golang.org/x/exp/slices"

// Binding is the finalized configuration of one source type under one
// target. It is read-only once the container exists.
type Binding struct {
	id      int
	target  Type
	source  Type
	scope   Scope
	key     any
	hasKey  bool
	params  []Parameter
	factory Factory
	module  string
}

// Target returns the type the binding is looked up under.
func (b *Binding) Target() Type { return b.target }

// Source returns the concrete type the binding builds.
func (b *Binding) Source() Type { return b.source }

// Scope returns the lifetime scope.
func (b *Binding) Scope() Scope { return b.scope }

// Key returns the discriminator, if any.
func (b *Binding) Key() (any, bool) { return b.key, b.hasKey }

// Parameters returns a copy of the parameter overrides.
func (b *Binding) Parameters() []Parameter { return slices.Clone(b.params) }

// HasFactory reports whether a custom factory replaces reflective construction.
func (b *Binding) HasFactory() bool { return b.factory != nil }

// Module returns the name of the module that registered the binding, or "".
func (b *Binding) Module() string { return b.module }

func (b *Binding) hasParam(p Parameter) bool {
	return slices.ContainsFunc(b.params, func(q Parameter) bool { return q.id == p.id })
}

// override returns the value supplied for the constructor parameter at
// index with type t. Positional overrides win over typed ones.
func (b *Binding) override(index int, t Type) (any, bool) {
	for _, p := range b.params {
		if p.id.kind == byPosition && p.Matches(index, t) {
			return p.value, true
		}
	}
	for _, p := range b.params {
		if p.id.kind == byType && p.Matches(index, t) {
			return p.value, true
		}
	}
	return nil, false
}

// ResolutionContext aggregates every binding registered under one target.
// Sources keep first-registration order.
type ResolutionContext struct {
	target   Type
	sources  []Type
	bindings map[Type]*Binding
}

func newResolutionContext(target Type) *ResolutionContext {
	return &ResolutionContext{target: target, bindings: make(map[Type]*Binding)}
}

// addSource appends src unless present and returns its binding.
func (rc *ResolutionContext) addSource(src Type, nextID func() int) *Binding {
	if b, ok := rc.bindings[src]; ok {
		return b
	}
	b := &Binding{id: nextID(), target: rc.target, source: src}
	rc.sources = append(rc.sources, src)
	rc.bindings[src] = b
	return b
}

// Target returns the type the context is keyed by.
func (rc *ResolutionContext) Target() Type { return rc.target }

// Sources returns a copy of the source types.
func (rc *ResolutionContext) Sources() []Type { return slices.Clone(rc.sources) }

// Binding returns the binding for src.
func (rc *ResolutionContext) Binding(src Type) (*Binding, bool) {
	b, ok := rc.bindings[src]
	return b, ok
}

// Bindings returns every binding in source order.
func (rc *ResolutionContext) Bindings() []*Binding {
	out := make([]*Binding, len(rc.sources))
	for i, src := range rc.sources {
		out[i] = rc.bindings[src]
	}
	return out
}

// Default returns the binding Resolve uses for the target.
func (rc *ResolutionContext) Default() (*Binding, bool) {
	b := rc.defaultBinding()
	return b, b != nil
}

// defaultBinding is the last unkeyed binding: later registrations override
// earlier ones for single-instance lookups.
func (rc *ResolutionContext) defaultBinding() *Binding {
	for i := len(rc.sources) - 1; i >= 0; i-- {
		if b := rc.bindings[rc.sources[i]]; !b.hasKey {
			return b
		}
	}
	return nil
}

// keyed is the last binding carrying key.
func (rc *ResolutionContext) keyed(key any) *Binding {
	for i := len(rc.sources) - 1; i >= 0; i-- {
		if b := rc.bindings[rc.sources[i]]; b.hasKey && b.key == key {
			return b
		}
	}
	return nil
}

// unkeyed returns the unkeyed bindings in registration order.
func (rc *ResolutionContext) unkeyed() []*Binding {
	var out []*Binding
	for _, src := range rc.sources {
		if b := rc.bindings[src]; !b.hasKey {
			out = append(out, b)
		}
	}
	return out
}
