package container

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ── Scope ─────────────────────────────────────────────────────────────────────

// Scope is the lifetime policy of a binding.
type Scope uint8

const (
	// ScopeTransient builds a new instance for every dependency.
	ScopeTransient Scope = iota
	// ScopeSingleton builds one instance per container.
	ScopeSingleton
	// ScopeResolve builds one instance per top-level Resolve call, shared by
	// the whole object graph that call produces.
	ScopeResolve
)

func (s Scope) String() string {
	switch s {
	case ScopeTransient:
		return "transient"
	case ScopeSingleton:
		return "singleton"
	case ScopeResolve:
		return "per-resolve"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// ── Parameters ────────────────────────────────────────────────────────────────

type parameterKind uint8

const (
	byType parameterKind = iota + 1
	byPosition
)

// parameterID is what makes two overrides "the same parameter".
type parameterID struct {
	kind parameterKind
	typ  Type
	pos  int
}

// Parameter overrides one constructor argument with a fixed value.
type Parameter struct {
	id    parameterID
	value any
}

// TypedParameter supplies value for every constructor parameter of type t.
func TypedParameter(t Type, value any) Parameter {
	if t.IsZero() {
		invalidArgument("TypedParameter", "type must not be zero")
	}
	return Parameter{id: parameterID{kind: byType, typ: t}, value: value}
}

// PositionalParameter supplies value for the constructor parameter at index.
func PositionalParameter(index int, value any) Parameter {
	if index < 0 {
		invalidArgument("PositionalParameter", "index %d is negative", index)
	}
	return Parameter{id: parameterID{kind: byPosition, pos: index}, value: value}
}

// Value returns the override value.
func (p Parameter) Value() any { return p.value }

// Matches reports whether p overrides the constructor parameter at index
// whose type is t.
func (p Parameter) Matches(index int, t Type) bool {
	switch p.id.kind {
	case byType:
		return p.id.typ == t
	case byPosition:
		return p.id.pos == index
	default:
		return false
	}
}

func (p Parameter) String() string {
	switch p.id.kind {
	case byType:
		return "type:" + p.id.typ.String()
	case byPosition:
		return fmt.Sprintf("position:%d", p.id.pos)
	default:
		return "parameter(?)"
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Registration is one pending binding. It is returned by the Builder's
// Register* methods and configured by chaining:
//
//	b.Register(NewSMTPMailer).
//	    As(container.TypeOf[Mailer]()).
//	    SingleInstance().
//	    WithParameter(container.TypedParameter(container.TypeOf[string](), "smtp.local:25"))
//
// A Registration is only read when Build runs.
type Registration struct {
	op      string
	sources []Type
	target  Type
	scope   Scope
	key     any
	hasKey  bool
	params  []Parameter
	// dupParams collects overrides added twice to this record; Build
	// reports them as duplicate-parameter errors.
	dupParams []Parameter
	factory   Factory
	module    *moduleEntry
}

func newRegistration(op string, sources []Type) *Registration {
	return &Registration{op: op, sources: sources, scope: ScopeTransient}
}

// As binds every source of the registration under target instead of itself.
func (r *Registration) As(target Type) *Registration {
	if target.IsZero() {
		invalidArgument("As", "target type must not be zero")
	}
	r.target = target
	return r
}

// AsSelf binds every source under its own type (the default).
func (r *Registration) AsSelf() *Registration {
	r.target = Type{}
	return r
}

// WithScope sets the lifetime scope.
func (r *Registration) WithScope(s Scope) *Registration {
	if s > ScopeResolve {
		invalidArgument("WithScope", "unknown scope %d", uint8(s))
	}
	r.scope = s
	return r
}

// Transient builds a new instance for every dependency.
func (r *Registration) Transient() *Registration { return r.WithScope(ScopeTransient) }

// SingleInstance shares one instance for the lifetime of the container.
func (r *Registration) SingleInstance() *Registration { return r.WithScope(ScopeSingleton) }

// InstancePerResolve shares one instance per top-level Resolve call.
func (r *Registration) InstancePerResolve() *Registration { return r.WithScope(ScopeResolve) }

// Keyed attaches a discriminator so several bindings can share a target.
// The key must be a non-nil comparable value, including whatever its
// interface-typed fields hold.
func (r *Registration) Keyed(key any) *Registration {
	if key == nil {
		invalidArgument("Keyed", "key must not be nil")
	}
	if !hashableKey(key) {
		invalidArgument("Keyed", "key of type %T is not comparable", key)
	}
	r.key = key
	r.hasKey = true
	return r
}

// hashableKey reports whether key can be compared with ==. A comparable
// static type is not enough: a struct with an interface field holding a
// slice only fails when it is compared or hashed.
func hashableKey(key any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{key: {}}
	return true
}

// WithParameter adds a constructor argument override.
func (r *Registration) WithParameter(p Parameter) *Registration {
	if p.id.kind == 0 {
		invalidArgument("WithParameter", "parameter is the zero value")
	}
	if slices.ContainsFunc(r.params, func(q Parameter) bool { return q.id == p.id }) {
		r.dupParams = append(r.dupParams, p)
		return r
	}
	r.params = append(r.params, p)
	return r
}

// WithFactory replaces reflective construction with f for every source.
func (r *Registration) WithFactory(f Factory) *Registration {
	if f == nil {
		invalidArgument("WithFactory", "factory must not be nil")
	}
	r.factory = f
	return r
}

// selfBound returns a copy of r that binds only src, to itself.
func (r *Registration) selfBound(src Type) *Registration {
	return &Registration{
		op:        r.op,
		sources:   []Type{src},
		target:    src,
		scope:     r.scope,
		key:       r.key,
		hasKey:    r.hasKey,
		params:    slices.Clone(r.params),
		dupParams: slices.Clone(r.dupParams),
		factory:   r.factory,
		module:    r.module,
	}
}

// info snapshots the record for introspection.
func (r *Registration) info() RegistrationInfo {
	ri := RegistrationInfo{
		Op:         r.op,
		Sources:    slices.Clone(r.sources),
		Target:     r.target,
		Scope:      r.scope,
		Parameters: slices.Clone(r.params),
		HasFactory: r.factory != nil,
	}
	if r.hasKey {
		ri.Key = r.key
	}
	if r.module != nil {
		ri.Module = r.module.module.Name()
	}
	return ri
}

// RegistrationInfo is a read-only copy of a Registration.
type RegistrationInfo struct {
	// Op names the Builder call that created the record.
	Op         string
	Sources    []Type
	Target     Type // zero when each source binds to itself
	Scope      Scope
	Key        any
	Parameters []Parameter
	HasFactory bool
	Module     string
}
