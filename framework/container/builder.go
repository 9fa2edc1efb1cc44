package container

import (
	"reflect"
)

// Builder collects registrations and modules and turns them into a
// Container. A Builder is not safe for concurrent use: finish all
// registration, then call Build from one goroutine.
type Builder struct {
	opts      *options
	reflector *Reflector
	pending   []*Registration
	modules   []Module
	arena     *moduleArena
	// parent is set on the sub-builders handed to Module.Load.
	parent *Builder
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Builder{
		opts:      o,
		reflector: NewReflector(),
		arena:     &moduleArena{},
	}
}

// sub returns an isolated builder for one module activation. It shares the
// options, constructor table and module arena with b.
func (b *Builder) sub() *Builder {
	return &Builder{
		opts:      b.opts,
		reflector: b.reflector,
		arena:     b.arena,
		parent:    b,
	}
}

func (b *Builder) add(r *Registration) *Registration {
	b.pending = append(b.pending, r)
	return r
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterType registers t, built reflectively from its `inject` fields.
func (b *Builder) RegisterType(t Type) *Registration {
	if t.IsZero() {
		invalidArgument("RegisterType", "type must not be zero")
	}
	return b.add(newRegistration("RegisterType", []Type{t}))
}

// RegisterTypes registers several types as one record. Without As each
// type is bound to itself.
func (b *Builder) RegisterTypes(types ...Type) *Registration {
	if len(types) == 0 {
		invalidArgument("RegisterTypes", "no types given")
	}
	sources := make([]Type, 0, len(types))
	for _, t := range types {
		if t.IsZero() {
			invalidArgument("RegisterTypes", "type must not be zero")
		}
		sources = appendUnique(sources, t)
	}
	return b.add(newRegistration("RegisterTypes", sources))
}

// Register registers a constructor function. The function's first result
// is the source type; its parameters are resolved from the container.
//
//	b.Register(func(db *sql.DB, log Logger) (*UserRepo, error) { ... })
func (b *Builder) Register(ctor any) *Registration {
	t, err := b.reflector.Provide(ctor)
	if err != nil {
		invalidArgument("Register", "%v", err)
	}
	return b.add(newRegistration("Register", []Type{t}))
}

// RegisterFactory registers t with a factory that replaces reflective
// construction.
func (b *Builder) RegisterFactory(t Type, f Factory) *Registration {
	if t.IsZero() {
		invalidArgument("RegisterFactory", "type must not be zero")
	}
	if f == nil {
		invalidArgument("RegisterFactory", "factory must not be nil")
	}
	return b.add(newRegistration("RegisterFactory", []Type{t}).WithFactory(f))
}

// RegisterInstance registers a pre-built value as a singleton of its
// dynamic type.
func (b *Builder) RegisterInstance(v any) *Registration {
	if v == nil {
		invalidArgument("RegisterInstance", "instance must not be nil")
	}
	t := TypeFor(reflect.TypeOf(v))
	r := newRegistration("RegisterInstance", []Type{t})
	r.factory = func(ActivationContext) (any, error) { return v, nil }
	r.scope = ScopeSingleton
	return b.add(r)
}

// RegisterAssemblyTypes registers every concrete type of the assemblies
// accepted by pred (nil accepts all) as one record.
func (b *Builder) RegisterAssemblyTypes(pred func(Type) bool, assemblies ...*Assembly) *Registration {
	checkAssemblies("RegisterAssemblyTypes", assemblies)
	var sources []Type
	for _, a := range assemblies {
		for _, at := range a.types {
			if at.Type.IsAbstract() {
				continue
			}
			if pred == nil || pred(at.Type) {
				sources = appendUnique(sources, at.Type)
			}
		}
	}
	if len(sources) == 0 {
		invalidArgument("RegisterAssemblyTypes", "no concrete types matched")
	}
	return b.add(newRegistration("RegisterAssemblyTypes", sources))
}

// RegisterMarkedTypes registers the marked concrete types of the
// assemblies. Types sharing an As override form one record; types without
// one form a self-binding record. Records come back in first-seen order.
func (b *Builder) RegisterMarkedTypes(assemblies ...*Assembly) []*Registration {
	checkAssemblies("RegisterMarkedTypes", assemblies)
	var (
		order  []Type
		groups = make(map[Type][]Type)
	)
	for _, a := range assemblies {
		for _, at := range a.types {
			if !at.Marked || at.Type.IsAbstract() {
				continue
			}
			if _, seen := groups[at.As]; !seen {
				order = append(order, at.As)
			}
			groups[at.As] = appendUnique(groups[at.As], at.Type)
		}
	}
	if len(order) == 0 {
		invalidArgument("RegisterMarkedTypes", "no marked concrete types found")
	}
	regs := make([]*Registration, 0, len(order))
	for _, target := range order {
		r := newRegistration("RegisterMarkedTypes", groups[target])
		r.target = target
		regs = append(regs, b.add(r))
	}
	return regs
}

// RegisterModule queues m for activation at Build time.
func (b *Builder) RegisterModule(m Module) {
	if m == nil {
		invalidArgument("RegisterModule", "module must not be nil")
	}
	if m.Name() == "" {
		invalidArgument("RegisterModule", "module must have a name")
	}
	b.modules = append(b.modules, m)
}

func checkAssemblies(op string, assemblies []*Assembly) {
	if len(assemblies) == 0 {
		invalidArgument(op, "no assemblies given")
	}
	for i, a := range assemblies {
		if a == nil {
			invalidArgument(op, "assembly %d is nil", i)
		}
	}
}

func appendUnique(ts []Type, t Type) []Type {
	for _, have := range ts {
		if have == t {
			return ts
		}
	}
	return append(ts, t)
}
