package container

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"

	"github.com/km-arc/go-ioc/framework/graph"
)

// Resolver is the lookup surface shared by the Container and the
// ActivationContext handed to factories. Constructors may depend on it (or
// on *Container) to resolve services dynamically.
type Resolver interface {
	// Resolve returns the default binding for t.
	Resolve(t Type) (any, error)
	// ResolveKeyed returns the binding for t registered under key.
	ResolveKeyed(t Type, key any) (any, error)
	// ResolveAll returns an instance of every unkeyed binding for t, in
	// registration order.
	ResolveAll(t Type) ([]any, error)
	// IsRegistered reports whether t has a resolution context.
	IsRegistered(t Type) bool
}

// Factory builds an instance in place of reflective construction. It must
// return a non-nil instance or an error. Dependencies a factory resolves
// are invisible to the build-time cycle check; cycles through them are
// reported by Resolve.
type Factory func(ctx ActivationContext) (any, error)

// ActivationContext is what a Factory resolves its own dependencies from.
// Lookups join the resolve call that triggered the factory.
type ActivationContext interface {
	Resolver
	// Binding is the binding being activated.
	Binding() *Binding
	// Container returns the owning container.
	Container() *Container
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the immutable product of Builder.Build. Its contexts are
// never modified after construction, so lookups need no locking; only the
// singleton cache is guarded.
type Container struct {
	contexts        map[Type]*ResolutionContext
	targets         []Type
	modules         []ModuleInfo
	resolveImplicit bool
	activate        Activator
	inspector       Inspector
	log             logr.Logger
	resolvers       []resolver

	mu         sync.RWMutex
	singletons map[int]any
	flight     singleflight.Group

	// waitMu guards owners and every request's waiting field.
	waitMu sync.Mutex
	owners map[int]*request
}

func newContainer(b *Builder, contexts map[Type]*ResolutionContext, targets []Type, inspector Inspector) *Container {
	c := &Container{
		contexts:        contexts,
		targets:         targets,
		resolveImplicit: b.opts.resolveImplicit,
		activate:        b.activator(),
		inspector:       inspector,
		log:             b.opts.logger,
		singletons:      make(map[int]any),
		owners:          make(map[int]*request),
	}
	for _, e := range b.arena.activated() {
		c.modules = append(c.modules, e.info())
	}
	c.resolvers = []resolver{selfResolver{}, lazyResolver{}, collectionResolver{}}
	return c
}

// Resolve implements Resolver.
func (c *Container) Resolve(t Type) (any, error) {
	return c.newRequest().resolve(t)
}

// ResolveKeyed implements Resolver.
func (c *Container) ResolveKeyed(t Type, key any) (any, error) {
	return c.newRequest().resolveKeyed(t, key)
}

// ResolveAll implements Resolver.
func (c *Container) ResolveAll(t Type) ([]any, error) {
	return c.newRequest().resolveAll(t)
}

// IsRegistered implements Resolver.
func (c *Container) IsRegistered(t Type) bool {
	_, ok := c.contexts[t]
	return ok
}

// CanResolve reports whether Resolve(t) has a way to produce t: a context,
// a built-in resolver, or implicit resolution.
func (c *Container) CanResolve(t Type) bool {
	if c.IsRegistered(t) {
		return true
	}
	for _, r := range c.resolvers {
		if r.handles(c, t) {
			return true
		}
	}
	return c.resolveImplicit && t.implicitCandidate()
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Targets returns every target type in registration order.
func (c *Container) Targets() []Type { return slices.Clone(c.targets) }

// Context returns the resolution context for target.
func (c *Container) Context(target Type) (*ResolutionContext, bool) {
	rc, ok := c.contexts[target]
	return rc, ok
}

// Contexts returns every resolution context in registration order.
func (c *Container) Contexts() []*ResolutionContext {
	out := make([]*ResolutionContext, len(c.targets))
	for i, t := range c.targets {
		out[i] = c.contexts[t]
	}
	return out
}

// Modules describes the activated modules in activation order.
func (c *Container) Modules() []ModuleInfo { return slices.Clone(c.modules) }

// ResolveImplicit reports whether unregistered types are built on demand.
func (c *Container) ResolveImplicit() bool { return c.resolveImplicit }

// DependencyGraph rebuilds the constructor dependency graph the build was
// validated against.
func (c *Container) DependencyGraph() *graph.Graph[Type] {
	return dependencyGraph(c.contexts, c.targets, c.inspector, c.resolveImplicit)
}

// ── Requests ──────────────────────────────────────────────────────────────────

// request carries the state of one top-level resolve call. It is only used
// by the goroutine that created it.
type request struct {
	c *Container
	// stack holds the sources under construction, innermost last.
	stack      []Type
	perResolve map[int]any
	// waiting is the singleton binding whose activation by another request
	// this request is blocked on.
	waiting *Binding
}

func (c *Container) newRequest() *request {
	return &request{c: c}
}

func (r *request) resolve(t Type) (any, error) {
	if t.IsZero() {
		return nil, &ResolutionError{Type: t, Err: ErrInvalidArgument}
	}
	for _, res := range r.c.resolvers {
		if !res.handles(r.c, t) {
			continue
		}
		v, err := res.resolve(r, t)
		if err != nil {
			return nil, &ResolutionError{Type: t, Err: err}
		}
		return v, nil
	}

	if rc, ok := r.c.contexts[t]; ok {
		if bnd := rc.defaultBinding(); bnd != nil {
			return r.activate(bnd)
		}
	}
	if r.c.resolveImplicit && t.implicitCandidate() {
		return r.activateImplicit(t)
	}
	return nil, &ResolutionError{Type: t, Err: ErrNotRegistered}
}

func (r *request) resolveKeyed(t Type, key any) (any, error) {
	if key == nil || !hashableKey(key) {
		return nil, &ResolutionError{Type: t, Key: key, Err: ErrInvalidArgument}
	}
	if rc, ok := r.c.contexts[t]; ok {
		if bnd := rc.keyed(key); bnd != nil {
			return r.activate(bnd)
		}
	}
	return nil, &ResolutionError{Type: t, Key: key, Err: ErrNotRegistered}
}

func (r *request) resolveAll(t Type) ([]any, error) {
	rc, ok := r.c.contexts[t]
	if !ok {
		return nil, nil
	}
	bindings := rc.unkeyed()
	out := make([]any, 0, len(bindings))
	for _, bnd := range bindings {
		v, err := r.activate(bnd)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// activate applies the binding's scope.
func (r *request) activate(bnd *Binding) (any, error) {
	if slices.Contains(r.stack, bnd.source) {
		return nil, r.cycleError(bnd.target, bnd.source)
	}
	switch bnd.scope {
	case ScopeSingleton:
		return r.c.singleton(r, bnd)
	case ScopeResolve:
		if v, ok := r.perResolve[bnd.id]; ok {
			return v, nil
		}
		v, err := r.construct(bnd.target, bnd.source, bnd)
		if err != nil {
			return nil, err
		}
		if r.perResolve == nil {
			r.perResolve = make(map[int]any)
		}
		r.perResolve[bnd.id] = v
		return v, nil
	default:
		return r.construct(bnd.target, bnd.source, bnd)
	}
}

func (r *request) activateImplicit(t Type) (any, error) {
	if slices.Contains(r.stack, t) {
		return nil, r.cycleError(t, t)
	}
	return r.construct(t, t, nil)
}

func (r *request) cycleError(target, src Type) error {
	start := slices.Index(r.stack, src)
	cycle := append(slices.Clone(r.stack[start:]), src)
	return &ResolutionError{Type: target, Err: &CircularDependencyError{Cycle: cycle}}
}

// construct builds one instance of src. bnd is nil for implicit types.
func (r *request) construct(target, src Type, bnd *Binding) (any, error) {
	r.stack = append(r.stack, src)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	if bnd != nil && bnd.factory != nil {
		v, err := bnd.factory(&activationContext{req: r, bnd: bnd})
		if err != nil {
			return nil, &ResolutionError{Type: target, Err: err}
		}
		return instance(target, v)
	}

	var params []Type
	if ctors := r.c.inspector.Constructors(src); len(ctors) > 0 {
		params = ctors[0]
	}
	args := make([]any, len(params))
	for i, p := range params {
		if bnd != nil {
			if v, ok := bnd.override(i, p); ok {
				args[i] = v
				continue
			}
		}
		v, err := r.resolve(p)
		if err != nil {
			return nil, &ResolutionError{Type: target, Err: err}
		}
		args[i] = v
	}

	v, err := r.c.activate(src, args)
	if err != nil {
		return nil, &ResolutionError{Type: target, Err: err}
	}
	return instance(target, v)
}

// instance rejects nil and nil pointers so a failed activation never
// reaches a dependent as a zero value.
func instance(target Type, v any) (any, error) {
	if v == nil {
		return nil, &ResolutionError{Type: target, Err: ErrNilInstance}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, &ResolutionError{Type: target, Err: ErrNilInstance}
	}
	return v, nil
}

// singleton returns the cached instance or builds it. singleflight makes
// concurrent first resolutions of one binding share a single activation;
// the re-check inside the flight covers callers that arrive after the
// winner stored its result.
func (c *Container) singleton(r *request, bnd *Binding) (any, error) {
	if v, ok := c.cached(bnd.id); ok {
		return v, nil
	}
	if err := c.await(r, bnd); err != nil {
		return nil, err
	}
	defer c.stopWaiting(r)

	v, err, _ := c.flight.Do(strconv.Itoa(bnd.id), func() (any, error) {
		c.own(r, bnd)
		defer c.release(bnd)

		if v, ok := c.cached(bnd.id); ok {
			return v, nil
		}
		v, err := r.construct(bnd.target, bnd.source, bnd)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.singletons[bnd.id] = v
		c.mu.Unlock()
		c.log.V(1).Info("singleton activated", "target", bnd.target.String(), "source", bnd.source.String())
		return v, nil
	})
	return v, err
}

// await marks r as waiting for bnd. It fails instead when the request
// activating bnd is, through the requests it waits on, waiting for r.
// Waiting would then never end.
func (c *Container) await(r *request, bnd *Binding) error {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()

	want := bnd
	path := []Type{bnd.source}
	seen := make(map[*request]bool)
	for {
		owner, ok := c.owners[want.id]
		if !ok || seen[owner] {
			break
		}
		if owner == r {
			start := max(slices.Index(r.stack, want.source), 0)
			cycle := append(slices.Clone(r.stack[start:]), path...)
			return &ResolutionError{Type: bnd.target, Err: &CircularDependencyError{Cycle: cycle}}
		}
		seen[owner] = true
		if owner.waiting == nil {
			break
		}
		want = owner.waiting
		path = append(path, want.source)
	}
	r.waiting = bnd
	return nil
}

func (c *Container) stopWaiting(r *request) {
	c.waitMu.Lock()
	r.waiting = nil
	c.waitMu.Unlock()
}

// own records r as the request activating bnd.
func (c *Container) own(r *request, bnd *Binding) {
	c.waitMu.Lock()
	c.owners[bnd.id] = r
	r.waiting = nil
	c.waitMu.Unlock()
}

func (c *Container) release(bnd *Binding) {
	c.waitMu.Lock()
	delete(c.owners, bnd.id)
	c.waitMu.Unlock()
}

func (c *Container) cached(id int) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.singletons[id]
	return v, ok
}

// ── Activation context ────────────────────────────────────────────────────────

type activationContext struct {
	req *request
	bnd *Binding
}

func (a *activationContext) Resolve(t Type) (any, error) { return a.req.resolve(t) }
func (a *activationContext) ResolveKeyed(t Type, key any) (any, error) {
	return a.req.resolveKeyed(t, key)
}
func (a *activationContext) ResolveAll(t Type) ([]any, error) { return a.req.resolveAll(t) }
func (a *activationContext) IsRegistered(t Type) bool         { return a.req.c.IsRegistered(t) }
func (a *activationContext) Binding() *Binding                 { return a.bnd }
func (a *activationContext) Container() *Container             { return a.req.c }

func (c *Container) String() string {
	return fmt.Sprintf("Container{contexts: %d, modules: %d, implicit: %t}",
		len(c.targets), len(c.modules), c.resolveImplicit)
}
