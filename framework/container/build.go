package container

import (
	"fmt"
	"reflect"

	"go.uber.org/multierr"

	"github.com/km-arc/go-ioc/framework/graph"
)

// Build activates modules, merges registrations into resolution contexts,
// validates them and rejects constructor cycles. It either returns a
// complete container or an error; there is no partial result.
//
// Errors are distinguishable with errors.Is: ErrNotAssignable,
// ErrDuplicateParameter (several may be reported together) and
// ErrCircularDependency.
func (b *Builder) Build() (*Container, error) {
	if b.parent != nil {
		return nil, ErrSubBuilder
	}
	log := b.opts.logger

	b.activateModules()

	records := normalize(b.pending)
	contexts, targets, err := mergeContexts(records)
	if err != nil {
		log.Error(err, "container build failed", "phase", "merge")
		return nil, err
	}

	inspector := b.inspector()
	deps := dependencyGraph(contexts, targets, inspector, b.opts.resolveImplicit)
	if cycle, found := deps.FindCycle(); found {
		err := &CircularDependencyError{Cycle: cycle}
		log.Error(err, "container build failed", "phase", "cycle-check")
		return nil, err
	}

	c := newContainer(b, contexts, targets, inspector)

	for _, e := range b.arena.activated() {
		booter, ok := e.module.(Booter)
		if !ok || e.booted {
			continue
		}
		if err := booter.Boot(c); err != nil {
			err = fmt.Errorf("container: boot module %q: %w", e.module.Name(), err)
			log.Error(err, "container build failed", "phase", "boot")
			return nil, err
		}
		e.booted = true
	}

	log.Info("container built",
		"contexts", len(targets),
		"registrations", len(records),
		"modules", len(c.modules),
		"nodes", deps.Len(),
		"edges", deps.EdgeCount())
	return c, nil
}

func (b *Builder) inspector() Inspector {
	if b.opts.inspector != nil {
		return b.opts.inspector
	}
	return b.reflector
}

func (b *Builder) activator() Activator {
	if b.opts.activator != nil {
		return b.opts.activator
	}
	return b.reflector.Activate
}

// ── Module activation ─────────────────────────────────────────────────────────

// activateModules drains a FIFO worklist seeded with the root modules. Each
// unregistered module loads into its own sub-builder; the sub-builder's
// records are tagged and spliced into b, and its child modules are queued.
func (b *Builder) activateModules() {
	queue := append([]Module(nil), b.modules...)
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		e := b.arena.entry(m)
		if e.registered {
			continue
		}
		sub := b.sub()
		m.Load(sub)
		e.registered = true

		for _, r := range sub.pending {
			r.module = e
		}
		e.records = append(e.records, sub.pending...)
		b.pending = append(b.pending, sub.pending...)
		queue = append(queue, sub.modules...)

		b.opts.logger.V(1).Info("module activated",
			"module", m.Name(),
			"registrations", len(sub.pending),
			"children", len(sub.modules))
	}
}

// ── Normalization ─────────────────────────────────────────────────────────────

// normalize expands every record without a target into one self-bound
// record per source. The input is not modified.
func normalize(records []*Registration) []*Registration {
	out := make([]*Registration, 0, len(records))
	for _, r := range records {
		if !r.target.IsZero() {
			out = append(out, r)
			continue
		}
		for _, src := range r.sources {
			out = append(out, r.selfBound(src))
		}
	}
	return out
}

// ── Merge ─────────────────────────────────────────────────────────────────────

// mergeContexts groups records by target and folds each group into one
// ResolutionContext. Every problem found is reported; any problem means no
// contexts are returned.
func mergeContexts(records []*Registration) (map[Type]*ResolutionContext, []Type, error) {
	var (
		targets []Type
		groups  = make(map[Type][]*Registration)
	)
	for _, r := range records {
		if _, seen := groups[r.target]; !seen {
			targets = append(targets, r.target)
		}
		groups[r.target] = append(groups[r.target], r)
	}

	var (
		errs     error
		contexts = make(map[Type]*ResolutionContext, len(targets))
		lastID   int
	)
	nextID := func() int {
		lastID++
		return lastID
	}

	for _, target := range targets {
		group := groups[target]
		if err := checkAssignable(target, group); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		rc := newResolutionContext(target)
		for _, r := range group {
			for _, src := range r.sources {
				rc.addSource(src, nextID)
			}
		}

		for _, r := range group {
			for _, p := range r.dupParams {
				for _, src := range r.sources {
					errs = multierr.Append(errs, &DuplicateParameterError{Source: src, Target: target, Parameter: p})
				}
			}
			for _, src := range r.sources {
				bnd := rc.bindings[src]
				if r.factory != nil {
					bnd.factory = r.factory
				}
				bnd.scope = r.scope
				if r.hasKey {
					bnd.key, bnd.hasKey = r.key, true
				}
				if r.module != nil {
					bnd.module = r.module.module.Name()
				}
				for _, p := range r.params {
					if bnd.hasParam(p) {
						errs = multierr.Append(errs, &DuplicateParameterError{Source: src, Target: target, Parameter: p})
						continue
					}
					bnd.params = append(bnd.params, p)
				}
			}
		}
		contexts[target] = rc
	}

	if errs != nil {
		return nil, nil, errs
	}
	return contexts, targets, nil
}

// checkAssignable rejects interface sources and sources that cannot stand
// in for the target.
func checkAssignable(target Type, group []*Registration) error {
	for _, r := range group {
		for _, src := range r.sources {
			if src.IsAbstract() {
				return &NotAssignableError{Type: src, Target: target, Reason: "interface types cannot be construction targets"}
			}
			if !src.AssignableTo(target) {
				return &NotAssignableError{Type: src, Target: target, Reason: "source does not implement target"}
			}
		}
	}
	return nil
}

// ── Dependency graph ──────────────────────────────────────────────────────────

var (
	containerType = TypeOf[*Container]()
	resolverType  = TypeOf[Resolver]()
)

// dependencyGraph links every target to its sources and every
// reflectively built source to the types its constructors need. Overridden
// parameters, lazy handles and the container itself add no edge. With
// implicit resolution on, unregistered candidate types are walked too.
func dependencyGraph(contexts map[Type]*ResolutionContext, targets []Type, inspector Inspector, implicit bool) *graph.Graph[Type] {
	g := graph.New[Type]()
	var pending []Type
	walked := make(map[Type]bool)

	addConstructorEdges := func(src Type, bnd *Binding) {
		for _, params := range inspector.Constructors(src) {
			for i, p := range params {
				if bnd != nil {
					if _, ok := bnd.override(i, p); ok {
						continue
					}
				}
				dep, ok := dependencyOf(p, contexts)
				if !ok {
					continue
				}
				g.AddEdge(src, dep)
				if _, registered := contexts[dep]; !registered && implicit && dep.implicitCandidate() {
					pending = append(pending, dep)
				}
			}
		}
	}

	for _, target := range targets {
		rc := contexts[target]
		g.AddNode(target)
		for _, src := range rc.sources {
			if src != target {
				g.AddEdge(target, src)
			}
			bnd := rc.bindings[src]
			if bnd.factory != nil {
				continue
			}
			walked[src] = true
			addConstructorEdges(src, bnd)
		}
	}

	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]
		if walked[t] {
			continue
		}
		walked[t] = true
		addConstructorEdges(t, nil)
	}
	return g
}

// dependencyOf maps a constructor parameter type to the node it depends on.
func dependencyOf(p Type, contexts map[Type]*ResolutionContext) (Type, bool) {
	if p.IsZero() || p == containerType || p == resolverType {
		return Type{}, false
	}
	if _, ok := lazyElem(p); ok {
		return Type{}, false
	}
	if _, registered := contexts[p]; !registered && p.Reflect().Kind() == reflect.Slice {
		return TypeFor(p.Reflect().Elem()), true
	}
	return p, true
}
