package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// resolver is a built-in strategy consulted before the context map.
type resolver interface {
	handles(c *Container, t Type) bool
	resolve(r *request, t Type) (any, error)
}

// ── Self reference ────────────────────────────────────────────────────────────

// selfResolver supplies the container for *Container and Resolver.
type selfResolver struct{}

func (selfResolver) handles(_ *Container, t Type) bool {
	return t == containerType || t == resolverType
}

func (selfResolver) resolve(r *request, _ Type) (any, error) {
	return r.c, nil
}

// ── Lazy ──────────────────────────────────────────────────────────────────────

// Lazy defers resolution of T until Value is first called. Depend on
// *Lazy[T] to break construction order or to avoid building an expensive
// service that may not be needed:
//
//	func NewReportJob(mailer *container.Lazy[Mailer]) *ReportJob
//
// A lazy dependency does not count as an edge for cycle detection.
type Lazy[T any] struct {
	once    sync.Once
	resolve func() (any, error)
	value   T
	err     error
	done    atomic.Bool
}

// Value resolves T on first use and returns the same result afterwards.
func (l *Lazy[T]) Value() (T, error) {
	l.once.Do(func() {
		defer l.done.Store(true)
		if l.resolve == nil {
			l.err = errors.New("container: lazy handle was not created by a container")
			return
		}
		v, err := l.resolve()
		if err != nil {
			l.err = err
			return
		}
		if v == nil {
			return
		}
		typed, ok := v.(T)
		if !ok {
			l.err = fmt.Errorf("container: lazy value %T is not %s", v, reflect.TypeOf((*T)(nil)).Elem())
			return
		}
		l.value = typed
	})
	return l.value, l.err
}

// MustValue is Value that panics on error.
func (l *Lazy[T]) MustValue() T {
	v, err := l.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// IsValueCreated reports whether Value has completed at least once.
func (l *Lazy[T]) IsValueCreated() bool { return l.done.Load() }

func (*Lazy[T]) lazyElem() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func (l *Lazy[T]) bind(resolve func() (any, error)) { l.resolve = resolve }

// lazyHandle is implemented by every *Lazy[T].
type lazyHandle interface {
	lazyElem() reflect.Type
	bind(resolve func() (any, error))
}

var lazyHandleType = reflect.TypeOf((*lazyHandle)(nil)).Elem()

// lazyElem reports whether t is *Lazy[T] and returns T.
func lazyElem(t Type) (Type, bool) {
	rt := t.Reflect()
	if rt == nil || rt.Kind() != reflect.Pointer || !rt.Implements(lazyHandleType) {
		return Type{}, false
	}
	h := reflect.Zero(rt).Interface().(lazyHandle)
	return TypeFor(h.lazyElem()), true
}

// lazyResolver supplies *Lazy[T] for every T the container can resolve.
type lazyResolver struct{}

func (lazyResolver) handles(c *Container, t Type) bool {
	elem, ok := lazyElem(t)
	return ok && c.CanResolve(elem)
}

func (lazyResolver) resolve(r *request, t Type) (any, error) {
	elem, _ := lazyElem(t)
	h := reflect.New(t.Reflect().Elem()).Interface().(lazyHandle)
	c := r.c
	h.bind(func() (any, error) { return c.Resolve(elem) })
	return h, nil
}

// ── Collections ───────────────────────────────────────────────────────────────

// collectionResolver supplies []T as every unkeyed binding of T, unless
// []T itself is registered.
type collectionResolver struct{}

func (collectionResolver) handles(c *Container, t Type) bool {
	rt := t.Reflect()
	if rt == nil || rt.Kind() != reflect.Slice {
		return false
	}
	_, registered := c.contexts[t]
	return !registered
}

func (collectionResolver) resolve(r *request, t Type) (any, error) {
	rt := t.Reflect()
	items, err := r.resolveAll(TypeFor(rt.Elem()))
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(rt, 0, len(items))
	for _, item := range items {
		v, err := argValue(item, rt.Elem())
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, v)
	}
	return out.Interface(), nil
}
