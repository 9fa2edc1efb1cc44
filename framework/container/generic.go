package container

import "fmt"

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves T and type-asserts the result.
//
//	// Instead of: v, err := c.Resolve(container.TypeOf[*UserRepo]()); repo := v.(*UserRepo)
//	// Write:      repo, err := container.Resolve[*UserRepo](c)
func Resolve[T any](r Resolver) (T, error) {
	v, err := r.Resolve(TypeOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}

// MustResolve is Resolve that panics on error. Useful in composition roots
// where a missing service should stop the program.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveKeyed resolves the binding of T registered under key.
func ResolveKeyed[T any](r Resolver, key any) (T, error) {
	v, err := r.ResolveKeyed(TypeOf[T](), key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}

// ResolveAll resolves every unkeyed binding of T.
func ResolveAll[T any](r Resolver) ([]T, error) {
	vs, err := r.ResolveAll(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		typed, err := cast[T](v)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

func cast[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{
			Type: TypeOf[T](),
			Err:  fmt.Errorf("resolved to %T", v),
		}
	}
	return typed, nil
}
