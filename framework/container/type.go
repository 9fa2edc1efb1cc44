package container

import "reflect"

// Type identifies a service type. It is the key every registration,
// resolution context and dependency edge is stored under.
//
// Type is comparable and may be used as a map key. The zero Type means
// "no type" and is used by registrations that bind each source to itself.
type Type struct {
	rt reflect.Type
}

// TypeOf returns the Type of T. Use it for interfaces too:
//
//	container.TypeOf[Logger]()       // interface target
//	container.TypeOf[*FileLogger]()  // concrete source
func TypeOf[T any]() Type {
	return Type{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeFor wraps an existing reflect.Type.
func TypeFor(rt reflect.Type) Type {
	return Type{rt: rt}
}

// Reflect returns the underlying reflect.Type (nil for the zero Type).
func (t Type) Reflect() reflect.Type { return t.rt }

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool { return t.rt == nil }

// IsAbstract reports whether t can only be depended upon, never built.
// In Go that is every interface type.
func (t Type) IsAbstract() bool {
	return t.rt != nil && t.rt.Kind() == reflect.Interface
}

// AssignableTo reports whether a value of t can be used where u is expected.
func (t Type) AssignableTo(u Type) bool {
	if t.rt == nil || u.rt == nil {
		return false
	}
	return t.rt.AssignableTo(u.rt)
}

func (t Type) String() string {
	if t.rt == nil {
		return "<nil>"
	}
	return t.rt.String()
}

// implicitCandidate reports whether t may be built without a registration
// when implicit resolution is on. Only structs and pointers to structs
// qualify; scalars and slices would silently resolve to zero values.
func (t Type) implicitCandidate() bool {
	if t.rt == nil {
		return false
	}
	switch t.rt.Kind() {
	case reflect.Struct:
		return true
	case reflect.Pointer:
		return t.rt.Elem().Kind() == reflect.Struct
	default:
		return false
	}
}
