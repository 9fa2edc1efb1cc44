package container

import "reflect"

// Component marks a struct for RegisterMarkedTypes. Embed it:
//
//	type AuditLog struct {
//	    container.Component
//	    Store *Store `inject:""`
//	}
type Component struct{}

var componentType = reflect.TypeOf((*Component)(nil)).Elem()

// AssemblyType is one entry of an Assembly.
type AssemblyType struct {
	Type Type
	// Marked selects the type for RegisterMarkedTypes.
	Marked bool
	// As, when set, is the target marked types are registered under.
	As Type
}

// TypeOption configures an AssemblyType as it is added.
type TypeOption func(*AssemblyType)

// Marked flags a type for RegisterMarkedTypes without embedding Component.
func Marked() TypeOption {
	return func(at *AssemblyType) { at.Marked = true }
}

// ExposedAs marks the type and registers it under target.
func ExposedAs(target Type) TypeOption {
	return func(at *AssemblyType) {
		at.Marked = true
		at.As = target
	}
}

// Assembly is a named collection of types a builder can scan. Go has no
// package-level type enumeration, so an Assembly is filled explicitly,
// usually by a package-level variable next to the types it lists.
type Assembly struct {
	name  string
	types []AssemblyType
}

// NewAssembly returns an empty assembly.
func NewAssembly(name string) *Assembly {
	return &Assembly{name: name}
}

// Add appends t. Structs embedding Component are marked automatically.
func (a *Assembly) Add(t Type, opts ...TypeOption) *Assembly {
	if t.IsZero() {
		invalidArgument("Assembly.Add", "type must not be zero")
	}
	at := AssemblyType{Type: t, Marked: embedsComponent(t)}
	for _, opt := range opts {
		opt(&at)
	}
	a.types = append(a.types, at)
	return a
}

// Name returns the assembly name.
func (a *Assembly) Name() string { return a.name }

// Types returns a copy of the entries in insertion order.
func (a *Assembly) Types() []AssemblyType {
	out := make([]AssemblyType, len(a.types))
	copy(out, a.types)
	return out
}

// Len returns the number of entries.
func (a *Assembly) Len() int { return len(a.types) }

func embedsComponent(t Type) bool {
	rt := t.Reflect()
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous && f.Type == componentType {
			return true
		}
	}
	return false
}
