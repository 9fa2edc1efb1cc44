package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Inspector discovers what a concrete type needs to be built. Constructors
// returns one ordered parameter list per available constructor; the first
// one is used for activation. A type with no constructors has no
// dependencies.
type Inspector interface {
	Constructors(t Type) [][]Type
}

// Activator creates an instance of t from already-resolved constructor
// arguments, in the order the Inspector reported them. It is called exactly
// once per instance.
type Activator func(t Type, args []any) (any, error)

// InjectTag marks exported struct fields the Reflector fills when a type
// has no registered constructor function.
const InjectTag = "inject"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Reflector is the default Inspector and Activator. It knows two kinds of
// constructor:
//
//   - a Go constructor function recorded with Provide: its parameters are the
//     dependencies and it returns T or (T, error);
//   - for structs and pointers to structs without one: the exported fields
//     tagged `inject:""`, filled in declaration order on a new value.
//
// Any other type is built as its zero value (or a new pointer to one).
type Reflector struct {
	mu    sync.RWMutex
	ctors map[Type]reflect.Value
}

// NewReflector returns an empty Reflector.
func NewReflector() *Reflector {
	return &Reflector{ctors: make(map[Type]reflect.Value)}
}

// Provide records ctor as the constructor of the type it returns and
// returns that type.
func (r *Reflector) Provide(ctor any) (Type, error) {
	if ctor == nil {
		return Type{}, errors.New("constructor must not be nil")
	}
	fn := reflect.ValueOf(ctor)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return Type{}, fmt.Errorf("constructor must be a function, got %s", ft)
	}
	if ft.IsVariadic() {
		return Type{}, fmt.Errorf("constructor %s must not be variadic", ft)
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return Type{}, fmt.Errorf("constructor %s: second result must be error", ft)
		}
	default:
		return Type{}, fmt.Errorf("constructor %s must return T or (T, error)", ft)
	}

	out := TypeFor(ft.Out(0))
	r.mu.Lock()
	r.ctors[out] = fn
	r.mu.Unlock()
	return out, nil
}

func (r *Reflector) constructor(t Type) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.ctors[t]
	return fn, ok
}

// Constructors implements Inspector.
func (r *Reflector) Constructors(t Type) [][]Type {
	if t.IsZero() || t.IsAbstract() {
		return nil
	}
	if fn, ok := r.constructor(t); ok {
		ft := fn.Type()
		params := make([]Type, ft.NumIn())
		for i := range params {
			params[i] = TypeFor(ft.In(i))
		}
		return [][]Type{params}
	}
	fields := injectFields(t.Reflect())
	params := make([]Type, len(fields))
	for i, f := range fields {
		params[i] = TypeFor(f.Type)
	}
	return [][]Type{params}
}

// Activate implements Activator.
func (r *Reflector) Activate(t Type, args []any) (any, error) {
	if t.IsZero() || t.IsAbstract() {
		return nil, &NotAssignableError{Type: t, Target: t, Reason: "interfaces cannot be constructed"}
	}
	if fn, ok := r.constructor(t); ok {
		return callConstructor(fn, args)
	}

	rt := t.Reflect()
	switch {
	case rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Struct:
		v := reflect.New(rt.Elem())
		if err := fillFields(v.Elem(), args); err != nil {
			return nil, fmt.Errorf("activate %s: %w", t, err)
		}
		return v.Interface(), nil
	case rt.Kind() == reflect.Struct:
		v := reflect.New(rt).Elem()
		if err := fillFields(v, args); err != nil {
			return nil, fmt.Errorf("activate %s: %w", t, err)
		}
		return v.Interface(), nil
	case rt.Kind() == reflect.Pointer:
		return reflect.New(rt.Elem()).Interface(), nil
	default:
		if len(args) != 0 {
			return nil, fmt.Errorf("activate %s: got %d arguments, want 0", t, len(args))
		}
		return reflect.Zero(rt).Interface(), nil
	}
}

func callConstructor(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	if len(args) != ft.NumIn() {
		return nil, fmt.Errorf("constructor %s: got %d arguments, want %d", ft, len(args), ft.NumIn())
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := argValue(a, ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("constructor %s: argument %d: %w", ft, i, err)
		}
		in[i] = v
	}
	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// injectFields returns the settable fields tagged for injection.
func injectFields(rt reflect.Type) []reflect.StructField {
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	var fields []reflect.StructField
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if _, ok := f.Tag.Lookup(InjectTag); ok && f.IsExported() {
			fields = append(fields, f)
		}
	}
	return fields
}

func fillFields(v reflect.Value, args []any) error {
	fields := injectFields(v.Type())
	if len(args) != len(fields) {
		return fmt.Errorf("got %d arguments, want %d", len(args), len(fields))
	}
	for i, f := range fields {
		av, err := argValue(args[i], f.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		v.FieldByIndex(f.Index).Set(av)
	}
	return nil
}

// argValue converts a resolved argument to the parameter type.
func argValue(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(a)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
	}
	return v, nil
}
