package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument is wrapped by every *ArgumentError. Invalid arguments
	// are reported at the call that caused them, before any state changes.
	ErrInvalidArgument = errors.New("container: invalid argument")

	// ErrDuplicateParameter is returned by Build when the same parameter
	// override is registered twice for one source type.
	ErrDuplicateParameter = errors.New("container: duplicate parameter override")

	// ErrNotAssignable is returned by Build when a construction target is an
	// interface, or a source cannot be used as its target.
	ErrNotAssignable = errors.New("container: type is not assignable")

	// ErrCircularDependency is returned by Build when constructor parameters
	// form a cycle, and by Resolve when a cycle the build could not see, such
	// as one through a factory or an implicit type, is hit at runtime.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrResolutionFailed is wrapped by every *ResolutionError.
	ErrResolutionFailed = errors.New("container: resolution failed")

	// ErrNilInstance means a factory or the activator returned nil without
	// an error.
	ErrNilInstance = errors.New("container: activation returned a nil instance")

	// ErrNotRegistered means no binding and no built-in resolver can supply a type.
	ErrNotRegistered = errors.New("container: type not registered")

	// ErrSubBuilder is returned when Build is called on the builder handed to
	// Module.Load. Only the root builder can produce a container.
	ErrSubBuilder = errors.New("container: Build called on a module sub-builder")
)

// ArgumentError describes a rejected registration call.
type ArgumentError struct {
	Op     string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("container: %s: %s", e.Op, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// invalidArgument panics with an *ArgumentError. Registration calls are
// chainable and return no error, so misuse is reported immediately.
func invalidArgument(op, format string, args ...any) {
	panic(&ArgumentError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// DuplicateParameterError names the source type that received the same
// override twice.
type DuplicateParameterError struct {
	Source    Type
	Target    Type
	Parameter Parameter
}

func (e *DuplicateParameterError) Error() string {
	return fmt.Sprintf("container: parameter %s already registered for %s (target %s)",
		e.Parameter, e.Source, e.Target)
}

func (e *DuplicateParameterError) Unwrap() error { return ErrDuplicateParameter }

// NotAssignableError names the type that cannot be constructed for Target.
type NotAssignableError struct {
	Type   Type
	Target Type
	Reason string
}

func (e *NotAssignableError) Error() string {
	return fmt.Sprintf("container: %s cannot be registered for %s: %s", e.Type, e.Target, e.Reason)
}

func (e *NotAssignableError) Unwrap() error { return ErrNotAssignable }

// CircularDependencyError carries the cycle that was found, first type
// repeated at the end.
type CircularDependencyError struct {
	Cycle []Type
}

func (e *CircularDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCircularDependency.Error()
	}
	parts := make([]string, len(e.Cycle))
	for i, t := range e.Cycle {
		parts[i] = t.String()
	}
	return ErrCircularDependency.Error() + ": " + strings.Join(parts, " -> ")
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// ResolutionError reports a failed Resolve. Err holds the cause, which is
// often another *ResolutionError for a nested dependency.
type ResolutionError struct {
	Type Type
	Key  any
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("container: cannot resolve %s (key %v): %v", e.Type, e.Key, e.Err)
	}
	return fmt.Sprintf("container: cannot resolve %s: %v", e.Type, e.Err)
}

func (e *ResolutionError) Unwrap() []error { return []error{ErrResolutionFailed, e.Err} }
