package container

import "github.com/go-logr/logr"

// Option configures a Builder.
type Option func(*options)

type options struct {
	resolveImplicit bool
	activator       Activator
	inspector       Inspector
	logger          logr.Logger
}

func defaultOptions() *options {
	return &options{logger: logr.Discard()}
}

// WithResolveImplicit lets the container build unregistered structs and
// pointers to structs on demand. Off by default.
var WithResolveImplicit = func(enabled bool) Option {
	return func(o *options) {
		o.resolveImplicit = enabled
	}
}

// WithActivator replaces the function that turns a type and its resolved
// constructor arguments into an instance.
var WithActivator = func(a Activator) Option {
	return func(o *options) {
		o.activator = a
	}
}

// WithInspector replaces constructor discovery. Constructor functions passed
// to Builder.Register are still recorded with the builder's Reflector, which
// only the default activator consults.
var WithInspector = func(i Inspector) Option {
	return func(o *options) {
		o.inspector = i
	}
}

// WithLogger sets the logger used by the builder and the container.
var WithLogger = func(log logr.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}
