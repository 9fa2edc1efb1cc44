package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

type EnglishGreeter struct{ Prefix string }

func (g *EnglishGreeter) Greet() string { return g.Prefix + "hello" }

type FrenchGreeter struct{ Prefix string }

func (g *FrenchGreeter) Greet() string { return g.Prefix + "bonjour" }

type LoudGreeter struct{ Prefix string }

func (g *LoudGreeter) Greet() string { return g.Prefix + "HELLO" }

type ServiceA struct{ Name string }

type ServiceB struct{ A *ServiceA }

func NewServiceB(a *ServiceA) *ServiceB { return &ServiceB{A: a} }

// X and Y need each other.
type X struct {
	Y *Y `inject:""`
}

type Y struct {
	X *X `inject:""`
}

type Server struct {
	Name string
	Port int
}

func NewServer(name string, port int) *Server { return &Server{Name: name, Port: port} }

type Unit struct{ ID int }

type Pair struct {
	Left  *Unit `inject:""`
	Right *Unit `inject:""`
}

type Chorus struct {
	Greeters []Greeter `inject:""`
}

type Reporter struct {
	Greeter *container.Lazy[Greeter] `inject:""`
}

type Introspector struct {
	Container *container.Container `inject:""`
	Resolver  container.Resolver   `inject:""`
}

type Handler struct {
	B *ServiceB `inject:""`
}

// label is a comparable key type whose field may hold anything.
type label struct{ v any }

// ── helpers ───────────────────────────────────────────────────────────────────

func mustBuild(t *testing.T, b *container.Builder) *container.Container {
	t.Helper()
	c, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

// requireInvalidArgument runs fn and asserts it panicked with an
// *ArgumentError.
func requireInvalidArgument(t *testing.T, fn func()) *container.ArgumentError {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected a panic")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.ErrorIs(t, err, container.ErrInvalidArgument)

	var argErr *container.ArgumentError
	require.True(t, errors.As(err, &argErr))
	return argErr
}
