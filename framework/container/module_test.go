package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── stub modules ──────────────────────────────────────────────────────────────

// countingModule records how often it was loaded. Its registration carries a
// parameter override, so loading it twice into one build would also fail
// the build with a duplicate-parameter error.
type countingModule struct {
	name  string
	loads int
}

func (m *countingModule) Name() string { return m.name }

func (m *countingModule) Load(b *container.Builder) {
	m.loads++
	b.Register(NewServer).
		WithParameter(container.TypedParameter(container.TypeOf[string](), m.name)).
		WithParameter(container.PositionalParameter(1, 8080))
}

// parentModule registers its children from Load.
type parentModule struct {
	name     string
	children []container.Module
}

func (m *parentModule) Name() string { return m.name }

func (m *parentModule) Load(b *container.Builder) {
	b.RegisterType(container.TypeOf[*ServiceA]()).Keyed(m.name)
	for _, child := range m.children {
		b.RegisterModule(child)
	}
}

// bootingModule resolves from the finished container.
type bootingModule struct {
	booted *ServiceA
	boots  int
	err    error
}

func (m *bootingModule) Name() string { return "booting" }

func (m *bootingModule) Load(b *container.Builder) {
	b.RegisterInstance(&ServiceA{Name: "booted"})
}

func (m *bootingModule) Boot(c *container.Container) error {
	m.boots++
	if m.err != nil {
		return m.err
	}
	a, err := container.Resolve[*ServiceA](c)
	m.booted = a
	return err
}

// ── Activation ────────────────────────────────────────────────────────────────

func TestModule_RegistrationsAreMerged(t *testing.T) {
	shared := &countingModule{name: "http"}
	b := container.NewBuilder()
	b.RegisterModule(shared)

	c := mustBuild(t, b)

	srv := container.MustResolve[*Server](c)
	assert.Equal(t, "http", srv.Name)
	assert.Equal(t, 8080, srv.Port)
}

func TestModule_RegisteredTwiceLoadsOnce(t *testing.T) {
	shared := &countingModule{name: "http"}
	b := container.NewBuilder()
	b.RegisterModule(shared)
	b.RegisterModule(shared)

	c := mustBuild(t, b)

	assert.Equal(t, 1, shared.loads)
	assert.Len(t, c.Modules(), 1)
}

func TestModule_SharedChildOfTwoParentsLoadsOnce(t *testing.T) {
	shared := &countingModule{name: "shared"}
	left := &parentModule{name: "left", children: []container.Module{shared}}
	right := &parentModule{name: "right", children: []container.Module{shared}}

	b := container.NewBuilder()
	b.RegisterModule(left)
	b.RegisterModule(right)

	c := mustBuild(t, b)

	assert.Equal(t, 1, shared.loads)
	rc, ok := c.Context(container.TypeOf[*Server]())
	require.True(t, ok)
	assert.Len(t, rc.Sources(), 1)

	var names []string
	for _, m := range c.Modules() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"left", "right", "shared"}, names)
}

func TestModule_ParentRegisteredTwiceActivatesSharedChildOnce(t *testing.T) {
	shared := &countingModule{name: "shared"}
	parent := &parentModule{name: "parent", children: []container.Module{shared, shared}}

	b := container.NewBuilder()
	b.RegisterModule(parent)
	b.RegisterModule(parent)

	mustBuild(t, b)
	assert.Equal(t, 1, shared.loads)
}

func TestModule_EachBuilderActivatesIndependently(t *testing.T) {
	shared := &countingModule{name: "shared"}

	for i := 0; i < 2; i++ {
		b := container.NewBuilder()
		b.RegisterModule(shared)
		mustBuild(t, b)
	}

	assert.Equal(t, 2, shared.loads)
}

func TestModule_RebuildDoesNotReload(t *testing.T) {
	shared := &countingModule{name: "shared"}
	booting := &bootingModule{}
	b := container.NewBuilder()
	b.RegisterModule(shared)
	b.RegisterModule(booting)

	mustBuild(t, b)
	mustBuild(t, b)

	assert.Equal(t, 1, shared.loads)
	assert.Equal(t, 1, booting.boots)
}

func TestModule_FailedBootRetriedOnRebuild(t *testing.T) {
	m := &bootingModule{err: errors.New("not ready")}
	b := container.NewBuilder()
	b.RegisterModule(m)

	_, err := b.Build()
	require.Error(t, err)

	m.err = nil
	mustBuild(t, b)
	mustBuild(t, b)

	assert.Equal(t, 2, m.boots)
	require.NotNil(t, m.booted)
}

func TestModule_EqualNamesAreDistinctModules(t *testing.T) {
	var loads int
	load := func(b *container.Builder) {
		loads++
		b.RegisterType(container.TypeOf[*Unit]())
	}

	b := container.NewBuilder()
	b.RegisterModule(container.NewModule("units", load))
	b.RegisterModule(container.NewModule("units", load))

	mustBuild(t, b)
	assert.Equal(t, 2, loads)
}

// ── Introspection ─────────────────────────────────────────────────────────────

func TestModule_BindingsRecordOwner(t *testing.T) {
	b := container.NewBuilder()
	b.RegisterType(container.TypeOf[*Unit]())
	b.RegisterModule(&countingModule{name: "http"})

	c := mustBuild(t, b)

	rc, _ := c.Context(container.TypeOf[*Server]())
	assert.Equal(t, "http", rc.Bindings()[0].Module())

	rc, _ = c.Context(container.TypeOf[*Unit]())
	assert.Empty(t, rc.Bindings()[0].Module())

	mods := c.Modules()
	require.Len(t, mods, 1)
	require.Len(t, mods[0].Registrations, 1)

	reg := mods[0].Registrations[0]
	assert.Equal(t, "Register", reg.Op)
	assert.Equal(t, "http", reg.Module)
	assert.Equal(t, []container.Type{container.TypeOf[*Server]()}, reg.Sources)
	assert.Len(t, reg.Parameters, 2)
}

// ── Boot ──────────────────────────────────────────────────────────────────────

func TestModule_BootRunsAfterBuild(t *testing.T) {
	m := &bootingModule{}
	b := container.NewBuilder()
	b.RegisterModule(m)

	mustBuild(t, b)

	require.NotNil(t, m.booted)
	assert.Equal(t, "booted", m.booted.Name)
}

func TestModule_BootErrorFailsBuild(t *testing.T) {
	boom := errors.New("migrations failed")
	b := container.NewBuilder()
	b.RegisterModule(&bootingModule{err: boom})

	c, err := b.Build()

	require.ErrorIs(t, err, boom)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), `"booting"`)
}
