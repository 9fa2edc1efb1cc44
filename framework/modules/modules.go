// Package modules holds the framework's own container modules: configuration,
// logging, HTTP routing and the diagnostics endpoints. Framework wires all of
// them; applications register it next to their own modules.
package modules

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/diagnostics"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ContainerOptions turns the container section of cfg into builder options.
func ContainerOptions(cfg *config.Config, logger logr.Logger) []container.Option {
	return []container.Option{
		container.WithResolveImplicit(cfg.Container.ResolveImplicit),
		container.WithLogger(logger.WithName("container")),
	}
}

// NewLogger returns a stdr logger writing to stderr, printing V-levels up to
// cfg.Container.LogVerbosity.
func NewLogger(cfg *config.Config) logr.Logger {
	stdr.SetVerbosity(cfg.Container.LogVerbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName(cfg.App.Name)
}

// ── Framework ─────────────────────────────────────────────────────────────────

// Framework is the parent module of every framework module.
//
// Bound types:
//   - *config.Config    (ConfigModule)
//   - logr.Logger       (LoggingModule)
//   - *routing.Router   (RoutingModule)
//   - *diagnostics.Handler, mounted on the router at boot (DiagnosticsModule)
type Framework struct {
	Config  *ConfigModule
	Logging *LoggingModule
	Routing *RoutingModule
	Diag    *DiagnosticsModule
}

// NewFramework returns the framework modules for cfg and logger.
func NewFramework(cfg *config.Config, logger logr.Logger) *Framework {
	return &Framework{
		Config:  &ConfigModule{Config: cfg},
		Logging: &LoggingModule{Logger: &logger},
		Routing: &RoutingModule{},
		Diag:    &DiagnosticsModule{},
	}
}

func (f *Framework) Name() string { return "framework" }

func (f *Framework) Load(b *container.Builder) {
	b.RegisterModule(f.Config)
	b.RegisterModule(f.Logging)
	b.RegisterModule(f.Routing)
	b.RegisterModule(f.Diag)
}

// ── ConfigModule ──────────────────────────────────────────────────────────────

// ConfigModule binds *config.Config. A nil Config is loaded from EnvFiles on
// first resolve.
type ConfigModule struct {
	Config   *config.Config
	EnvFiles []string
}

func (m *ConfigModule) Name() string { return "config" }

func (m *ConfigModule) Load(b *container.Builder) {
	if m.Config != nil {
		b.RegisterInstance(m.Config)
		return
	}
	envFiles := m.EnvFiles
	b.RegisterFactory(container.TypeOf[*config.Config](), func(container.ActivationContext) (any, error) {
		return config.Load(envFiles...), nil
	}).SingleInstance()
}

// ── LoggingModule ─────────────────────────────────────────────────────────────

// LoggingModule binds logr.Logger. A nil Logger is built by NewLogger from
// the bound configuration.
type LoggingModule struct {
	Logger *logr.Logger
}

func (m *LoggingModule) Name() string { return "logging" }

func (m *LoggingModule) Load(b *container.Builder) {
	if m.Logger != nil {
		b.RegisterInstance(*m.Logger)
		return
	}
	b.Register(NewLogger).SingleInstance()
}

// ── RoutingModule ─────────────────────────────────────────────────────────────

// RoutingModule binds the HTTP router as a singleton.
type RoutingModule struct{}

func (m *RoutingModule) Name() string { return "routing" }

func (m *RoutingModule) Load(b *container.Builder) {
	b.Register(routing.New).SingleInstance()
}

// ── DiagnosticsModule ─────────────────────────────────────────────────────────

// DiagnosticsModule binds *diagnostics.Handler and, when
// cfg.Diagnostics.Enabled, mounts it under cfg.Diagnostics.Prefix at boot.
type DiagnosticsModule struct {
	mounted bool
}

func (m *DiagnosticsModule) Name() string { return "diagnostics" }

func (m *DiagnosticsModule) Load(b *container.Builder) {
	b.RegisterFactory(container.TypeOf[*diagnostics.Handler](), func(ctx container.ActivationContext) (any, error) {
		logger, err := container.Resolve[logr.Logger](ctx)
		if err != nil {
			return nil, err
		}
		return diagnostics.New(ctx.Container(), logger), nil
	}).SingleInstance()
}

func (m *DiagnosticsModule) Boot(c *container.Container) error {
	cfg, err := container.Resolve[*config.Config](c)
	if err != nil {
		return err
	}
	if !cfg.Diagnostics.Enabled {
		return nil
	}
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	h, err := container.Resolve[*diagnostics.Handler](c)
	if err != nil {
		return err
	}
	h.Register(router, cfg.Diagnostics.Prefix)
	m.mounted = true
	return nil
}

// Mounted reports whether Boot mounted the endpoints.
func (m *DiagnosticsModule) Mounted() bool { return m.mounted }
