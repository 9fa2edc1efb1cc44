package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/modules"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ErrNotBooted is returned by accessors that need the built container.
var ErrNotBooted = errors.New("app: application has not been booted")

const shutdownTimeout = 5 * time.Second

// Application owns the configuration, the logger and the container built
// from the framework modules plus the modules registered by the app.
type Application struct {
	Config    *config.Config
	Log       logr.Logger
	Container *container.Container
	// BuildID identifies one Boot in logs and diagnostics.
	BuildID string

	framework *modules.Framework
	modules   []container.Module
}

// New loads configuration from envFiles and creates the application.
//
//	app := app.New()
//	app.Register(users.Module)
//	if err := app.Run(ctx); err != nil { ... }
func New(envFiles ...string) *Application {
	cfg := config.Load(envFiles...)
	return NewWithConfig(cfg, modules.NewLogger(cfg))
}

// NewWithConfig creates the application from an existing configuration and
// logger.
func NewWithConfig(cfg *config.Config, log logr.Logger) *Application {
	return &Application{
		Config:    cfg,
		Log:       log,
		framework: modules.NewFramework(cfg, log),
	}
}

// Register adds an application module. Modules registered after Boot are
// ignored.
func (a *Application) Register(m container.Module) {
	if a.Container != nil {
		a.Log.Info("module registered after boot, ignoring", "module", m.Name())
		return
	}
	a.modules = append(a.modules, m)
}

// Boot builds the container once. Later calls are no-ops.
func (a *Application) Boot() error {
	if a.Container != nil {
		return nil
	}
	a.BuildID = uuid.NewString()
	log := a.Log.WithValues("build_id", a.BuildID)

	b := container.NewBuilder(modules.ContainerOptions(a.Config, log)...)
	b.RegisterModule(a.framework)
	for _, m := range a.modules {
		b.RegisterModule(m)
	}

	c, err := b.Build()
	if err != nil {
		return err
	}
	a.Container = c
	log.Info("application booted", "env", a.Config.App.Env, "contexts", len(c.Targets()))
	return nil
}

// Router resolves the HTTP router from the container.
func (a *Application) Router() (*routing.Router, error) {
	if a.Container == nil {
		return nil, ErrNotBooted
	}
	return container.Resolve[*routing.Router](a.Container)
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until
// ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: ":" + a.Config.App.Port, Handler: router}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("serving", "name", a.Config.App.Name, "addr", srv.Addr, "env", a.Config.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
