package modules_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/modules"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Name: "test", Env: "testing", Port: "0"},
		Diagnostics: config.DiagnosticsConfig{Enabled: true, Prefix: "/_container"},
	}
}

func build(t *testing.T, cfg *config.Config, mods ...container.Module) *container.Container {
	t.Helper()
	b := container.NewBuilder(modules.ContainerOptions(cfg, logr.Discard())...)
	for _, m := range mods {
		b.RegisterModule(m)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

// ── Framework ─────────────────────────────────────────────────────────────────

func TestFramework_BindsCoreServices(t *testing.T) {
	cfg := testConfig()
	c := build(t, cfg, modules.NewFramework(cfg, logr.Discard()))

	got, err := container.Resolve[*config.Config](c)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if got != cfg {
		t.Error("expected the registered *config.Config instance")
	}

	r1 := container.MustResolve[*routing.Router](c)
	r2 := container.MustResolve[*routing.Router](c)
	if r1 != r2 {
		t.Error("router should be a singleton")
	}
}

func TestFramework_ActivationOrder(t *testing.T) {
	cfg := testConfig()
	c := build(t, cfg, modules.NewFramework(cfg, logr.Discard()))

	want := []string{"framework", "config", "logging", "routing", "diagnostics"}
	got := c.Modules()
	if len(got) != len(want) {
		t.Fatalf("modules: got %d want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Name != want[i] {
			t.Errorf("module %d: got %q want %q", i, m.Name, want[i])
		}
	}
}

func TestFramework_ChildRegisteredTwiceLoadsOnce(t *testing.T) {
	cfg := testConfig()
	fw := modules.NewFramework(cfg, logr.Discard())

	// Registering a child next to its parent must not duplicate its bindings.
	c := build(t, cfg, fw, fw.Routing, fw)

	rc, ok := c.Context(container.TypeOf[*routing.Router]())
	if !ok {
		t.Fatal("router not registered")
	}
	if n := len(rc.Sources()); n != 1 {
		t.Errorf("router sources: got %d want 1", n)
	}
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

func TestDiagnosticsModule_MountsEndpoints(t *testing.T) {
	cfg := testConfig()
	fw := modules.NewFramework(cfg, logr.Discard())
	c := build(t, cfg, fw)

	if !fw.Diag.Mounted() {
		t.Fatal("expected diagnostics to be mounted at boot")
	}

	router := container.MustResolve[*routing.Router](c)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_container/modules", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("GET /_container/modules: got %d want 200", rr.Code)
	}
}

func TestDiagnosticsModule_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Diagnostics.Enabled = false
	fw := modules.NewFramework(cfg, logr.Discard())
	c := build(t, cfg, fw)

	if fw.Diag.Mounted() {
		t.Error("diagnostics should not be mounted when disabled")
	}

	router := container.MustResolve[*routing.Router](c)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_container/modules", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET /_container/modules: got %d want 404", rr.Code)
	}
}

// ── Config & logging ──────────────────────────────────────────────────────────

func TestConfigModule_LoadsFromEnvOnResolve(t *testing.T) {
	t.Setenv("APP_NAME", "FromEnv")
	c := build(t, testConfig(), &modules.ConfigModule{EnvFiles: []string{"testdata/missing.env"}})

	cfg := container.MustResolve[*config.Config](c)
	if cfg.App.Name != "FromEnv" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "FromEnv")
	}
	if container.MustResolve[*config.Config](c) != cfg {
		t.Error("loaded config should be a singleton")
	}
}

func TestLoggingModule_BuildsLoggerFromConfig(t *testing.T) {
	cfg := testConfig()
	c := build(t, cfg, &modules.ConfigModule{Config: cfg}, &modules.LoggingModule{})

	logger, err := container.Resolve[logr.Logger](c)
	if err != nil {
		t.Fatalf("resolve logger: %v", err)
	}
	if logger.GetSink() == nil {
		t.Error("expected a logger with a sink")
	}
}

func TestContainerOptions_ResolveImplicit(t *testing.T) {
	cfg := testConfig()
	cfg.Container.ResolveImplicit = true

	c := build(t, cfg)
	if !c.ResolveImplicit() {
		t.Error("expected implicit resolution from config")
	}
}
