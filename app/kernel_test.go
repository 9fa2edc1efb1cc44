package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-ioc/app"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
)

type Clock struct{ Zone string }

type Scheduler struct {
	Clock *Clock `inject:""`
}

func testApp() *app.Application {
	cfg := &config.Config{
		App:         config.AppConfig{Name: "test", Env: "testing", Port: "0"},
		Diagnostics: config.DiagnosticsConfig{Enabled: true, Prefix: "/_container"},
	}
	return app.NewWithConfig(cfg, logr.Discard())
}

var schedulingModule = container.NewModule("scheduling", func(b *container.Builder) {
	b.RegisterInstance(&Clock{Zone: "UTC"})
	b.RegisterType(container.TypeOf[*Scheduler]()).SingleInstance()
})

// ── Boot ──────────────────────────────────────────────────────────────────────

func TestApplication_BootBuildsAppModules(t *testing.T) {
	a := testApp()
	a.Register(schedulingModule)

	if err := a.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if a.BuildID == "" {
		t.Error("expected a build id")
	}

	s, err := container.Resolve[*Scheduler](a.Container)
	if err != nil {
		t.Fatalf("resolve scheduler: %v", err)
	}
	if s.Clock == nil || s.Clock.Zone != "UTC" {
		t.Errorf("scheduler clock: got %+v", s.Clock)
	}
}

func TestApplication_BootIsIdempotent(t *testing.T) {
	a := testApp()
	if err := a.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	first, id := a.Container, a.BuildID

	a.Register(schedulingModule)
	if err := a.Boot(); err != nil {
		t.Fatalf("second Boot: %v", err)
	}
	if a.Container != first || a.BuildID != id {
		t.Error("second Boot should keep the first container")
	}
	if a.Container.IsRegistered(container.TypeOf[*Scheduler]()) {
		t.Error("modules registered after boot must be ignored")
	}
}

func TestApplication_BootFailsOnCycle(t *testing.T) {
	type A struct{}
	type B struct{}

	a := testApp()
	a.Register(container.NewModule("broken", func(b *container.Builder) {
		b.Register(func(*B) *A { return &A{} })
		b.Register(func(*A) *B { return &B{} })
	}))

	if err := a.Boot(); err == nil {
		t.Fatal("expected a circular dependency error")
	}
	if a.Container != nil {
		t.Error("no container should be kept after a failed boot")
	}
}

func TestApplication_RouterBeforeBoot(t *testing.T) {
	if _, err := testApp().Router(); err != app.ErrNotBooted {
		t.Errorf("got %v want ErrNotBooted", err)
	}
}

func TestApplication_ServesDiagnostics(t *testing.T) {
	a := testApp()
	a.Register(schedulingModule)
	if err := a.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	router, err := a.Router()
	if err != nil {
		t.Fatalf("Router: %v", err)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_container/contexts/*app_test.Scheduler", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("GET scheduler context: got %d want 200", rr.Code)
	}
}

// ── Run ───────────────────────────────────────────────────────────────────────

func TestApplication_RunStopsOnCancel(t *testing.T) {
	a := testApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx); err != nil {
		t.Errorf("Run: %v", err)
	}
}

// ── Environment ───────────────────────────────────────────────────────────────

func TestApplication_Environment(t *testing.T) {
	a := testApp()
	if !a.IsTesting() || a.IsLocal() || a.IsProduction() {
		t.Errorf("environment helpers disagree with %q", a.Environment())
	}
}
