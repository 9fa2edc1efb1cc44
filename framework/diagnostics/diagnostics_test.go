package diagnostics_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/diagnostics"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Store interface{ Get(key string) string }

type MemoryStore struct{ data map[string]string }

func (s *MemoryStore) Get(key string) string { return s.data[key] }

type CacheStore struct{ ttl int }

func (s *CacheStore) Get(string) string { return "" }

type Repo struct {
	Store Store `inject:""`
}

const prefix = "/_container"

func newServer(t *testing.T) *routing.Router {
	t.Helper()
	storeType := container.TypeOf[Store]()

	b := container.NewBuilder()
	b.RegisterModule(container.NewModule("storage", func(b *container.Builder) {
		b.RegisterType(container.TypeOf[*MemoryStore]()).As(storeType).SingleInstance()
		b.RegisterType(container.TypeOf[*CacheStore]()).As(storeType).Keyed("cache")
	}))
	b.RegisterType(container.TypeOf[*Repo]()).
		WithParameter(container.PositionalParameter(0, &MemoryStore{}))

	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := routing.New(logr.Discard())
	diagnostics.New(c, logr.Discard()).Register(r, prefix)
	return r
}

func get(t *testing.T, r *routing.Router, path string, into any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	if into != nil && rr.Code == http.StatusOK {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.NewDecoder(rr.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if err := json.Unmarshal(envelope.Data, into); err != nil {
			t.Fatalf("decode data %s: %v", path, err)
		}
	}
	return rr.Code
}

// ── Endpoints ─────────────────────────────────────────────────────────────────

func TestDiagnostics_Summary(t *testing.T) {
	r := newServer(t)

	var s diagnostics.Summary
	if code := get(t, r, prefix+"/", &s); code != http.StatusOK {
		t.Fatalf("status: got %d want 200", code)
	}
	if s.Contexts != 2 {
		t.Errorf("Contexts: got %d want 2", s.Contexts)
	}
	if s.Modules != 1 {
		t.Errorf("Modules: got %d want 1", s.Modules)
	}
	want := []diagnostics.ScopeCount{{Scope: "singleton", Bindings: 1}, {Scope: "transient", Bindings: 2}}
	if len(s.Scopes) != len(want) {
		t.Fatalf("Scopes: got %v want %v", s.Scopes, want)
	}
	for i := range want {
		if s.Scopes[i] != want[i] {
			t.Errorf("Scopes[%d]: got %v want %v", i, s.Scopes[i], want[i])
		}
	}
}

func TestDiagnostics_Contexts(t *testing.T) {
	r := newServer(t)

	var views []diagnostics.ContextView
	if code := get(t, r, prefix+"/contexts", &views); code != http.StatusOK {
		t.Fatalf("status: got %d want 200", code)
	}
	if len(views) != 2 {
		t.Fatalf("contexts: got %d want 2", len(views))
	}

	repo, store := views[0], views[1]
	if store.Target != "diagnostics_test.Store" {
		t.Errorf("Target: got %q", store.Target)
	}
	if len(store.Bindings) != 2 {
		t.Fatalf("bindings: got %d want 2", len(store.Bindings))
	}
	mem, cache := store.Bindings[0], store.Bindings[1]
	if !mem.Default || cache.Default {
		t.Errorf("default: memory=%t cache=%t, want memory only", mem.Default, cache.Default)
	}
	if cache.Key != "cache" {
		t.Errorf("Key: got %q want cache", cache.Key)
	}
	if mem.Module != "storage" || mem.Scope != "singleton" {
		t.Errorf("memory binding: got module=%q scope=%q", mem.Module, mem.Scope)
	}

	if got := repo.Bindings[0].Parameters; len(got) != 1 || got[0] != "position:0" {
		t.Errorf("Parameters: got %v want [position:0]", got)
	}
}

func TestDiagnostics_ContextsFilteredByModule(t *testing.T) {
	r := newServer(t)

	var views []diagnostics.ContextView
	get(t, r, prefix+"/contexts?module=storage", &views)

	if len(views) != 1 || views[0].Target != "diagnostics_test.Store" {
		t.Errorf("got %+v, want only the Store context", views)
	}
}

func TestDiagnostics_Context(t *testing.T) {
	r := newServer(t)

	var view diagnostics.ContextView
	if code := get(t, r, prefix+"/contexts/*diagnostics_test.Repo", &view); code != http.StatusOK {
		t.Fatalf("status: got %d want 200", code)
	}
	if view.Target != "*diagnostics_test.Repo" {
		t.Errorf("Target: got %q", view.Target)
	}

	if code := get(t, r, prefix+"/contexts/%2Adiagnostics_test.Repo", nil); code != http.StatusOK {
		t.Errorf("escaped type: got %d want 200", code)
	}
}

func TestDiagnostics_ContextNotFound(t *testing.T) {
	r := newServer(t)

	if code := get(t, r, prefix+"/contexts/main.Missing", nil); code != http.StatusNotFound {
		t.Errorf("status: got %d want 404", code)
	}
}

func TestDiagnostics_Modules(t *testing.T) {
	r := newServer(t)

	var views []diagnostics.ModuleView
	get(t, r, prefix+"/modules", &views)

	if len(views) != 1 {
		t.Fatalf("modules: got %d want 1", len(views))
	}
	m := views[0]
	if m.Name != "storage" || m.Registrations != 2 {
		t.Errorf("module: got %+v", m)
	}
	if len(m.Sources) != 2 || m.Sources[0] != "*diagnostics_test.MemoryStore" {
		t.Errorf("Sources: got %v", m.Sources)
	}
}

func TestDiagnostics_Graph(t *testing.T) {
	r := newServer(t)

	var g diagnostics.GraphView
	if code := get(t, r, prefix+"/graph", &g); code != http.StatusOK {
		t.Fatalf("status: got %d want 200", code)
	}

	want := diagnostics.EdgeView{From: "diagnostics_test.Store", To: "*diagnostics_test.MemoryStore"}
	found := false
	for _, e := range g.Edges {
		if e == want {
			found = true
		}
		if e.From == "*diagnostics_test.Repo" {
			t.Errorf("overridden parameter should add no edge, got %v", e)
		}
	}
	if !found {
		t.Errorf("edge %v missing from %v", want, g.Edges)
	}
	if len(g.Order) != len(g.Nodes) {
		t.Errorf("order has %d nodes, graph has %d", len(g.Order), len(g.Nodes))
	}
}
