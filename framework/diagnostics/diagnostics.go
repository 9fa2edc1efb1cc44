// Package diagnostics exposes a built container over HTTP as read-only JSON:
// its resolution contexts, the modules that contributed them and the
// dependency graph the build was validated against.
//
//	GET {prefix}/                  summary
//	GET {prefix}/contexts          every context (?module=name filters)
//	GET {prefix}/contexts/{type}   one context, {type} as printed by Type.String
//	GET {prefix}/modules           activated modules
//	GET {prefix}/graph             edges and a topological order
package diagnostics

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── Views ─────────────────────────────────────────────────────────────────────

// Summary is the body of GET {prefix}/.
type Summary struct {
	Contexts int          `json:"contexts"`
	Modules  int          `json:"modules"`
	Implicit bool         `json:"implicit"`
	Scopes   []ScopeCount `json:"scopes"`
}

// ScopeCount is the number of bindings using one scope.
type ScopeCount struct {
	Scope    string `json:"scope"`
	Bindings int    `json:"bindings"`
}

// ContextView is one resolution context and its bindings in registration order.
type ContextView struct {
	Target   string        `json:"target"`
	Bindings []BindingView `json:"bindings"`
}

// BindingView describes how one source is bound to its target.
type BindingView struct {
	Source     string   `json:"source"`
	Scope      string   `json:"scope"`
	Key        string   `json:"key,omitempty"`
	Module     string   `json:"module,omitempty"`
	Factory    bool     `json:"factory"`
	Default    bool     `json:"default"`
	Parameters []string `json:"parameters,omitempty"`
}

// ModuleView is an activated module and the source types it registered.
type ModuleView struct {
	Name          string   `json:"name"`
	Registrations int      `json:"registrations"`
	Sources       []string `json:"sources"`
}

// GraphView is the dependency graph with dependents ordered before dependencies.
type GraphView struct {
	Nodes []string   `json:"nodes"`
	Edges []EdgeView `json:"edges"`
	Order []string   `json:"order"`
}

// EdgeView is one edge of GraphView; From needs To.
type EdgeView struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler serves the diagnostics endpoints for one container.
type Handler struct {
	c   *container.Container
	log logr.Logger
}

// New returns a Handler over c.
func New(c *container.Container, log logr.Logger) *Handler {
	return &Handler{c: c, log: log.WithName("diagnostics")}
}

// Register mounts the endpoints on r under prefix.
func (h *Handler) Register(r *routing.Router, prefix string) {
	r.Prefix(prefix, func(api *routing.Router) {
		api.Get("/", h.Summary)
		api.Get("/contexts", h.Contexts)
		api.Get("/contexts/{type}", h.Context)
		api.Get("/modules", h.Modules)
		api.Get("/graph", h.Graph)
	})
	h.log.V(1).Info("endpoints registered", "prefix", prefix)
}

// Summary counts contexts, modules and bindings per scope.
func (h *Handler) Summary(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[string]int)
	for _, rc := range h.c.Contexts() {
		for _, b := range rc.Bindings() {
			counts[b.Scope().String()]++
		}
	}
	scopes := maps.Keys(counts)
	slices.Sort(scopes)

	s := Summary{
		Contexts: len(h.c.Targets()),
		Modules:  len(h.c.Modules()),
		Implicit: h.c.ResolveImplicit(),
		Scopes:   make([]ScopeCount, 0, len(scopes)),
	}
	for _, scope := range scopes {
		s.Scopes = append(s.Scopes, ScopeCount{Scope: scope, Bindings: counts[scope]})
	}
	gohttp.NewResponse(w).Success(s)
}

// Contexts lists every context in registration order. With ?module=name only
// bindings contributed by that module are listed, and contexts left without
// bindings are dropped.
func (h *Handler) Contexts(w http.ResponseWriter, r *http.Request) {
	module := gohttp.NewRequest(r).Query("module")

	views := make([]ContextView, 0, len(h.c.Targets()))
	for _, rc := range h.c.Contexts() {
		v := contextView(rc)
		if module != "" {
			v.Bindings = slices.DeleteFunc(v.Bindings, func(b BindingView) bool { return b.Module != module })
			if len(v.Bindings) == 0 {
				continue
			}
		}
		views = append(views, v)
	}
	gohttp.NewResponse(w).Success(views)
}

// Context shows the context whose target prints as {type}.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	name, err := url.PathUnescape(req.RouteParam("type"))
	if err != nil {
		res.BadRequest(err.Error())
		return
	}
	for _, rc := range h.c.Contexts() {
		if rc.Target().String() == name {
			res.Success(contextView(rc))
			return
		}
	}
	res.Failure(fmt.Errorf("%w: %s", container.ErrNotRegistered, name))
}

// Modules lists the activated modules in activation order.
func (h *Handler) Modules(w http.ResponseWriter, _ *http.Request) {
	mods := h.c.Modules()
	views := make([]ModuleView, 0, len(mods))
	for _, m := range mods {
		v := ModuleView{Name: m.Name, Registrations: len(m.Registrations), Sources: []string{}}
		for _, reg := range m.Registrations {
			for _, src := range reg.Sources {
				v.Sources = append(v.Sources, src.String())
			}
		}
		views = append(views, v)
	}
	gohttp.NewResponse(w).Success(views)
}

// Graph returns the dependency graph, dependents before their dependencies.
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	g := h.c.DependencyGraph()

	order, err := g.TopologicalSort()
	if err != nil {
		h.log.Error(err, "dependency graph is not acyclic")
		res.Failure(err)
		return
	}

	view := GraphView{
		Nodes: typeNames(g.Nodes()),
		Edges: make([]EdgeView, 0, g.EdgeCount()),
		Order: typeNames(order),
	}
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			view.Edges = append(view.Edges, EdgeView{From: from.String(), To: to.String()})
		}
	}
	res.Success(view)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func contextView(rc *container.ResolutionContext) ContextView {
	def, _ := rc.Default()
	v := ContextView{Target: rc.Target().String(), Bindings: []BindingView{}}
	for _, b := range rc.Bindings() {
		bv := BindingView{
			Source:  b.Source().String(),
			Scope:   b.Scope().String(),
			Module:  b.Module(),
			Factory: b.HasFactory(),
			Default: b == def,
		}
		if key, ok := b.Key(); ok {
			bv.Key = fmt.Sprint(key)
		}
		for _, p := range b.Parameters() {
			bv.Parameters = append(bv.Parameters, p.String())
		}
		v.Bindings = append(v.Bindings, bv)
	}
	return v
}

func typeNames(ts []container.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
