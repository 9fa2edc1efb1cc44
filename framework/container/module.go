package container

// ── Module interface ──────────────────────────────────────────────────────────

// Module is a named, reusable bundle of registrations.
//
// Load receives an isolated sub-builder. Everything it registers is tagged
// with the module and merged into the root builder when Build runs. A module
// may register child modules on the sub-builder; they are activated after it.
//
// A module is activated at most once per builder no matter how many times,
// or from how many parents, it is registered. Identity is interface
// equality, so implement Module on a pointer type.
//
//	type MailModule struct{}
//
//	func (*MailModule) Name() string { return "mail" }
//	func (*MailModule) Load(b *container.Builder) {
//	    b.Register(NewSMTPMailer).As(container.TypeOf[Mailer]()).SingleInstance()
//	    b.RegisterModule(templatesModule)
//	}
type Module interface {
	Name() string
	Load(b *Builder)
}

// Booter is implemented by modules that need the finished container.
// Boot runs after a successful build, in activation order, and at most once
// per builder: rebuilding the same builder does not boot a module again.
// A Boot error fails the build; the module is booted again on the next Build.
type Booter interface {
	Boot(c *Container) error
}

// funcModule adapts a plain function to Module.
type funcModule struct {
	name string
	load func(b *Builder)
}

// NewModule returns a Module backed by load. Every call returns a distinct
// module, even for equal names.
func NewModule(name string, load func(b *Builder)) Module {
	if load == nil {
		invalidArgument("NewModule", "load function must not be nil")
	}
	return &funcModule{name: name, load: load}
}

func (m *funcModule) Name() string    { return m.name }
func (m *funcModule) Load(b *Builder) { m.load(b) }

// ── Module arena ──────────────────────────────────────────────────────────────

// moduleEntry tracks one module for the lifetime of a builder.
type moduleEntry struct {
	module     Module
	registered bool
	booted     bool
	// records holds what the module contributed, for introspection.
	records []*Registration
}

// moduleArena keeps entries in first-seen order; the registered flag lives
// here rather than on the module so a module value can be reused by
// independent builders.
type moduleArena struct {
	entries []*moduleEntry
}

// entry returns the entry for m, creating it on first sight.
func (a *moduleArena) entry(m Module) *moduleEntry {
	for _, e := range a.entries {
		if e.module == m {
			return e
		}
	}
	e := &moduleEntry{module: m}
	a.entries = append(a.entries, e)
	return e
}

// activated returns the registered entries in activation order.
func (a *moduleArena) activated() []*moduleEntry {
	out := make([]*moduleEntry, 0, len(a.entries))
	for _, e := range a.entries {
		if e.registered {
			out = append(out, e)
		}
	}
	return out
}

// ModuleInfo describes an activated module and the registrations it made.
type ModuleInfo struct {
	Name          string
	Registrations []RegistrationInfo
}

func (e *moduleEntry) info() ModuleInfo {
	mi := ModuleInfo{Name: e.module.Name()}
	for _, r := range e.records {
		mi.Registrations = append(mi.Registrations, r.info())
	}
	return mi
}
