// Package container provides a type-keyed IoC (Inversion of Control)
// container that is validated in full before the first instance is built.
//
// # Overview
//
// Services are registered on a Builder. Build activates modules, folds every
// registration into one ResolutionContext per target type, checks that each
// source can stand in for its target and rejects constructor cycles. The
// resulting Container is immutable; it only resolves.
//
// Types are identified by Type values, created with TypeOf:
//
//	container.TypeOf[*UserRepo]()
//	container.TypeOf[Mailer]() // interfaces are valid targets, never sources
//
// # Container Lifecycle
//
//  1. Create: b := container.NewBuilder(container.WithLogger(log))
//  2. Register types, constructors, factories, instances and modules
//  3. Build: c, err := b.Build()   (errors.Is: ErrCircularDependency, ErrDuplicateParameter, ErrNotAssignable)
//  4. Resolve: repo, err := container.Resolve[*UserRepo](c)
//
// # Bindings
//
//	// Constructor function: parameters are resolved from the container
//	b.Register(NewUserRepo)
//
//	// Struct built from its `inject:""` fields
//	b.RegisterType(container.TypeOf[*AuditLog]())
//
//	// Several sources behind one interface; the last unkeyed one is the default
//	b.RegisterTypes(container.TypeOf[*SMTPMailer](), container.TypeOf[*LogMailer]()).
//	    As(container.TypeOf[Mailer]())
//
//	// Pre-built value (always a singleton)
//	b.RegisterInstance(cfg)
//
//	// Factory in place of reflective construction
//	b.RegisterFactory(container.TypeOf[*sql.DB](), func(ctx container.ActivationContext) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](ctx)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return sql.Open(cfg.DB.Driver, cfg.DB.DSN())
//	}).SingleInstance()
//
// # Scopes
//
//	.Transient()          // new instance per dependency (default)
//	.SingleInstance()     // one instance per container
//	.InstancePerResolve() // one instance per top-level Resolve call
//
// # Keys and Parameters
//
//	b.RegisterType(container.TypeOf[*RedisCache]()).As(cacheType).Keyed("sessions")
//	sessions, err := container.ResolveKeyed[Cache](c, "sessions")
//
//	b.Register(NewServer).
//	    WithParameter(container.TypedParameter(container.TypeOf[string](), "api")).
//	    WithParameter(container.PositionalParameter(1, 8080))
//
// # Built-in Dependencies
//
// A constructor may ask for any of these without registering them:
//
//	*container.Container, container.Resolver // the container itself
//	*container.Lazy[T]                       // resolves T on first Value(); not a cycle edge
//	[]T                                      // every unkeyed binding of T, in order
//
// # Modules
//
//	var Mail = container.NewModule("mail", func(b *container.Builder) {
//	    b.Register(NewSMTPMailer).As(container.TypeOf[Mailer]()).SingleInstance()
//	    b.RegisterModule(Templates)
//	})
//
//	b.RegisterModule(Mail)
//
// A module is loaded at most once per builder, however many parents register
// it. Modules implementing Booter get the finished container after Build.
//
// # Assemblies
//
//	var Handlers = container.NewAssembly("handlers").
//	    Add(container.TypeOf[*UserHandler]()).                             // embeds container.Component
//	    Add(container.TypeOf[*PingHandler](), container.ExposedAs(handlerType))
//
//	b.RegisterMarkedTypes(Handlers)
//	b.RegisterAssemblyTypes(func(t container.Type) bool { return t.AssignableTo(handlerType) }, Handlers)
package container
