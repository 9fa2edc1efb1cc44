package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-ioc/app"
	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── Demo services ─────────────────────────────────────────────────────────────

type Greeter interface {
	Greet(name string) string
}

type EnglishGreeter struct{}

func (*EnglishGreeter) Greet(name string) string { return "Hello, " + name + "!" }

type FrenchGreeter struct{}

func (*FrenchGreeter) Greet(name string) string { return "Bonjour, " + name + " !" }

// GreetingService depends on the default Greeter and on every Greeter.
type GreetingService struct {
	Default Greeter   `inject:""`
	All     []Greeter `inject:""`
}

// GreetingModule binds the greeters and mounts /greet on the router at boot.
type GreetingModule struct{}

func (*GreetingModule) Name() string { return "greeting" }

func (*GreetingModule) Load(b *container.Builder) {
	greeter := container.TypeOf[Greeter]()
	b.RegisterType(container.TypeOf[*FrenchGreeter]()).As(greeter).Keyed("fr")
	b.RegisterType(container.TypeOf[*EnglishGreeter]()).As(greeter).SingleInstance()
	b.RegisterType(container.TypeOf[*GreetingService]()).SingleInstance()
}

func (*GreetingModule) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	router.Get("/greet", func(w http.ResponseWriter, r *http.Request) {
		req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
		name := req.Query("name", "world")

		if lang := req.Query("lang"); lang != "" {
			g, err := container.ResolveKeyed[Greeter](c, lang)
			if err != nil {
				res.Failure(err)
				return
			}
			res.Success(map[string]any{"greeting": g.Greet(name)})
			return
		}

		svc, err := container.Resolve[*GreetingService](c)
		if err != nil {
			res.Failure(err)
			return
		}
		res.Success(map[string]any{
			"greeting":  svc.Default.Greet(name),
			"greeters":  len(svc.All),
			"container": c.String(),
		})
	})
	return nil
}

func main() {
	application := app.New() // loads .env automatically
	application.Register(&GreetingModule{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
