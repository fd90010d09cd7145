// Package demo is the sample application served by the nkernel command.
package demo

import (
	"fmt"

	"github.com/muir/nkernel"
	"github.com/muir/nkernel/nconfig"
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nlisten"
	"github.com/muir/nkernel/nlog"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/muir/nkernel/nroute"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Greeting struct {
	Greeting string `json:"greeting"`
	Name     string `json:"name"`
}

// Greeter is registered in the container and injected into controllers.
type Greeter struct {
	Word string
}

func (g *Greeter) Greet(name string) string { return g.Word + " " + name }

func (g *Greeter) DescribeMethod(method string) []nresolve.Option {
	if method == "Greet" {
		return []nresolve.Option{nresolve.Named("name")}
	}
	return nil
}

func hello(g *Greeter, name string) string { return g.Greet(name) }

func user(id int) (*nmsg.Response, error) {
	if id <= 0 {
		return nil, nmsg.NotFound(errors.Errorf("no user %d", id))
	}
	return nlisten.JSON(200, User{ID: id, Name: fmt.Sprintf("user%d", id)})
}

func echo(r *nmsg.Request) (*nmsg.Response, error) {
	var g Greeting
	if err := nlisten.Bind(r, &g); err != nil {
		return nil, err
	}
	if g.Greeting == "" {
		g.Greeting = "hello"
	}
	return nlisten.JSON(200, g)
}

// Routes are the demo routes.
func Routes() *nroute.ChiMatcher {
	return nroute.NewChiMatcher().
		HandleNamed("hello", "/hello/{name}", nresolve.MustCallable(hello, nresolve.Named("g", "name")), "GET").
		HandleNamed("hello.world", "/hello", nresolve.MustCallable(hello, nresolve.Named("g", "name"), nresolve.Optional("name", "world")), "GET").
		HandleNamed("user", "/users/{id:[0-9]+}", nresolve.MustCallable(user, nresolve.Named("id")), "GET").
		HandleNamed("echo", "/echo", nresolve.MustCallable(echo, nresolve.Named("r")), "POST").
		HandleNamed("greeter", "/greet/{name}", "demo.greeter::Greet", "GET")
}

// Module registers the demo services.
type Module struct{}

func (Module) Definitions(r *ncontainer.Registry) error {
	g := &Greeter{Word: "hello"}
	ncontainer.SetTyped(r, g)
	r.Set("demo.greeter", g)
	return nil
}

// New assembles the demo application for cfg. Metrics are registered
// with reg when cfg enables them and reg is not nil.
func New(cfg nconfig.Config, reg prometheus.Registerer) (*nkernel.Application, error) {
	app := nkernel.NewApplication(
		nkernel.WithKernelKind(nkernel.KernelKind(cfg.Kernel)),
		nkernel.WithProjectDir(cfg.ProjectDir),
		nkernel.WithCacheDir(cfg.CacheDir),
		nkernel.WithEnv(cfg.Env),
	)
	app.AddModule(Module{})

	routes := Routes()
	log := nlog.WithComponent("access")
	listeners := []nevent.Subscriber{
		nroute.Listener{Matcher: routes},
		nlisten.NewBodyParser().SetMethods(cfg.Body.Methods...),
		nlisten.StringResponse{},
		nlisten.JSONResponse(),
		nlisten.ErrorResponse{Expose: cfg.Body.ExposeErrors},
		nlisten.AccessLog{Logger: log},
	}
	if cfg.Metrics.Enabled && reg != nil {
		m, err := nlisten.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, m)
	}
	if cfg.Tracing.Enabled {
		listeners = append(listeners, nlisten.NewTracing())
	}
	app.AddListeners(listeners...)
	app.AddMiddlewares(
		nkernel.CatchPanic(log),
		nkernel.RequestLogger(log),
		bodyParser(nlisten.NewBodyParser().SetMethods(cfg.Body.Methods...)),
		nroute.Middleware(routes, false),
	)

	if _, err := app.Init(nmsg.MustRequest("GET", "/", nil)); err != nil {
		return nil, errors.Wrap(err, "init demo application")
	}
	return app, nil
}

// bodyParser runs a BodyParser inside a middleware stack.
func bodyParser(b *nlisten.BodyParser) nkernel.Unit {
	return nkernel.Func(func(req *nmsg.Request, next nkernel.HandlerFunc) (*nmsg.Response, error) {
		parsed, err := b.Parse(req)
		if err != nil {
			return nil, err
		}
		return next(parsed)
	})
}
