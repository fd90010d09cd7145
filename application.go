package nkernel

import (
	"path/filepath"
	"sync"

	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// ApplicationAttribute is the request attribute (and container id) that
// holds the *Application.
const ApplicationAttribute = "app"

// Runtime container ids set by Application.Init.
const (
	ProjectDirID = "app.project.dir"
	CacheDirID   = "app.cache.dir"
	EnvID        = "app.env"
)

// KernelKind selects which kernel an Application builds.
type KernelKind string

const (
	EventKind      KernelKind = "event"
	MiddlewareKind KernelKind = "middleware"
)

// Module contributes container definitions. Modules are registered
// after the defaults so they can replace them.
type Module interface {
	Definitions(r *ncontainer.Registry) error
}

// ModuleInitializer is optionally implemented by modules that need the
// built container.
type ModuleInitializer interface {
	Init(app *Application, c ncontainer.Container) error
}

// ModuleFunc adapts a function to Module
type ModuleFunc func(r *ncontainer.Registry) error

func (f ModuleFunc) Definitions(r *ncontainer.Registry) error { return f(r) }

// Application assembles a container, modules, listeners and middleware
// into a kernel.
type Application struct {
	lock        sync.Mutex
	kind        KernelKind
	projectDir  string
	cacheDir    string
	env         string
	modules     []Module
	middlewares []Unit
	listeners   []nevent.Subscriber
	registry    *ncontainer.Registry
	kernel      Kernel
	request     *nmsg.Request
}

// AppOption configures an Application
type AppOption func(*Application)

func WithKernel(k Kernel) AppOption            { return func(a *Application) { a.kernel = k } }
func WithKernelKind(kind KernelKind) AppOption { return func(a *Application) { a.kind = kind } }
func WithProjectDir(dir string) AppOption      { return func(a *Application) { a.projectDir = dir } }
func WithCacheDir(dir string) AppOption        { return func(a *Application) { a.cacheDir = dir } }
func WithEnv(env string) AppOption             { return func(a *Application) { a.env = env } }

func NewApplication(opts ...AppOption) *Application {
	a := &Application{
		kind:       EventKind,
		projectDir: ".",
		env:        "prod",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cacheDir == "" {
		a.cacheDir = filepath.Join(a.projectDir, "tmp", "cache")
	}
	return a
}

func (a *Application) AddModule(m Module) *Application {
	a.modules = append(a.modules, m)
	return a
}

func (a *Application) AddModules(ms ...Module) *Application {
	a.modules = append(a.modules, ms...)
	return a
}

func (a *Application) AddMiddleware(u Unit) *Application {
	a.middlewares = append(a.middlewares, u)
	return a
}

func (a *Application) AddMiddlewares(us ...Unit) *Application {
	a.middlewares = append(a.middlewares, us...)
	return a
}

func (a *Application) AddListener(s nevent.Subscriber) *Application {
	a.listeners = append(a.listeners, s)
	return a
}

func (a *Application) AddListeners(ss ...nevent.Subscriber) *Application {
	a.listeners = append(a.listeners, ss...)
	return a
}

func (a *Application) Modules() []Module              { return append([]Module(nil), a.modules...) }
func (a *Application) Middlewares() []Unit            { return append([]Unit(nil), a.middlewares...) }
func (a *Application) Listeners() []nevent.Subscriber { return append([]nevent.Subscriber(nil), a.listeners...) }
func (a *Application) Kernel() Kernel                 { return a.kernel }
func (a *Application) Request() *nmsg.Request         { return a.request }
func (a *Application) SetRequest(req *nmsg.Request)   { a.request = req }
func (a *Application) ProjectDir() string             { return a.projectDir }
func (a *Application) Kind() KernelKind               { return a.kind }

// Container builds the container on first use: runtime definitions,
// then RegisterDefaults, then each module's definitions.
func (a *Application) Container() (ncontainer.Container, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.registry != nil {
		return a.registry, nil
	}
	r := ncontainer.NewRegistry()
	r.Set(ApplicationAttribute, a)
	r.Set(ProjectDirID, a.projectDir)
	r.Set(CacheDirID, a.cacheDir)
	r.Set(EnvID, a.env)
	RegisterDefaults(r)
	for _, m := range a.modules {
		if err := m.Definitions(r); err != nil {
			return nil, errors.Wrapf(err, "module %s definitions", typeName(m))
		}
	}
	a.registry = r
	return r, nil
}

// Prepare attaches the application to a request.
func (a *Application) Prepare(req *nmsg.Request) *nmsg.Request {
	return req.WithAttribute(ApplicationAttribute, a)
}

// Init prepares req, builds the container, initializes modules and
// builds the kernel unless one was given with WithKernel.
func (a *Application) Init(req *nmsg.Request) (*Application, error) {
	if req == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "Init needs a request")
	}
	a.request = a.Prepare(req)
	c, err := a.Container()
	if err != nil {
		return nil, err
	}
	for _, m := range a.modules {
		if mi, ok := m.(ModuleInitializer); ok {
			if err := mi.Init(a, c); err != nil {
				return nil, errors.Wrapf(err, "init module %s", typeName(m))
			}
		}
	}
	if err := a.initKernel(c); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) initKernel(c ncontainer.Container) error {
	if a.kernel != nil {
		return nil
	}
	if a.kind == EventKind && len(a.listeners) > 0 {
		d, err := ncontainer.Lookup[*nevent.Dispatcher](c, nevent.DispatcherID)
		if err != nil {
			return err
		}
		for _, s := range a.listeners {
			d.AddSubscriber(s)
		}
	}
	k, err := a.NewKernel()
	if err != nil {
		return err
	}
	a.kernel = k
	return nil
}

// NewKernel builds a fresh kernel of the application's kind. Kernels
// hold per-request state, so concurrent requests each need their own.
// Init must have been called.
func (a *Application) NewKernel() (Kernel, error) {
	c, err := a.Container()
	if err != nil {
		return nil, err
	}
	switch a.kind {
	case EventKind:
		return BuildEventKernel(c)
	case MiddlewareKind:
		units := append(a.Middlewares(), Service(RouteCallerID))
		return NewMiddlewareKernel(c, units...), nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "unknown kernel kind %q", a.kind)
}

// Run handles the prepared request. A failure is given to the kernel's
// HandleException along with the kernel's current request.
func (a *Application) Run() (*nmsg.Response, error) {
	if a.kernel == nil || a.request == nil {
		return nil, errors.New("application not initialized")
	}
	resp, err := a.kernel.Handle(a.request)
	if err != nil {
		return a.kernel.HandleException(err, a.kernel.Request())
	}
	return resp, nil
}
