package nkernel_test

import (
	"testing"

	"github.com/muir/nkernel"
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nlisten"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ greeting string }

type greeterModule struct {
	initialized bool
}

func (m *greeterModule) Definitions(r *ncontainer.Registry) error {
	ncontainer.SetTyped(r, &greeter{greeting: "hello"})
	return nil
}

func (m *greeterModule) Init(app *nkernel.Application, c ncontainer.Container) error {
	m.initialized = c.Has(ncontainer.IDOf[*greeter]())
	return nil
}

func TestApplicationEventKernel(t *testing.T) {
	t.Parallel()
	mod := &greeterModule{}
	app := nkernel.NewApplication(nkernel.WithProjectDir("/srv/app"), nkernel.WithEnv("test"))
	app.AddModule(mod).AddListener(nlisten.StringResponse{})

	var sawApp any
	controller := named(func(g *greeter, name string, r *nmsg.Request) string {
		sawApp, _ = r.Attribute(nkernel.ApplicationAttribute)
		return g.greeting + " " + name
	}, "g", "name", "r")
	_, err := app.Init(routed("/", controller, map[string]any{"name": "world"}))
	require.NoError(t, err)
	assert.True(t, mod.initialized)
	assert.IsType(t, &nkernel.EventKernel{}, app.Kernel())

	resp, err := app.Run()
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.String())
	assert.Same(t, app, sawApp)

	c, err := app.Container()
	require.NoError(t, err)
	dir, err := c.Get(nkernel.ProjectDirID)
	require.NoError(t, err)
	assert.Equal(t, "/srv/app", dir)
	cache, err := c.Get(nkernel.CacheDirID)
	require.NoError(t, err)
	assert.Equal(t, "/srv/app/tmp/cache", cache)
	env, err := c.Get(nkernel.EnvID)
	require.NoError(t, err)
	assert.Equal(t, "test", env)
}

func TestApplicationMiddlewareKernel(t *testing.T) {
	t.Parallel()
	var calls []string
	app := nkernel.NewApplication(nkernel.WithKernelKind(nkernel.MiddlewareKind))
	app.AddMiddlewares(nkernel.Func(pass("outer", &calls)), nkernel.Func(pass("inner", &calls)))
	_, err := app.Init(routed("/", func() string { return "via route caller" }, nil))
	require.NoError(t, err)
	resp, err := app.Run()
	require.NoError(t, err)
	assert.Equal(t, "via route caller", resp.String())
	assert.Equal(t, []string{"outer", "inner"}, calls)
	assert.Len(t, app.Middlewares(), 2)
}

type stubKernel struct {
	request     *nmsg.Request
	handleErr   error
	handledWith *nmsg.Request
	exceptionOn *nmsg.Request
}

func (k *stubKernel) Handle(req *nmsg.Request) (*nmsg.Response, error) {
	k.handledWith = req
	if k.handleErr != nil {
		return nil, k.handleErr
	}
	return nmsg.NewResponse(200, "stub"), nil
}

func (k *stubKernel) HandleException(err error, req *nmsg.Request) (*nmsg.Response, error) {
	k.exceptionOn = req
	return nmsg.NewResponse(500, err.Error()), nil
}

func (k *stubKernel) Request() *nmsg.Request          { return k.request }
func (k *stubKernel) SetRequest(req *nmsg.Request)    { k.request = req }
func (k *stubKernel) Container() ncontainer.Container { return nil }

func TestApplicationRunUsesHandleException(t *testing.T) {
	t.Parallel()
	kernelReq := nmsg.MustRequest("GET", "/kernel", nil)
	k := &stubKernel{request: kernelReq, handleErr: errors.New("failed")}
	app := nkernel.NewApplication(nkernel.WithKernel(k))
	_, err := app.Init(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Same(t, k, app.Kernel())

	resp, err := app.Run()
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode())
	assert.Equal(t, "failed", resp.String())
	assert.Same(t, kernelReq, k.exceptionOn, "exception handled with the kernel's request")
	assert.Same(t, app.Request(), k.handledWith)
}

func TestApplicationLists(t *testing.T) {
	t.Parallel()
	app := nkernel.NewApplication()
	mod := nkernel.ModuleFunc(func(*ncontainer.Registry) error { return nil })
	app.AddModules(mod, mod)
	app.AddListeners(nlisten.StringResponse{}, nevent.SubscriberFunc(func() []nevent.Subscription { return nil }))
	app.AddMiddleware(nkernel.Service("x"))
	assert.Len(t, app.Modules(), 2)
	assert.Len(t, app.Listeners(), 2)
	assert.Len(t, app.Middlewares(), 1)
	assert.Equal(t, nkernel.EventKind, app.Kind())
	assert.Equal(t, ".", app.ProjectDir())

	_, err := app.Run()
	assert.Error(t, err, "not initialized")
	_, err = app.Init(nil)
	assert.True(t, errors.Is(err, nkernel.ErrInvalidArgument))
}

func TestApplicationModuleOverridesDefault(t *testing.T) {
	t.Parallel()
	custom := nresolve.ResolverFunc(func(sig nresolve.Signature, _ nresolve.Provided, r nresolve.Resolved) (nresolve.Resolved, error) {
		for i, p := range sig.Params {
			if p.Name == "who" {
				r[i] = "module"
			}
		}
		return r, nil
	})
	app := nkernel.NewApplication()
	app.AddModule(nkernel.ModuleFunc(func(r *ncontainer.Registry) error {
		r.Set(nresolve.CustomResolversID, custom)
		return nil
	}))
	app.AddListener(nlisten.StringResponse{})
	_, err := app.Init(routed("/", named(func(who string) string { return who }, "who"), map[string]any{"who": "route"}))
	require.NoError(t, err)
	resp, err := app.Run()
	require.NoError(t, err)
	assert.Equal(t, "module", resp.String())
}

func TestApplicationModuleError(t *testing.T) {
	t.Parallel()
	app := nkernel.NewApplication()
	app.AddModule(nkernel.ModuleFunc(func(*ncontainer.Registry) error { return errors.New("bad module") }))
	_, err := app.Init(nmsg.MustRequest("GET", "/", nil))
	assert.Error(t, err)

	app = nkernel.NewApplication(nkernel.WithKernelKind("bogus"))
	_, err = app.Init(nmsg.MustRequest("GET", "/", nil))
	assert.True(t, errors.Is(err, nkernel.ErrInvalidArgument))
}
