package nkernel

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nresolve"
)

// Container ids for the kernels built by RegisterDefaults.
const (
	EventKernelID      = "kernel.event"
	MiddlewareKernelID = "kernel.middleware"
)

// RegisterDefaults adds the stock services: the parameter resolver
// chain, the controller resolver, the event dispatcher, the route
// caller, and both kernels. Anything registered afterwards under the
// same id replaces the default.
func RegisterDefaults(r *ncontainer.Registry) *ncontainer.Registry {
	r.Factory(nresolve.ParameterResolverID, func(c ncontainer.Container) (any, error) {
		return nresolve.DefaultChain(c)
	})
	r.Factory(nresolve.ControllerResolverID, func(c ncontainer.Container) (any, error) {
		return nresolve.CallableResolver{Container: c}, nil
	})
	r.Factory(nevent.DispatcherID, func(ncontainer.Container) (any, error) {
		return nevent.NewDispatcher(), nil
	})
	r.Factory(RouteCallerID, func(c ncontainer.Container) (any, error) {
		return RouteCaller{Container: c}, nil
	})
	r.Factory(EventKernelID, func(c ncontainer.Container) (any, error) {
		return BuildEventKernel(c)
	})
	r.Factory(MiddlewareKernelID, func(c ncontainer.Container) (any, error) {
		return NewMiddlewareKernel(c, Service(RouteCallerID)), nil
	})
	return r
}

// BuildEventKernel makes a new EventKernel from the services in c.
func BuildEventKernel(c ncontainer.Container) (*EventKernel, error) {
	d, err := ncontainer.Lookup[*nevent.Dispatcher](c, nevent.DispatcherID)
	if err != nil {
		return nil, err
	}
	controllers, err := ncontainer.Lookup[nresolve.ControllerResolver](c, nresolve.ControllerResolverID)
	if err != nil {
		return nil, err
	}
	params, err := ncontainer.Lookup[*nresolve.Chain](c, nresolve.ParameterResolverID)
	if err != nil {
		return nil, err
	}
	return NewEventKernel(d, controllers, params, c), nil
}
