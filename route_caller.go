package nkernel

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/pkg/errors"
)

// RouteCallerID is the container id of the default RouteCaller.
const RouteCallerID = "middleware.route_caller"

// RouteCaller is the terminal middleware: it invokes the controller in
// the _controller attribute with arguments resolved from _params, the
// request, and the container. It never calls next.
type RouteCaller struct {
	Container ncontainer.Container
}

var _ Middleware = RouteCaller{}

func (rc RouteCaller) Process(req *nmsg.Request, _ Handler) (*nmsg.Response, error) {
	ref, ok := req.Attribute(nmsg.ControllerAttribute)
	if !ok || ref == nil {
		return nil, &NoControllerError{Path: req.Path()}
	}
	chain, err := ncontainer.Lookup[*nresolve.Chain](rc.Container, nresolve.ParameterResolverID)
	if err != nil {
		return nil, errors.Wrap(err, "route caller")
	}
	controllers, err := rc.controllers()
	if err != nil {
		return nil, errors.Wrap(err, "route caller")
	}
	controller, err := controllers.Resolve(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve controller for %s", req.Path())
	}
	params, _ := req.Attribute(nmsg.ParamsAttribute)
	args, err := chain.WithRequest(req).Parameters(controller.Signature(), nresolve.ProvidedFrom(params), nil)
	if err != nil {
		return nil, err
	}
	result, err := controller.Invoke(args)
	if err != nil {
		return nil, err
	}
	return toResponse(result)
}

func (rc RouteCaller) controllers() (nresolve.ControllerResolver, error) {
	if !rc.Container.Has(nresolve.ControllerResolverID) {
		return nresolve.CallableResolver{Container: rc.Container}, nil
	}
	return ncontainer.Lookup[nresolve.ControllerResolver](rc.Container, nresolve.ControllerResolverID)
}
