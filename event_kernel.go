package nkernel

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/pkg/errors"
)

// EventKernel handles a request by dispatching lifecycle events:
//
//	RequestEvent -> ControllerEvent -> ControllerParamsEvent ->
//	(ViewEvent) -> ResponseEvent -> FinishRequestEvent
//
// A response attached to the RequestEvent skips straight to the
// ResponseEvent. Failures go through HandleException.
type EventKernel struct {
	dispatcher  *nevent.Dispatcher
	controllers nresolve.ControllerResolver
	params      *nresolve.Chain
	container   ncontainer.Container
	request     *nmsg.Request
}

var _ Kernel = &EventKernel{}

func NewEventKernel(
	d *nevent.Dispatcher,
	controllers nresolve.ControllerResolver,
	params *nresolve.Chain,
	c ncontainer.Container,
) *EventKernel {
	return &EventKernel{
		dispatcher:  d,
		controllers: controllers,
		params:      params,
		container:   c,
	}
}

// SetCallbacks registers subscribers with the dispatcher.
func (k *EventKernel) SetCallbacks(subscribers ...nevent.Subscriber) error {
	if len(subscribers) == 0 {
		return errors.Wrap(ErrInvalidArgument, "SetCallbacks needs at least one subscriber")
	}
	for _, s := range subscribers {
		k.dispatcher.AddSubscriber(s)
	}
	return nil
}

func (k *EventKernel) Dispatcher() *nevent.Dispatcher  { return k.dispatcher }
func (k *EventKernel) Container() ncontainer.Container { return k.container }
func (k *EventKernel) Request() *nmsg.Request          { return k.request }
func (k *EventKernel) SetRequest(req *nmsg.Request)    { k.request = req }

func (k *EventKernel) Handle(req *nmsg.Request) (*nmsg.Response, error) {
	k.request = req

	rev := nevent.NewRequestEvent(k, req)
	if _, err := k.dispatcher.Dispatch(rev); err != nil {
		return nil, err
	}
	req = k.update(rev.Request())
	if outcome := rev.Outcome(); outcome.ShortCircuited() {
		return k.filterResponse(outcome.Response(), req)
	}

	ref, ok := req.Attribute(nmsg.ControllerAttribute)
	if !ok || ref == nil {
		return nil, &NoControllerError{Path: req.Path()}
	}
	controller, err := k.controllers.Resolve(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve controller for %s", req.Path())
	}

	cev := nevent.NewControllerEvent(k, req, controller)
	if _, err := k.dispatcher.Dispatch(cev); err != nil {
		return nil, err
	}
	req = k.update(cev.Request())
	controller = cev.Controller()

	params, _ := req.Attribute(nmsg.ParamsAttribute)
	args, err := k.params.WithRequest(req).Parameters(controller.Signature(), nresolve.ProvidedFrom(params), nil)
	if err != nil {
		return nil, err
	}

	pev := nevent.NewControllerParamsEvent(k, req, controller, args)
	if _, err := k.dispatcher.Dispatch(pev); err != nil {
		return nil, err
	}
	req = k.update(pev.Request())

	result, err := controller.Invoke(pev.Arguments())
	if err != nil {
		return nil, err
	}
	if resp, ok := result.(*nmsg.Response); ok && resp != nil {
		return k.filterResponse(resp, req)
	}

	vev := nevent.NewViewEvent(k, req, result)
	if _, err := k.dispatcher.Dispatch(vev); err != nil {
		return nil, err
	}
	req = k.update(vev.Request())
	outcome := vev.Outcome()
	if !outcome.ShortCircuited() {
		return nil, &ResponseCoercionError{Value: result}
	}
	return k.filterResponse(outcome.Response(), req)
}

// HandleException dispatches an ExceptionEvent. If a listener supplied a
// response it is filtered and returned, otherwise err is returned after
// the FinishRequestEvent.
func (k *EventKernel) HandleException(err error, req *nmsg.Request) (*nmsg.Response, error) {
	if req == nil {
		req = k.request
	}
	eev := nevent.NewExceptionEvent(k, req, err)
	if _, dErr := k.dispatcher.Dispatch(eev); dErr != nil {
		return nil, dErr
	}
	req = k.update(eev.Request())
	outcome := eev.Outcome()
	if !outcome.ShortCircuited() {
		if fErr := k.finish(req, nil); fErr != nil {
			return nil, errors.Wrapf(err, "finish request also failed: %s", fErr)
		}
		return nil, err
	}
	return k.filterResponse(outcome.Response(), req)
}

func (k *EventKernel) filterResponse(resp *nmsg.Response, req *nmsg.Request) (*nmsg.Response, error) {
	ev := nevent.NewResponseEvent(k, req, resp)
	if _, err := k.dispatcher.Dispatch(ev); err != nil {
		return nil, err
	}
	req = k.update(ev.Request())
	resp = ev.Response()
	if err := k.finish(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (k *EventKernel) finish(req *nmsg.Request, resp *nmsg.Response) error {
	_, err := k.dispatcher.Dispatch(nevent.NewFinishRequestEvent(k, req, resp))
	return err
}

// update keeps the kernel's current request in step with listener
// replacements.
func (k *EventKernel) update(req *nmsg.Request) *nmsg.Request {
	if req != nil {
		k.request = req
	}
	return k.request
}
