/*
Package nkernel is the request-processing core of a small HTTP
framework. A request (*nmsg.Request) becomes a response (*nmsg.Response)
through one of two kernels.

EventKernel

The event kernel broadcasts each phase of the request to listeners
registered on an nevent.Dispatcher:

	RequestEvent           may answer immediately (short-circuit)
	ControllerEvent        may replace the controller
	ControllerParamsEvent  may replace the arguments
	ViewEvent              converts a non-response controller result
	ResponseEvent          may replace the response
	FinishRequestEvent     always last

When Handle fails, HandleException dispatches an ExceptionEvent and a
listener may turn the failure into a response.

MiddlewareKernel

The middleware kernel runs the request through a Stack of middleware
units. The last unit is normally the RouteCaller which invokes the
controller. If every unit delegates and nothing answers, Handle fails
with ErrNotIntercepted.

Controllers

Controllers are functions. Their arguments are resolved by an
nresolve.Chain from route parameters (the _params attribute), container
services, the request itself, and declared defaults. A controller may
return a string (sent as a 200), a *nmsg.Response, or, with the event
kernel, anything a ViewEvent listener knows how to convert.

	app := nkernel.NewApplication()
	app.AddListener(nlisten.StringResponse{})
	req := nmsg.MustRequest("GET", "/hello", nil).
		WithAttribute(nmsg.ControllerAttribute, func() string { return "ok" })
	if _, err := app.Init(req); err != nil {
		return err
	}
	resp, err := app.Run()

Application wires a container (ncontainer.Registry with RegisterDefaults
plus module definitions), listeners and middleware into a kernel.
*/
package nkernel
