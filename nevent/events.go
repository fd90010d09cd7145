package nevent

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
)

// Event names, in lifecycle order.
const (
	RequestName          = "kernel.request"
	ControllerName       = "kernel.controller"
	ControllerParamsName = "kernel.controller_params"
	ViewName             = "kernel.view"
	ResponseName         = "kernel.response"
	FinishRequestName    = "kernel.finish_request"
	ExceptionName        = "kernel.exception"
)

// KernelRef is the part of a kernel that listeners may use.
type KernelRef interface {
	Request() *nmsg.Request
	Container() ncontainer.Container
}

// Event is anything that can be dispatched.
type Event interface {
	EventName() string
}

// Stoppable events end dispatch early once IsPropagationStopped is true.
type Stoppable interface {
	Event
	IsPropagationStopped() bool
}

// Outcome is what a phase decided: continue with the normal flow or
// short-circuit with a response.
type Outcome struct {
	response *nmsg.Response
}

func Continue() Outcome                        { return Outcome{} }
func ShortCircuit(resp *nmsg.Response) Outcome { return Outcome{response: resp} }
func (o Outcome) ShortCircuited() bool         { return o.response != nil }
func (o Outcome) Response() *nmsg.Response     { return o.response }

// kernelEvent is embedded in every lifecycle event.
type kernelEvent struct {
	kernel  KernelRef
	request *nmsg.Request
}

func (e *kernelEvent) Kernel() KernelRef          { return e.kernel }
func (e *kernelEvent) Request() *nmsg.Request     { return e.request }
func (e *kernelEvent) SetRequest(r *nmsg.Request) { e.request = r }

// responder is embedded by events that can carry a response. Setting a
// response stops propagation.
type responder struct {
	response *nmsg.Response
}

func (e *responder) Response() *nmsg.Response        { return e.response }
func (e *responder) SetResponse(resp *nmsg.Response) { e.response = resp }
func (e *responder) HasResponse() bool               { return e.response != nil }
func (e *responder) IsPropagationStopped() bool      { return e.response != nil }
func (e *responder) Outcome() Outcome                { return Outcome{response: e.response} }

// RequestEvent is dispatched first. A listener that sets a response
// skips the controller entirely.
type RequestEvent struct {
	kernelEvent
	responder
}

func NewRequestEvent(k KernelRef, r *nmsg.Request) *RequestEvent {
	return &RequestEvent{kernelEvent: kernelEvent{kernel: k, request: r}}
}

func (*RequestEvent) EventName() string { return RequestName }

// ControllerEvent lets listeners replace the resolved controller.
type ControllerEvent struct {
	kernelEvent
	controller *nresolve.Callable
}

func NewControllerEvent(k KernelRef, r *nmsg.Request, c *nresolve.Callable) *ControllerEvent {
	return &ControllerEvent{kernelEvent: kernelEvent{kernel: k, request: r}, controller: c}
}

func (*ControllerEvent) EventName() string                    { return ControllerName }
func (e *ControllerEvent) Controller() *nresolve.Callable     { return e.controller }
func (e *ControllerEvent) SetController(c *nresolve.Callable) { e.controller = c }

// ControllerParamsEvent lets listeners replace the argument list.
type ControllerParamsEvent struct {
	kernelEvent
	controller *nresolve.Callable
	arguments  []any
}

func NewControllerParamsEvent(k KernelRef, r *nmsg.Request, c *nresolve.Callable, args []any) *ControllerParamsEvent {
	return &ControllerParamsEvent{kernelEvent: kernelEvent{kernel: k, request: r}, controller: c, arguments: args}
}

func (*ControllerParamsEvent) EventName() string                { return ControllerParamsName }
func (e *ControllerParamsEvent) Controller() *nresolve.Callable { return e.controller }
func (e *ControllerParamsEvent) Arguments() []any               { return e.arguments }
func (e *ControllerParamsEvent) SetArguments(args []any)        { e.arguments = args }

// ViewEvent carries a controller result that is not a response.
type ViewEvent struct {
	kernelEvent
	responder
	result any
}

func NewViewEvent(k KernelRef, r *nmsg.Request, result any) *ViewEvent {
	return &ViewEvent{kernelEvent: kernelEvent{kernel: k, request: r}, result: result}
}

func (*ViewEvent) EventName() string { return ViewName }
func (e *ViewEvent) Result() any     { return e.result }

// ResponseEvent lets listeners replace the response. It does not stop
// propagation: every listener sees the final response.
type ResponseEvent struct {
	kernelEvent
	response *nmsg.Response
}

func NewResponseEvent(k KernelRef, r *nmsg.Request, resp *nmsg.Response) *ResponseEvent {
	return &ResponseEvent{kernelEvent: kernelEvent{kernel: k, request: r}, response: resp}
}

func (*ResponseEvent) EventName() string                 { return ResponseName }
func (e *ResponseEvent) Response() *nmsg.Response        { return e.response }
func (e *ResponseEvent) SetResponse(resp *nmsg.Response) { e.response = resp }

// FinishRequestEvent is always dispatched last. Response is nil when
// the request failed without one.
type FinishRequestEvent struct {
	kernelEvent
	response *nmsg.Response
}

func NewFinishRequestEvent(k KernelRef, r *nmsg.Request, resp *nmsg.Response) *FinishRequestEvent {
	return &FinishRequestEvent{kernelEvent: kernelEvent{kernel: k, request: r}, response: resp}
}

func (*FinishRequestEvent) EventName() string          { return FinishRequestName }
func (e *FinishRequestEvent) Response() *nmsg.Response { return e.response }

// ExceptionEvent carries a failure. A listener that sets a response
// turns the failure into that response.
type ExceptionEvent struct {
	kernelEvent
	responder
	err error
}

func NewExceptionEvent(k KernelRef, r *nmsg.Request, err error) *ExceptionEvent {
	return &ExceptionEvent{kernelEvent: kernelEvent{kernel: k, request: r}, err: err}
}

func (*ExceptionEvent) EventName() string { return ExceptionName }
func (e *ExceptionEvent) Err() error      { return e.err }

var (
	_ Stoppable = &RequestEvent{}
	_ Stoppable = &ViewEvent{}
	_ Stoppable = &ExceptionEvent{}
	_ Event     = &ControllerEvent{}
	_ Event     = &ControllerParamsEvent{}
	_ Event     = &ResponseEvent{}
	_ Event     = &FinishRequestEvent{}
)
