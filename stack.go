package nkernel

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// Handler produces a response for a request.
type Handler interface {
	Handle(req *nmsg.Request) (*nmsg.Response, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(req *nmsg.Request) (*nmsg.Response, error)

func (f HandlerFunc) Handle(req *nmsg.Request) (*nmsg.Response, error) { return f(req) }

// Middleware may answer a request itself or delegate to next.
type Middleware interface {
	Process(req *nmsg.Request, next Handler) (*nmsg.Response, error)
}

// MiddlewareFunc is a function middleware. next continues the chain.
type MiddlewareFunc func(req *nmsg.Request, next HandlerFunc) (*nmsg.Response, error)

func (f MiddlewareFunc) Process(req *nmsg.Request, next Handler) (*nmsg.Response, error) {
	return f(req, next.Handle)
}

type unitKind int

const (
	objectUnit unitKind = iota + 1
	funcUnit
	serviceUnit
)

// Unit is one entry of a middleware stack: a Middleware, a
// MiddlewareFunc, or the container id of either.
type Unit struct {
	kind   unitKind
	object Middleware
	fn     MiddlewareFunc
	id     string
}

func Object(m Middleware) Unit   { return Unit{kind: objectUnit, object: m} }
func Func(f MiddlewareFunc) Unit { return Unit{kind: funcUnit, fn: f} }
func Service(id string) Unit     { return Unit{kind: serviceUnit, id: id} }
func (u Unit) IsService() bool   { return u.kind == serviceUnit }
func (u Unit) ServiceID() string { return u.id }

func (u Unit) String() string {
	switch u.kind {
	case objectUnit:
		return "middleware " + typeName(u.object)
	case funcUnit:
		return "middleware func"
	case serviceUnit:
		return "middleware service " + u.id
	}
	return "invalid middleware"
}

// AsUnit converts a Unit, Middleware, MiddlewareFunc, plain function of
// the MiddlewareFunc shape, or service id string.
func AsUnit(v any) (Unit, error) {
	switch m := v.(type) {
	case Unit:
		if m.kind == 0 {
			return Unit{}, errors.Wrap(ErrInvalidArgument, "zero Unit")
		}
		return m, nil
	case MiddlewareFunc:
		return Func(m), nil
	case func(*nmsg.Request, HandlerFunc) (*nmsg.Response, error):
		return Func(m), nil
	case Middleware:
		return Object(m), nil
	case string:
		return Service(m), nil
	}
	return Unit{}, errors.Wrapf(ErrInvalidArgument, "%T is not a middleware", v)
}

// MustUnits is AsUnit over a list, panicking on the first failure.
func MustUnits(vs ...any) []Unit {
	units := make([]Unit, len(vs))
	for i, v := range vs {
		u, err := AsUnit(v)
		if err != nil {
			panic(err.Error())
		}
		units[i] = u
	}
	return units
}

// Stack is a middleware chain with a single cursor. Each Handle call
// consumes the next unit; when none are left the terminal handler runs.
// A Stack is used for one traversal.
type Stack struct {
	container ncontainer.Container
	units     []Unit
	handler   Handler
}

var (
	_ Handler    = &Stack{}
	_ Middleware = &Stack{}
)

func NewStack(c ncontainer.Container, units ...Unit) *Stack {
	return &Stack{
		container: c,
		units:     append([]Unit(nil), units...),
	}
}

func (s *Stack) Append(u Unit) *Stack {
	s.units = append(s.units, u)
	return s
}

func (s *Stack) AppendAll(units ...Unit) *Stack {
	s.units = append(s.units, units...)
	return s
}

// Prepend puts u first. The most recently prepended unit runs first.
func (s *Stack) Prepend(u Unit) *Stack {
	s.units = append([]Unit{u}, s.units...)
	return s
}

// Units returns the units not yet consumed
func (s *Stack) Units() []Unit {
	return append([]Unit(nil), s.units...)
}

// SetHandler sets the terminal handler
func (s *Stack) SetHandler(h Handler) *Stack {
	s.handler = h
	return s
}

// Process binds next as the terminal handler and starts the chain.
func (s *Stack) Process(req *nmsg.Request, next Handler) (*nmsg.Response, error) {
	s.handler = next
	return s.Handle(req)
}

func (s *Stack) Handle(req *nmsg.Request) (*nmsg.Response, error) {
	if len(s.units) == 0 {
		if s.handler == nil {
			return nil, errors.New("middleware stack exhausted with no terminal handler")
		}
		return s.handler.Handle(req)
	}
	u := s.units[0]
	s.units = s.units[1:]
	if u.kind == serviceUnit {
		resolved, err := s.resolve(u.id)
		if err != nil {
			return nil, err
		}
		u = resolved
	}
	switch u.kind {
	case objectUnit:
		return u.object.Process(req, s)
	case funcUnit:
		return u.fn(req, s.Handle)
	}
	return nil, errors.Wrap(ErrInvalidArgument, "zero Unit in middleware stack")
}

func (s *Stack) resolve(id string) (Unit, error) {
	if s.container == nil {
		return Unit{}, errors.Errorf("middleware service %s: no container", id)
	}
	v, err := s.container.Get(id)
	if err != nil {
		return Unit{}, errors.Wrapf(err, "middleware service %s", id)
	}
	if _, ok := v.(string); ok {
		return Unit{}, errors.Wrapf(ErrInvalidArgument, "middleware service %s resolves to another id", id)
	}
	return AsUnit(v)
}
