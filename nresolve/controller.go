package nresolve

import (
	"reflect"
	"strings"

	"github.com/muir/nkernel/ncontainer"
	"github.com/pkg/errors"
)

// ControllerResolverID holds the ControllerResolver.
const ControllerResolverID = "controller.resolver"

// ControllerResolver turns the value of the _controller attribute into
// something that can be invoked.
type ControllerResolver interface {
	Resolve(ref any) (*Callable, error)
}

// MethodDescriber can be implemented by services whose methods are used
// as controllers ("service::Method") to name the method's parameters.
type MethodDescriber interface {
	DescribeMethod(method string) []Option
}

// CallableResolver accepts a *Callable, a func, a container id that holds
// either of those, or "service::Method" for a method of a container
// service.
type CallableResolver struct {
	Container ncontainer.Container
}

var _ ControllerResolver = CallableResolver{}

func (r CallableResolver) Resolve(ref any) (*Callable, error) {
	switch c := ref.(type) {
	case nil:
		return nil, errors.New("no controller")
	case *Callable:
		return c, nil
	case string:
		return r.fromID(c)
	}
	if reflect.TypeOf(ref).Kind() == reflect.Func {
		return NewCallable(ref)
	}
	return nil, errors.Errorf("cannot use a %T as a controller", ref)
}

func (r CallableResolver) fromID(id string) (*Callable, error) {
	if r.Container == nil {
		return nil, errors.Errorf("cannot resolve controller %q without a container", id)
	}
	if r.Container.Has(id) {
		v, err := r.Container.Get(id)
		if err != nil {
			return nil, errors.Wrapf(err, "controller %s", id)
		}
		if s, ok := v.(string); ok {
			return nil, errors.Errorf("controller %s refers to another id %q", id, s)
		}
		return r.Resolve(v)
	}
	service, method, ok := strings.Cut(id, "::")
	if !ok {
		return nil, errors.Wrap(ncontainer.NotFound(id), "resolve controller")
	}
	svc, err := r.Container.Get(service)
	if err != nil {
		return nil, errors.Wrapf(err, "controller %s", id)
	}
	m := reflect.ValueOf(svc).MethodByName(method)
	if !m.IsValid() {
		return nil, errors.Errorf("service %s (%T) has no method %s", service, svc, method)
	}
	opts := []Option{Called(id)}
	if d, ok := svc.(MethodDescriber); ok {
		opts = append(opts, d.DescribeMethod(method)...)
	}
	return NewCallable(m.Interface(), opts...)
}
