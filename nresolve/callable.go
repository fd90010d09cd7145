package nresolve

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Param describes one declared parameter of a controller.
type Param struct {
	Name       string
	Type       reflect.Type
	HasDefault bool
	Default    any
	// Variadic is only ever true for the last parameter. Its Type is
	// the slice type.
	Variadic bool
}

// Signature is the ordered parameter list of a controller. Go does not
// keep parameter names at runtime so names come from Named().
type Signature struct {
	Name   string
	Params []Param
}

func (s Signature) index(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Callable is a function together with its Signature. It is built once,
// when a controller is registered, and is safe to share.
type Callable struct {
	fn       reflect.Value
	sig      Signature
	hasError bool
	hasValue bool
}

// Option modifies a Callable as it is built
type Option func(*Callable) error

// Named assigns parameter names in order. Parameters without a name
// are called arg0, arg1, ...
func Named(names ...string) Option {
	return func(c *Callable) error {
		if len(names) > len(c.sig.Params) {
			return errors.Errorf("%d names given for %d parameters", len(names), len(c.sig.Params))
		}
		for i, n := range names {
			c.sig.Params[i].Name = n
		}
		return nil
	}
}

// Optional gives the named parameter a default value.
func Optional(name string, value any) Option {
	return func(c *Callable) error {
		i := c.sig.index(name)
		if i == -1 {
			return errors.Errorf("no parameter named %s", name)
		}
		p := &c.sig.Params[i]
		if value != nil && !reflect.TypeOf(value).AssignableTo(p.Type) {
			return errors.Errorf("default for %s is a %T, not assignable to %s", name, value, p.Type)
		}
		p.HasDefault = true
		p.Default = value
		return nil
	}
}

// Called sets the name used in error messages.
func Called(name string) Option {
	return func(c *Callable) error {
		c.sig.Name = name
		return nil
	}
}

// NewCallable describes fn, which must be a function returning at most a
// value and an error.
func NewCallable(fn any, opts ...Option) (*Callable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Errorf("controller must be a func, not %T", fn)
	}
	t := v.Type()
	c := &Callable{
		fn: v,
		sig: Signature{
			Name:   t.String(),
			Params: make([]Param, t.NumIn()),
		},
	}
	for i := 0; i < t.NumIn(); i++ {
		c.sig.Params[i] = Param{
			Name:     fmt.Sprintf("arg%d", i),
			Type:     t.In(i),
			Variadic: t.IsVariadic() && i == t.NumIn()-1,
		}
	}
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			c.hasError = true
		} else {
			c.hasValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, errors.Errorf("second return value of %s must be error", t)
		}
		c.hasValue = true
		c.hasError = true
	default:
		return nil, errors.Errorf("%s returns too many values", t)
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrapf(err, "describe %s", c.sig.Name)
		}
	}
	return c, nil
}

// MustCallable is NewCallable that panics, for static registration.
func MustCallable(fn any, opts ...Option) *Callable {
	c, err := NewCallable(fn, opts...)
	if err != nil {
		panic(err.Error())
	}
	return c
}

func (c *Callable) Signature() Signature { return c.sig }
func (c *Callable) NumIn() int           { return len(c.sig.Params) }

func (c *Callable) String() string {
	in := make([]string, len(c.sig.Params))
	for i, p := range c.sig.Params {
		in[i] = p.Name + " " + p.Type.String()
	}
	return c.sig.Name + "(" + strings.Join(in, ", ") + ")"
}

// Invoke calls the function with one argument per parameter. A nil
// argument becomes the zero value. The variadic argument, if any, is a
// slice; a []any is converted element by element.
func (c *Callable) Invoke(args []any) (any, error) {
	if len(args) != len(c.sig.Params) {
		return nil, errors.Errorf("%s takes %d arguments, %d given", c.sig.Name, len(c.sig.Params), len(args))
	}
	in := make([]reflect.Value, len(args))
	variadic := false
	for i, p := range c.sig.Params {
		v, err := argValue(args[i], p)
		if err != nil {
			return nil, errors.Wrapf(err, "%s parameter %d (%s)", c.sig.Name, i+1, p.Name)
		}
		in[i] = v
		variadic = variadic || p.Variadic
	}
	var out []reflect.Value
	if variadic {
		out = c.fn.CallSlice(in)
	} else {
		out = c.fn.Call(in)
	}
	var result any
	var err error
	if c.hasValue {
		result = out[0].Interface()
	}
	if c.hasError {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	return result, err
}

func argValue(arg any, p Param) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(p.Type), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(p.Type) {
		return v, nil
	}
	if p.Variadic && v.Kind() == reflect.Slice {
		elem := p.Type.Elem()
		s := reflect.MakeSlice(p.Type, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			e := v.Index(i)
			if e.Kind() == reflect.Interface {
				e = e.Elem()
			}
			switch {
			case !e.IsValid():
				continue
			case e.Type().AssignableTo(elem):
				s.Index(i).Set(e)
			default:
				return reflect.Value{}, errors.Errorf("element %d is a %s, not %s", i, e.Type(), elem)
			}
		}
		return s, nil
	}
	return reflect.Value{}, errors.Errorf("got %T, need %s", arg, p.Type)
}
