package nkernel

import (
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// MiddlewareKernel handles a request by running it through a middleware
// Stack. The kernel is the stack's terminal handler: reaching it means no
// middleware produced a response, which fails with ErrNotIntercepted.
//
// A MiddlewareKernel handles one request. Call Reset to reuse it.
// It must not be used concurrently.
type MiddlewareKernel struct {
	container ncontainer.Container
	units     []Unit
	request   *nmsg.Request
	handling  bool
}

var _ Kernel = &MiddlewareKernel{}

func NewMiddlewareKernel(c ncontainer.Container, units ...Unit) *MiddlewareKernel {
	return &MiddlewareKernel{
		container: c,
		units:     append([]Unit(nil), units...),
	}
}

// SetCallbacks replaces the middleware list.
func (k *MiddlewareKernel) SetCallbacks(units ...Unit) error {
	if len(units) == 0 {
		return errors.Wrap(ErrInvalidArgument, "SetCallbacks needs at least one middleware")
	}
	k.units = append([]Unit(nil), units...)
	return nil
}

func (k *MiddlewareKernel) Callbacks() []Unit               { return append([]Unit(nil), k.units...) }
func (k *MiddlewareKernel) Container() ncontainer.Container { return k.container }
func (k *MiddlewareKernel) Request() *nmsg.Request          { return k.request }
func (k *MiddlewareKernel) SetRequest(req *nmsg.Request)    { k.request = req }

// Reset clears the re-entrancy guard.
func (k *MiddlewareKernel) Reset() {
	k.handling = false
}

func (k *MiddlewareKernel) Handle(req *nmsg.Request) (*nmsg.Response, error) {
	if k.handling {
		return nil, ErrNotIntercepted
	}
	k.handling = true
	k.request = req
	return NewStack(k.container, k.units...).Process(req, k)
}

// HandleException has nothing to convert errors with, so it returns err.
func (k *MiddlewareKernel) HandleException(err error, _ *nmsg.Request) (*nmsg.Response, error) {
	return nil, err
}
