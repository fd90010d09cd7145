package nkernel

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when a kernel is given an empty
	// callback list.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotIntercepted is returned by MiddlewareKernel.Handle when the
	// middleware chain ran out without producing a response.
	ErrNotIntercepted = errors.New("no middleware intercepted this request")
)

// NoControllerError means the request reached the controller phase
// without a _controller attribute.
type NoControllerError struct {
	Path string
}

func (err *NoControllerError) Error() string {
	return fmt.Sprintf("no controller found for path %q", err.Path)
}

// ResponseCoercionError means a controller returned something that is
// neither a string nor a *nmsg.Response and nothing converted it.
type ResponseCoercionError struct {
	Value any
}

func (err *ResponseCoercionError) Error() string {
	return fmt.Sprintf("the response is not a string or a *nmsg.Response: got %T", err.Value)
}
