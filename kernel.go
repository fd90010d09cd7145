package nkernel

import (
	"reflect"

	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/reflectutils"
)

// Kernel turns a request into a response.
type Kernel interface {
	nevent.KernelRef
	Handle(req *nmsg.Request) (*nmsg.Response, error)
	// HandleException gets a chance to turn a failure from Handle into
	// a response. It returns an error when it cannot.
	HandleException(err error, req *nmsg.Request) (*nmsg.Response, error)
	SetRequest(req *nmsg.Request)
}

// toResponse is the conversion applied to controller results in the
// middleware pipeline.
func toResponse(result any) (*nmsg.Response, error) {
	switch r := result.(type) {
	case string:
		return nmsg.NewResponse(200, r), nil
	case *nmsg.Response:
		if r != nil {
			return r, nil
		}
	}
	return nil, &ResponseCoercionError{Value: result}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflectutils.TypeName(reflect.TypeOf(v))
}
