package nkernel

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/muir/nkernel/nlog"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type panicError struct {
	msg   string
	r     any
	stack string
}

func (err panicError) Error() string {
	return "panic: " + err.msg
}

// SetErrorOnPanic should be called as a defer. It sets an error value
// if there is a panic.
func SetErrorOnPanic(ep *error, log zerolog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	pe := panicError{
		msg:   fmt.Sprint(r),
		r:     r,
		stack: string(debug.Stack()),
	}
	*ep = nmsg.ReturnCode(errors.WithStack(pe), 500)
	log.Error().Str("panic", pe.msg).Str("stack", pe.stack).Msg("panic!")
}

// CatchPanic is a middleware unit that turns a downstream panic into an
// error.
func CatchPanic(log zerolog.Logger) Unit {
	return Func(func(req *nmsg.Request, next HandlerFunc) (resp *nmsg.Response, err error) {
		defer SetErrorOnPanic(&err, log)
		resp, err = next(req)
		return
	})
}

// RecoverInterface returns what recover() originally provided, or nil if
// the error isn't from a panic recovery.
func RecoverInterface(err error) any {
	if pe, ok := isPanicError(err); ok {
		return pe.r
	}
	return nil
}

// RecoverStack returns the stack from when recover() caught the panic, or
// "" if the error isn't from a panic recovery.
func RecoverStack(err error) string {
	if pe, ok := isPanicError(err); ok {
		return pe.stack
	}
	return ""
}

func isPanicError(err error) (panicError, bool) {
	var pe panicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return panicError{}, false
}

// RequestLogger logs each request that passes through it with its
// outcome and duration.
func RequestLogger(log zerolog.Logger) Unit {
	return Func(func(req *nmsg.Request, next HandlerFunc) (*nmsg.Response, error) {
		start := time.Now()
		resp, err := next(req)
		var ev *zerolog.Event
		switch {
		case err != nil:
			ev = log.Warn().Err(err).Int("status", nmsg.StatusCode(err))
		case resp != nil:
			ev = log.Info().Int("status", resp.StatusCode())
		default:
			ev = log.Info()
		}
		if id := nlog.RequestIDFromContext(req.Context()); id != "" {
			ev = ev.Str("request_id", id)
		}
		ev.Str("method", req.Method()).
			Str("path", req.Path()).
			Dur("duration", time.Since(start)).
			Msg("request")
		return resp, err
	})
}
