package nmsg

import (
	"net/http"

	"github.com/pkg/errors"
)

// ReturnCode associates an HTTP status code with an error.
// If err is nil, then nil is returned.
func ReturnCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return returnCode{
		cause: err,
		code:  code,
	}
}

type returnCode struct {
	cause error
	code  int
}

func (err returnCode) Cause() error  { return err.cause }
func (err returnCode) Unwrap() error { return err.cause }
func (err returnCode) Error() string { return err.cause.Error() }

// NotFound annotates an error as giving a 404 status
func NotFound(err error) error {
	return ReturnCode(err, http.StatusNotFound)
}

// BadRequest annotates an error as giving a 400 status
func BadRequest(err error) error {
	return ReturnCode(err, http.StatusBadRequest)
}

// Unauthorized annotates an error as giving a 401 status
func Unauthorized(err error) error {
	return ReturnCode(err, http.StatusUnauthorized)
}

// Forbidden annotates an error as giving a 403 status
func Forbidden(err error) error {
	return ReturnCode(err, http.StatusForbidden)
}

// StatusCode finds the outermost status annotation on err, 500 if there
// is none.
func StatusCode(err error) int {
	var rc returnCode
	if errors.As(err, &rc) {
		return rc.code
	}
	return http.StatusInternalServerError
}
