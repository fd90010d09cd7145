package nmsg

import (
	"bytes"
	"net/http"

	"github.com/pkg/errors"
)

// Response is an immutable outbound response.
type Response struct {
	status int
	header http.Header
	body   []byte
}

// NewResponse creates a response. A zero status means 200.
func NewResponse(status int, body string) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		status: status,
		header: make(http.Header),
		body:   []byte(body),
	}
}

func (r *Response) StatusCode() int     { return r.status }
func (r *Response) Body() []byte        { return bytes.Clone(r.body) }
func (r *Response) String() string      { return string(r.body) }
func (r *Response) Header() http.Header { return r.header.Clone() }

func (r *Response) WithStatus(status int) *Response {
	c := *r
	c.status = status
	return &c
}

func (r *Response) WithHeader(name, value string) *Response {
	c := *r
	c.header = r.header.Clone()
	c.header.Set(name, value)
	return &c
}

func (r *Response) WithBody(body []byte) *Response {
	c := *r
	c.body = body
	return &c
}

// WriteTo sends the response through w.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range r.header {
		h[k] = append([]string(nil), v...)
	}
	w.WriteHeader(r.status)
	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)
	return errors.Wrap(err, "write response body")
}
