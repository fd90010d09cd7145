// Package nmsg holds the immutable request and response messages passed
// through the kernels, and HTTP status annotations for errors.
package nmsg

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Well-known request attributes. ControllerAttribute holds whatever the
// route matcher decided should handle the request and ParamsAttribute holds
// the route parameters as a map[string]any.
const (
	ControllerAttribute = "_controller"
	ParamsAttribute     = "_params"
)

// Request is an immutable inbound request. Every With* method returns a
// modified copy and leaves the receiver untouched.
type Request struct {
	method     string
	url        *url.URL
	header     http.Header
	body       []byte
	parsedBody any
	attributes map[string]any
	ctx        context.Context
}

// NewRequest builds a request with the given method, target and body.
func NewRequest(method, target string, body []byte) (*Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(err, "parse request target %q", target)
	}
	return &Request{
		method:     strings.ToUpper(method),
		url:        u,
		header:     make(http.Header),
		body:       body,
		attributes: make(map[string]any),
		ctx:        context.Background(),
	}, nil
}

// MustRequest is NewRequest for tests and fixed targets.
func MustRequest(method, target string, body []byte) *Request {
	r, err := NewRequest(method, target, body)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// FromHTTP reads the body of r and converts it.
func FromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read request body")
		}
		_ = r.Body.Close()
	}
	u := *r.URL
	return &Request{
		method:     r.Method,
		url:        &u,
		header:     r.Header.Clone(),
		body:       body,
		attributes: make(map[string]any),
		ctx:        r.Context(),
	}, nil
}

// HTTP converts back into a *http.Request. The body is a fresh reader.
func (r *Request) HTTP() *http.Request {
	hr, _ := http.NewRequestWithContext(r.Context(), r.method, r.url.String(), bytes.NewReader(r.body))
	hr.Header = r.header.Clone()
	return hr
}

func (r *Request) Method() string  { return r.method }
func (r *Request) Path() string    { return r.url.Path }
func (r *Request) Body() []byte    { return bytes.Clone(r.body) }
func (r *Request) ParsedBody() any { return r.parsedBody }

// URL returns a copy of the request URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Header returns a copy of the headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// HeaderLine returns the first value of the named header.
func (r *Request) HeaderLine(name string) string { return r.header.Get(name) }

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Attribute returns the named attribute and whether it was set.
func (r *Request) Attribute(name string) (any, bool) {
	v, ok := r.attributes[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (r *Request) Attributes() map[string]any {
	m := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		m[k] = v
	}
	return m
}

// Params returns the route parameters stored in ParamsAttribute.
func (r *Request) Params() map[string]any {
	if p, ok := r.attributes[ParamsAttribute].(map[string]any); ok {
		return p
	}
	return nil
}

func (r *Request) clone() *Request {
	c := *r
	c.attributes = make(map[string]any, len(r.attributes)+1)
	for k, v := range r.attributes {
		c.attributes[k] = v
	}
	return &c
}

func (r *Request) WithAttribute(name string, value any) *Request {
	c := r.clone()
	c.attributes[name] = value
	return c
}

func (r *Request) WithoutAttribute(name string) *Request {
	c := r.clone()
	delete(c.attributes, name)
	return c
}

func (r *Request) WithHeader(name, value string) *Request {
	c := r.clone()
	c.header = r.header.Clone()
	c.header.Set(name, value)
	return c
}

func (r *Request) WithBody(body []byte) *Request {
	c := r.clone()
	c.body = body
	return c
}

func (r *Request) WithParsedBody(parsed any) *Request {
	c := r.clone()
	c.parsedBody = parsed
	return c
}

func (r *Request) WithContext(ctx context.Context) *Request {
	c := r.clone()
	c.ctx = ctx
	return c
}
