package nroute

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// ErrNoRoute is returned, annotated with a 404 status, when no route
// matches the request path.
var ErrNoRoute = errors.New("no route matches")

// ErrMethodNotAllowed is returned, annotated with a 405 status, when the
// path matches but the method does not.
var ErrMethodNotAllowed = errors.New("method not allowed")

// Route describes one registration. An empty Methods list matches every
// method.
type Route struct {
	Name       string
	Methods    []string
	Path       string
	Controller any
}

func (r Route) String() string {
	methods := "*"
	if len(r.Methods) != 0 {
		methods = strings.Join(r.Methods, ",")
	}
	name := ""
	if r.Name != "" {
		name = " (" + r.Name + ")"
	}
	return fmt.Sprintf("%-12s %s%s", methods, r.Path, name)
}

// Match is the result of routing a request.
type Match struct {
	Route  Route
	Params map[string]any
}

// Matcher decides which controller handles a request.
type Matcher interface {
	Match(req *nmsg.Request) (Match, error)
	Routes() []Route
}

// Apply stores the match on the request under the controller and params
// attributes. Params already present on the request are kept unless the
// route supplies the same name.
func (m Match) Apply(req *nmsg.Request) *nmsg.Request {
	existing := req.Params()
	params := make(map[string]any, len(existing)+len(m.Params))
	for k, v := range existing {
		params[k] = v
	}
	for k, v := range m.Params {
		params[k] = v
	}
	return req.
		WithAttribute(nmsg.ControllerAttribute, m.Route.Controller).
		WithAttribute(nmsg.ParamsAttribute, params)
}

func noRoute(req *nmsg.Request) error {
	return nmsg.NotFound(errors.Wrapf(ErrNoRoute, "%s %s", req.Method(), req.Path()))
}

func methodNotAllowed(req *nmsg.Request) error {
	return nmsg.ReturnCode(errors.Wrapf(ErrMethodNotAllowed, "%s %s", req.Method(), req.Path()), http.StatusMethodNotAllowed)
}

func upper(methods []string) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = strings.ToUpper(m)
	}
	sort.Strings(out)
	return out
}
