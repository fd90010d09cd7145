package nroute

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/muir/nkernel/nmsg"
)

// MuxMatcher routes with a gorilla *mux.Router. Only its matching is
// used; the router never serves a request.
type MuxMatcher struct {
	router *mux.Router
	routes []Route
	byMux  map[*mux.Route]int
}

// MuxRoute is returned by MuxMatcher.Handle so the registration can be
// refined with gorilla route options.
type MuxRoute struct {
	m     *MuxMatcher
	index int
	route *mux.Route
}

func NewMuxMatcher() *MuxMatcher {
	return &MuxMatcher{
		router: mux.NewRouter(),
		byMux:  make(map[*mux.Route]int),
	}
}

// Router exposes the underlying router, for example to build URLs.
func (m *MuxMatcher) Router() *mux.Router { return m.router }

// Handle registers controller for the path template, which may use the
// gorilla {name} and {name:pattern} forms.
func (m *MuxMatcher) Handle(path string, controller any, methods ...string) *MuxRoute {
	methods = upper(methods)
	r := m.router.NewRoute().Path(path).Handler(http.NotFoundHandler())
	if len(methods) != 0 {
		r = r.Methods(methods...)
	}
	m.routes = append(m.routes, Route{Methods: methods, Path: path, Controller: controller})
	idx := len(m.routes) - 1
	m.byMux[r] = idx
	return &MuxRoute{m: m, index: idx, route: r}
}

// Name applies the mux.Route method of the same name.
func (r *MuxRoute) Name(name string) *MuxRoute {
	r.route.Name(name)
	r.m.routes[r.index].Name = name
	return r
}

// Host applies the mux.Route method of the same name.
func (r *MuxRoute) Host(tpl string) *MuxRoute {
	r.route.Host(tpl)
	return r
}

// Headers applies the mux.Route method of the same name.
func (r *MuxRoute) Headers(pairs ...string) *MuxRoute {
	r.route.Headers(pairs...)
	return r
}

// Queries applies the mux.Route method of the same name.
func (r *MuxRoute) Queries(pairs ...string) *MuxRoute {
	r.route.Queries(pairs...)
	return r
}

func (r *MuxRoute) Route() *mux.Route { return r.route }

func (m *MuxMatcher) Match(req *nmsg.Request) (Match, error) {
	var rm mux.RouteMatch
	if !m.router.Match(req.HTTP(), &rm) {
		if rm.MatchErr == mux.ErrMethodMismatch {
			return Match{}, methodNotAllowed(req)
		}
		return Match{}, noRoute(req)
	}
	idx, ok := m.byMux[rm.Route]
	if !ok {
		return Match{}, noRoute(req)
	}
	params := make(map[string]any, len(rm.Vars))
	for k, v := range rm.Vars {
		params[k] = v
	}
	return Match{Route: m.routes[idx], Params: params}, nil
}

func (m *MuxMatcher) Routes() []Route {
	return append([]Route(nil), m.routes...)
}
