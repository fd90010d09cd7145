package nroute

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/muir/nkernel/nmsg"
)

// ChiMatcher routes with a chi tree. Patterns use the chi {name} and
// {name:regexp} forms.
type ChiMatcher struct {
	mux     *chi.Mux
	routes  []Route
	byKey   map[string]int
	methods map[string]bool
}

func NewChiMatcher() *ChiMatcher {
	return &ChiMatcher{
		mux:     chi.NewRouter(),
		byKey:   make(map[string]int),
		methods: make(map[string]bool),
	}
}

// Handle registers controller for the pattern. With no methods the route
// accepts any method.
func (m *ChiMatcher) Handle(pattern string, controller any, methods ...string) *ChiMatcher {
	return m.HandleNamed("", pattern, controller, methods...)
}

func (m *ChiMatcher) HandleNamed(name, pattern string, controller any, methods ...string) *ChiMatcher {
	methods = upper(methods)
	m.routes = append(m.routes, Route{Name: name, Methods: methods, Path: pattern, Controller: controller})
	idx := len(m.routes) - 1
	h := http.NotFoundHandler()
	if len(methods) == 0 {
		m.mux.Handle(pattern, h)
		m.byKey[key("", pattern)] = idx
		return m
	}
	for _, method := range methods {
		m.mux.Method(method, pattern, h)
		m.byKey[key(method, pattern)] = idx
		m.methods[method] = true
	}
	return m
}

func (m *ChiMatcher) Match(req *nmsg.Request) (Match, error) {
	rctx := chi.NewRouteContext()
	pattern := m.mux.Find(rctx, req.Method(), req.Path())
	if pattern == "" {
		for method := range m.methods {
			if method != req.Method() && m.mux.Find(chi.NewRouteContext(), method, req.Path()) != "" {
				return Match{}, methodNotAllowed(req)
			}
		}
		return Match{}, noRoute(req)
	}
	idx, ok := m.byKey[key(req.Method(), pattern)]
	if !ok {
		idx, ok = m.byKey[key("", pattern)]
	}
	if !ok {
		return Match{}, noRoute(req)
	}
	params := make(map[string]any, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return Match{Route: m.routes[idx], Params: params}, nil
}

func (m *ChiMatcher) Routes() []Route {
	return append([]Route(nil), m.routes...)
}

func key(method, pattern string) string { return method + " " + pattern }
