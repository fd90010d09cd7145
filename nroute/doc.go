/*
Package nroute maps requests to controllers.

Two matchers are provided: MuxMatcher, built on gorilla/mux, and
ChiMatcher, built on chi. Either can be plugged into the event kernel with
Listener or into a middleware stack with Middleware. A successful match
sets the controller and params attributes on the request:

	routes := nroute.NewChiMatcher().
		Handle("/hello/{name}", hello, "GET")
	app.AddListener(nroute.Listener{Matcher: routes})

A request with no matching path fails with a 404 error and one whose
path matches but whose method does not fails with a 405 error.
*/
package nroute
