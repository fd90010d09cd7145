/*
Package nresolve maps a controller's declared parameters to values.

A controller is described once by a Callable: the function plus a
Signature listing each parameter's name, type, default and whether it is
variadic. At request time a Chain of Resolver strategies fills the
parameter slots:

	DefinitionResolver   container services, looked up by type
	PositionalResolver   values given as a list
	AssociativeResolver  values given by name (route parameters)
	RequestResolver      the current *nmsg.Request
	DefaultResolver      declared defaults

Earlier strategies win; later strategies never replace a filled slot.
A required parameter left unfilled is a *NotEnoughParametersError.
*/
package nresolve
