package nresolve

import (
	"fmt"
	"reflect"
)

// Resolved maps 0-based parameter positions to values.
type Resolved map[int]any

func (r Resolved) clone() Resolved {
	c := make(Resolved, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Provided is what the caller supplies: a positional list, named values,
// or both.
type Provided struct {
	Positional []any
	Named      map[string]any
}

// ProvidedFrom accepts []any, map[string]any, map[string]string or a
// Provided. Anything else provides nothing.
func ProvidedFrom(v any) Provided {
	switch p := v.(type) {
	case Provided:
		return p
	case []any:
		return Provided{Positional: p}
	case map[string]any:
		return Provided{Named: p}
	case map[string]string:
		named := make(map[string]any, len(p))
		for k, s := range p {
			named[k] = s
		}
		return Provided{Named: named}
	}
	return Provided{}
}

// Resolver is one parameter-filling strategy. It returns resolved
// augmented with whatever slots it could fill. The chain discards any
// attempt to change a slot that was already filled.
type Resolver interface {
	Resolve(sig Signature, provided Provided, resolved Resolved) (Resolved, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(sig Signature, provided Provided, resolved Resolved) (Resolved, error)

func (f ResolverFunc) Resolve(sig Signature, provided Provided, resolved Resolved) (Resolved, error) {
	return f(sig, provided, resolved)
}

// NotEnoughParametersError reports the first required parameter that no
// strategy could fill. Position is 1-based.
type NotEnoughParametersError struct {
	Callable string
	Position int
	Name     string
}

func (err *NotEnoughParametersError) Error() string {
	return fmt.Sprintf("unable to invoke %s because no value was given for parameter %d (%s)",
		err.Callable, err.Position, err.Name)
}

func unresolved(sig Signature, resolved Resolved, f func(i int, p Param)) {
	for i, p := range sig.Params {
		if _, ok := resolved[i]; ok {
			continue
		}
		f(i, p)
	}
}

func isNillable(t reflect.Type) bool {
	// nolint:exhaustive
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
