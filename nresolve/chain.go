package nresolve

import (
	"reflect"

	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// Container ids used by the default wiring.
const (
	// ParameterResolverID holds the *Chain used to resolve controller
	// arguments.
	ParameterResolverID = "params.resolver"
	// CustomResolversID optionally holds a Resolver or []Resolver that
	// DefaultChain places ahead of the built-in strategies.
	CustomResolversID = "params.resolvers"
)

// Chain runs Resolvers in order. A slot filled by one resolver is never
// changed by a later one.
type Chain struct {
	resolvers []Resolver
}

var _ Resolver = &Chain{}

func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: append([]Resolver(nil), resolvers...)}
}

// DefaultChain builds [custom..., Definition, Positional, Associative,
// Default] where custom comes from CustomResolversID.
func DefaultChain(c ncontainer.Container) (*Chain, error) {
	chain := NewChain(
		DefinitionResolver{Container: c},
		PositionalResolver{},
		AssociativeResolver{},
		DefaultResolver{},
	)
	if c == nil || !c.Has(CustomResolversID) {
		return chain, nil
	}
	v, err := c.Get(CustomResolversID)
	if err != nil {
		return nil, err
	}
	var custom []Resolver
	switch r := v.(type) {
	case Resolver:
		custom = []Resolver{r}
	case []Resolver:
		custom = r
	default:
		return nil, errors.Errorf("%s must be a Resolver or []Resolver, not %T", CustomResolversID, v)
	}
	for i := len(custom) - 1; i >= 0; i-- {
		chain.Prepend(custom[i])
	}
	return chain, nil
}

func (c *Chain) Append(r Resolver) *Chain {
	c.resolvers = append(c.resolvers, r)
	return c
}

func (c *Chain) Prepend(r Resolver) *Chain {
	c.resolvers = append([]Resolver{r}, c.resolvers...)
	return c
}

// Resolvers returns a copy of the strategy list
func (c *Chain) Resolvers() []Resolver {
	return append([]Resolver(nil), c.resolvers...)
}

func (c *Chain) Clone() *Chain {
	return NewChain(c.resolvers...)
}

// WithRequest returns a copy of the chain with a RequestResolver for req
// placed just before the first DefaultResolver. The receiver is not
// modified so a shared chain can serve concurrent requests.
func (c *Chain) WithRequest(req *nmsg.Request) *Chain {
	rr := RequestResolver{Request: req}
	out := make([]Resolver, 0, len(c.resolvers)+1)
	inserted := false
	for _, r := range c.resolvers {
		if _, ok := r.(DefaultResolver); ok && !inserted {
			out = append(out, rr)
			inserted = true
		}
		out = append(out, r)
	}
	if !inserted {
		out = append(out, rr)
	}
	return &Chain{resolvers: out}
}

// Resolve runs every strategy. The resolved map passed in is not modified.
func (c *Chain) Resolve(sig Signature, provided Provided, resolved Resolved) (Resolved, error) {
	acc := resolved.clone()
	for _, r := range c.resolvers {
		out, err := r.Resolve(sig, provided, acc.clone())
		if err != nil {
			return nil, err
		}
		for i, v := range out {
			if i < 0 || i >= len(sig.Params) {
				continue
			}
			if _, ok := acc[i]; !ok {
				acc[i] = v
			}
		}
		if len(acc) == len(sig.Params) {
			break
		}
	}
	return acc, nil
}

// Parameters resolves every slot and returns the argument list for
// Callable.Invoke. A variadic parameter that nothing filled gets an
// empty slice.
func (c *Chain) Parameters(sig Signature, provided Provided, resolved Resolved) ([]any, error) {
	acc, err := c.Resolve(sig, provided, resolved)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(sig.Params))
	for i, p := range sig.Params {
		v, ok := acc[i]
		switch {
		case ok:
			args[i] = v
		case p.Variadic:
			args[i] = reflect.MakeSlice(p.Type, 0, 0).Interface()
		default:
			return nil, &NotEnoughParametersError{
				Callable: sig.Name,
				Position: i + 1,
				Name:     p.Name,
			}
		}
	}
	return args, nil
}
