package nresolve

import (
	"reflect"
	"regexp"
	"strconv"

	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
)

// DefinitionResolver fills slots whose type is registered in the
// container under ncontainer.TypeID.
type DefinitionResolver struct {
	Container ncontainer.Container
}

func (d DefinitionResolver) Resolve(sig Signature, _ Provided, resolved Resolved) (Resolved, error) {
	if d.Container == nil {
		return resolved, nil
	}
	var err error
	unresolved(sig, resolved, func(i int, p Param) {
		if err != nil || p.Variadic || p.Type == anyType {
			return
		}
		// nolint:exhaustive
		switch p.Type.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Struct, reflect.Func:
		default:
			return
		}
		id := ncontainer.TypeID(p.Type)
		if !d.Container.Has(id) {
			return
		}
		v, e := d.Container.Get(id)
		if e != nil {
			err = errors.Wrapf(e, "resolve parameter %s", p.Name)
			return
		}
		if v != nil && !reflect.TypeOf(v).AssignableTo(p.Type) {
			err = errors.Errorf("service %s is a %T, parameter %s needs %s", id, v, p.Name, p.Type)
			return
		}
		resolved[i] = v
	})
	return resolved, err
}

// PositionalResolver fills slots in order from Provided.Positional.
// Extra values go to the variadic parameter.
type PositionalResolver struct{}

func (PositionalResolver) Resolve(sig Signature, provided Provided, resolved Resolved) (Resolved, error) {
	for i, p := range sig.Params {
		if i >= len(provided.Positional) {
			break
		}
		if _, ok := resolved[i]; ok {
			continue
		}
		if p.Variadic {
			rest := make([]any, len(provided.Positional)-i)
			copy(rest, provided.Positional[i:])
			resolved[i] = rest
			break
		}
		resolved[i] = provided.Positional[i]
	}
	return resolved, nil
}

// AssociativeResolver fills slots by parameter name from Provided.Named.
// Values that can't be used for the parameter's type leave the slot
// unfilled; numeric strings are converted when the conversion is exact.
type AssociativeResolver struct{}

func (AssociativeResolver) Resolve(sig Signature, provided Provided, resolved Resolved) (Resolved, error) {
	if len(provided.Named) == 0 {
		return resolved, nil
	}
	unresolved(sig, resolved, func(i int, p Param) {
		v, ok := provided.Named[p.Name]
		if !ok {
			return
		}
		if p.Variadic {
			if spread, ok := spreadVariadic(v, p.Type.Elem()); ok {
				resolved[i] = spread
			}
			return
		}
		if c, ok := coerce(v, p.Type); ok {
			resolved[i] = c
		}
	})
	return resolved, nil
}

func spreadVariadic(v any, elem reflect.Type) (any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		c, ok := coerce(v, elem)
		if !ok {
			return nil, false
		}
		return []any{c}, true
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		c, ok := coerce(rv.Index(i).Interface(), elem)
		if !ok {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

func coerce(v any, t reflect.Type) (any, bool) {
	if v == nil {
		return nil, isNillable(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, true
	}
	if rv.Kind() == reflect.String {
		if t.Kind() == reflect.String {
			return rv.Convert(t).Interface(), true
		}
		return parseNumeric(rv.String(), t)
	}
	if c, ok := ConvertNumber(rv, t); ok {
		return c.Interface(), true
	}
	return nil, false
}

// ConvertNumber converts between numeric kinds when no information is
// lost: 30.0 becomes 30 but 30.5 and -3 (for an unsigned target) are
// refused.
func ConvertNumber(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if !isNumeric(v.Kind()) || !isNumeric(t.Kind()) {
		return reflect.Value{}, false
	}
	if isUnsigned(t.Kind()) && isNegative(v) {
		return reflect.Value{}, false
	}
	c := v.Convert(t)
	if c.Convert(v.Type()).Interface() != v.Interface() {
		return reflect.Value{}, false
	}
	return c, true
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isNegative(v reflect.Value) bool {
	// nolint:exhaustive
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() < 0
	case reflect.Float32, reflect.Float64:
		return v.Float() < 0
	}
	return false
}

// decimal is a plain decimal literal: no hex, no underscores, no NaN or Inf.
var decimal = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

func parseNumeric(s string, t reflect.Type) (any, bool) {
	target := reflect.New(t).Elem()
	// nolint:exhaustive
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, false
		}
		target.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, false
		}
		target.SetUint(i)
	case reflect.Float32, reflect.Float64:
		if !decimal.MatchString(s) {
			return nil, false
		}
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, false
		}
		target.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, false
		}
		target.SetBool(b)
	default:
		return nil, false
	}
	return target.Interface(), true
}

func isNumeric(k reflect.Kind) bool {
	// nolint:exhaustive
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// RequestResolver fills slots whose type accepts the request. Parameters
// typed any are left alone.
type RequestResolver struct {
	Request *nmsg.Request
}

func (r RequestResolver) Resolve(sig Signature, _ Provided, resolved Resolved) (Resolved, error) {
	if r.Request == nil {
		return resolved, nil
	}
	rt := reflect.TypeOf(r.Request)
	unresolved(sig, resolved, func(i int, p Param) {
		if p.Variadic || p.Type == anyType || !rt.AssignableTo(p.Type) {
			return
		}
		resolved[i] = r.Request
	})
	return resolved, nil
}

// DefaultResolver fills slots from declared defaults.
type DefaultResolver struct{}

func (DefaultResolver) Resolve(sig Signature, _ Provided, resolved Resolved) (Resolved, error) {
	unresolved(sig, resolved, func(i int, p Param) {
		if p.HasDefault {
			resolved[i] = p.Default
		}
	})
	return resolved, nil
}
