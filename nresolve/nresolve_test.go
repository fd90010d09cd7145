package nresolve_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greet(name string, age int) string {
	return fmt.Sprintf("%s is %d", name, age)
}

func greetCallable(t *testing.T, opts ...nresolve.Option) *nresolve.Callable {
	c, err := nresolve.NewCallable(greet, append([]nresolve.Option{nresolve.Named("name", "age")}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNumericStringCoercion(t *testing.T) {
	t.Parallel()
	c := greetCallable(t)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)
	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]any{"name": "ann", "age": "30"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"ann", 30}, args)
	out, err := c.Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, "ann is 30", out)
}

func TestNotEnoughParameters(t *testing.T) {
	t.Parallel()
	c := greetCallable(t)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)
	for _, named := range []map[string]any{
		{"name": "bob"},
		{"name": "bob", "age": "thirty"},
		{"name": "bob", "age": 30.5},
	} {
		_, err = chain.Parameters(c.Signature(), nresolve.Provided{Named: named}, nil)
		var nep *nresolve.NotEnoughParametersError
		require.Truef(t, errors.As(err, &nep), "%v", named)
		assert.Equal(t, 2, nep.Position)
		assert.Equal(t, "age", nep.Name)
		assert.Contains(t, err.Error(), "parameter 2 (age)")
	}

	scale, err := nresolve.NewCallable(func(ratio float64) float64 { return ratio }, nresolve.Named("ratio"))
	require.NoError(t, err)
	for _, s := range []string{"NaN", "Inf", "-inf", "infinity", "0x1p4", "1_000", "1.", ".5", "1e"} {
		_, err = chain.Parameters(scale.Signature(), nresolve.ProvidedFrom(map[string]any{"ratio": s}), nil)
		var nep *nresolve.NotEnoughParametersError
		assert.Truef(t, errors.As(err, &nep), "%q filled a float parameter", s)
	}
	for s, want := range map[string]float64{"1.5": 1.5, "-2": -2, "3e2": 300, "+4.25E-1": 0.425} {
		args, err := chain.Parameters(scale.Signature(), nresolve.ProvidedFrom(map[string]any{"ratio": s}), nil)
		require.NoErrorf(t, err, "%q", s)
		assert.Equal(t, want, args[0])
	}

	count, err := nresolve.NewCallable(func(n uint) uint { return n }, nresolve.Named("n"))
	require.NoError(t, err)
	for _, v := range []any{-3, -3.0, "-3", "1_000"} {
		_, err = chain.Parameters(count.Signature(), nresolve.ProvidedFrom(map[string]any{"n": v}), nil)
		var nep *nresolve.NotEnoughParametersError
		assert.Truef(t, errors.As(err, &nep), "%v filled an unsigned parameter", v)
	}
}

type Slug string

func TestNamedStringType(t *testing.T) {
	t.Parallel()
	c, err := nresolve.NewCallable(func(s Slug) string { return string(s) }, nresolve.Named("slug"))
	require.NoError(t, err)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)
	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]any{"slug": "hello-world"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{Slug("hello-world")}, args)
}

func TestConvertNumber(t *testing.T) {
	t.Parallel()
	intType := reflect.TypeOf(0)
	uintType := reflect.TypeOf(uint(0))

	c, ok := nresolve.ConvertNumber(reflect.ValueOf(30.0), intType)
	require.True(t, ok)
	assert.Equal(t, 30, c.Interface())

	_, ok = nresolve.ConvertNumber(reflect.ValueOf(30.7), intType)
	assert.False(t, ok, "truncation")
	_, ok = nresolve.ConvertNumber(reflect.ValueOf(-3), uintType)
	assert.False(t, ok, "negative to unsigned")
	_, ok = nresolve.ConvertNumber(reflect.ValueOf(-3.0), uintType)
	assert.False(t, ok, "negative float to unsigned")
	_, ok = nresolve.ConvertNumber(reflect.ValueOf(300), reflect.TypeOf(int8(0)))
	assert.False(t, ok, "overflow")
	_, ok = nresolve.ConvertNumber(reflect.ValueOf("3"), intType)
	assert.False(t, ok, "strings are not numbers")
}

func TestExactNumericConversion(t *testing.T) {
	t.Parallel()
	c := greetCallable(t)
	chain := nresolve.NewChain(nresolve.AssociativeResolver{})
	args, err := chain.Parameters(c.Signature(), nresolve.Provided{Named: map[string]any{"name": "x", "age": 30.0}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, args[1])
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()
	c := greetCallable(t)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)
	provided := nresolve.Provided{Named: map[string]any{"name": "ann", "age": "30"}}
	first, err := chain.Resolve(c.Signature(), provided, nil)
	require.NoError(t, err)
	second, err := chain.Resolve(c.Signature(), provided, first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLaterResolverNeverOverwrites(t *testing.T) {
	t.Parallel()
	c := greetCallable(t)
	clobber := nresolve.ResolverFunc(func(sig nresolve.Signature, _ nresolve.Provided, r nresolve.Resolved) (nresolve.Resolved, error) {
		for i := range sig.Params {
			r[i] = "clobbered"
		}
		return r, nil
	})
	chain := nresolve.NewChain(nresolve.AssociativeResolver{}).Append(clobber)
	args, err := chain.Parameters(c.Signature(),
		nresolve.Provided{Named: map[string]any{"age": 4}},
		nresolve.Resolved{0: "preset"})
	require.NoError(t, err)
	assert.Equal(t, []any{"preset", 4}, args)
}

func TestPositionalAndDefaults(t *testing.T) {
	t.Parallel()
	c := greetCallable(t, nresolve.Optional("age", 18))
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)

	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom([]any{"pos"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"pos", 18}, args)

	args, err = chain.Parameters(c.Signature(), nresolve.ProvidedFrom([]any{"pos", 3}), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"pos", 3}, args)
}

func join(sep string, parts ...string) string { return strings.Join(parts, sep) }

func TestVariadic(t *testing.T) {
	t.Parallel()
	c, err := nresolve.NewCallable(join, nresolve.Named("sep", "parts"))
	require.NoError(t, err)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)

	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]any{"sep": "-"}), nil)
	require.NoError(t, err, "absent variadic is not an error")
	out, err := c.Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, "", out)

	args, err = chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]any{"sep": "-", "parts": []string{"a", "b"}}), nil)
	require.NoError(t, err)
	out, err = c.Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, "a-b", out)

	args, err = chain.Parameters(c.Signature(), nresolve.ProvidedFrom([]any{"+", "x", "y", "z"}), nil)
	require.NoError(t, err)
	out, err = c.Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, "x+y+z", out)
}

type Clock interface{ Now() string }

type fixedClock string

func (f fixedClock) Now() string { return string(f) }

func TestDefinitionResolver(t *testing.T) {
	t.Parallel()
	reg := ncontainer.NewRegistry()
	ncontainer.SetTyped[Clock](reg, fixedClock("noon"))
	c, err := nresolve.NewCallable(func(clock Clock, name string) string {
		return name + "@" + clock.Now()
	}, nresolve.Named("clock", "name"))
	require.NoError(t, err)
	chain, err := nresolve.DefaultChain(reg)
	require.NoError(t, err)
	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]string{"name": "sam"}), nil)
	require.NoError(t, err)
	out, err := c.Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, "sam@noon", out)
}

type pather interface{ Path() string }

func TestRequestResolver(t *testing.T) {
	t.Parallel()
	c, err := nresolve.NewCallable(func(r *nmsg.Request, p pather, x any) string {
		return r.Path() + p.Path()
	}, nresolve.Named("r", "p", "x"), nresolve.Optional("x", nil))
	require.NoError(t, err)
	chain, err := nresolve.DefaultChain(nil)
	require.NoError(t, err)
	before := len(chain.Resolvers())

	req := nmsg.MustRequest("GET", "/a", nil)
	bound := chain.WithRequest(req)
	assert.Len(t, chain.Resolvers(), before, "original chain untouched")
	rs := bound.Resolvers()
	require.Len(t, rs, before+1)
	assert.IsType(t, nresolve.RequestResolver{}, rs[len(rs)-2])
	assert.IsType(t, nresolve.DefaultResolver{}, rs[len(rs)-1])

	args, err := bound.Parameters(c.Signature(), nresolve.Provided{}, nil)
	require.NoError(t, err)
	assert.Same(t, req, args[0])
	assert.Same(t, req, args[1])
	assert.Nil(t, args[2], "any-typed parameter is not filled with the request")
}

func TestCustomResolversPrepended(t *testing.T) {
	t.Parallel()
	reg := ncontainer.NewRegistry()
	always := nresolve.ResolverFunc(func(sig nresolve.Signature, _ nresolve.Provided, r nresolve.Resolved) (nresolve.Resolved, error) {
		r[0] = "custom"
		return r, nil
	})
	reg.Set(nresolve.CustomResolversID, []nresolve.Resolver{always})
	chain, err := nresolve.DefaultChain(reg)
	require.NoError(t, err)
	require.Len(t, chain.Resolvers(), 5)
	c := greetCallable(t)
	args, err := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]any{"name": "n", "age": 1}), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"custom", 1}, args)

	reg.Set(nresolve.CustomResolversID, 7)
	_, err = nresolve.DefaultChain(reg)
	assert.Error(t, err)
}

func TestInvokeErrors(t *testing.T) {
	t.Parallel()
	c, err := nresolve.NewCallable(func(n int) (string, error) {
		if n == 0 {
			return "", errors.New("zero")
		}
		return "fine", nil
	})
	require.NoError(t, err)
	_, err = c.Invoke([]any{nil})
	assert.EqualError(t, err, "zero")
	out, err := c.Invoke([]any{2})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	_, err = c.Invoke([]any{"x"})
	assert.Error(t, err)
	_, err = c.Invoke(nil)
	assert.Error(t, err)

	_, err = nresolve.NewCallable("not a func")
	assert.Error(t, err)
	_, err = nresolve.NewCallable(func() (int, int) { return 1, 2 })
	assert.Error(t, err)
	_, err = nresolve.NewCallable(greet, nresolve.Named("a", "b", "c"))
	assert.Error(t, err)
	_, err = nresolve.NewCallable(greet, nresolve.Optional("nope", 1))
	assert.Error(t, err)
}

type userController struct{}

func (userController) Show(id int) string { return fmt.Sprint("user ", id) }

func (userController) DescribeMethod(method string) []nresolve.Option {
	return []nresolve.Option{nresolve.Named("id")}
}

func TestCallableResolver(t *testing.T) {
	t.Parallel()
	reg := ncontainer.NewRegistry()
	reg.Set("users", userController{})
	reg.Set("hello", func() string { return "hello" })
	r := nresolve.CallableResolver{Container: reg}

	c, err := r.Resolve("users::Show")
	require.NoError(t, err)
	assert.Equal(t, "id", c.Signature().Params[0].Name)
	out, err := c.Invoke([]any{4})
	require.NoError(t, err)
	assert.Equal(t, "user 4", out)

	c, err = r.Resolve("hello")
	require.NoError(t, err)
	out, err = c.Invoke([]any{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	c, err = r.Resolve(greet)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumIn())

	_, err = r.Resolve("missing")
	assert.True(t, errors.Is(err, ncontainer.ErrNotFound))
	_, err = r.Resolve("users::Nope")
	assert.Error(t, err)
	_, err = r.Resolve(42)
	assert.Error(t, err)
}

func ExampleChain_Parameters() {
	c := nresolve.MustCallable(greet, nresolve.Named("name", "age"))
	chain, _ := nresolve.DefaultChain(nil)
	args, _ := chain.Parameters(c.Signature(), nresolve.ProvidedFrom(map[string]string{"name": "Ann", "age": "30"}), nil)
	out, _ := c.Invoke(args)
	fmt.Println(out)
	// Output: Ann is 30
}
