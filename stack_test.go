package nkernel_test

import (
	"testing"

	"github.com/muir/nkernel"
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	body  string
	calls *[]string
}

func (a answer) Process(req *nmsg.Request, _ nkernel.Handler) (*nmsg.Response, error) {
	*a.calls = append(*a.calls, "answer "+a.body)
	return nmsg.NewResponse(200, a.body), nil
}

func pass(name string, calls *[]string) nkernel.MiddlewareFunc {
	return func(req *nmsg.Request, next nkernel.HandlerFunc) (*nmsg.Response, error) {
		*calls = append(*calls, name)
		return next(req)
	}
}

func TestStackOrder(t *testing.T) {
	t.Parallel()
	var calls []string
	s := nkernel.NewStack(nil,
		nkernel.Func(pass("A", &calls)),
		nkernel.Object(answer{body: "B", calls: &calls}),
		nkernel.Object(answer{body: "C", calls: &calls}),
	)
	resp, err := s.Handle(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "B", resp.String())
	assert.Equal(t, []string{"A", "answer B"}, calls)
	assert.Len(t, s.Units(), 1, "C was never consumed")
}

func TestStackEmptyDelegates(t *testing.T) {
	t.Parallel()
	terminal := nkernel.HandlerFunc(func(*nmsg.Request) (*nmsg.Response, error) {
		return nmsg.NewResponse(204, ""), nil
	})
	resp, err := nkernel.NewStack(nil).Process(nmsg.MustRequest("GET", "/", nil), terminal)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode())

	_, err = nkernel.NewStack(nil).Handle(nmsg.MustRequest("GET", "/", nil))
	assert.Error(t, err, "no terminal handler")
}

func TestStackPrepend(t *testing.T) {
	t.Parallel()
	var calls []string
	s := nkernel.NewStack(nil, nkernel.Object(answer{body: "end", calls: &calls}))
	s.Prepend(nkernel.Func(pass("first", &calls)))
	s.Prepend(nkernel.Func(pass("second", &calls)))
	s.Append(nkernel.Object(answer{body: "unused", calls: &calls}))
	s.AppendAll(nkernel.Func(pass("x", &calls)), nkernel.Func(pass("y", &calls)))
	require.Len(t, s.Units(), 6)
	resp, err := s.Handle(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "end", resp.String())
	assert.Equal(t, []string{"second", "first", "answer end"}, calls)
}

func TestStackServiceUnit(t *testing.T) {
	t.Parallel()
	var calls []string
	reg := ncontainer.NewRegistry()
	built := 0
	reg.Factory("mw.lazy", func(ncontainer.Container) (any, error) {
		built++
		return answer{body: "lazy", calls: &calls}, nil
	})
	reg.Set("mw.func", pass("fn", &calls))
	reg.Set("mw.id", "mw.lazy")

	s := nkernel.NewStack(reg, nkernel.Service("mw.func"), nkernel.Service("mw.lazy"))
	assert.Equal(t, 0, built, "service units resolve lazily")
	resp, err := s.Handle(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "lazy", resp.String())
	assert.Equal(t, []string{"fn", "answer lazy"}, calls)
	assert.Equal(t, 1, built)

	_, err = nkernel.NewStack(reg, nkernel.Service("missing")).Handle(nmsg.MustRequest("GET", "/", nil))
	assert.True(t, errors.Is(err, ncontainer.ErrNotFound))

	_, err = nkernel.NewStack(reg, nkernel.Service("mw.id")).Handle(nmsg.MustRequest("GET", "/", nil))
	assert.True(t, errors.Is(err, nkernel.ErrInvalidArgument))
}

func TestAsUnit(t *testing.T) {
	t.Parallel()
	var calls []string
	for _, v := range []any{
		answer{calls: &calls},
		pass("p", &calls),
		func(req *nmsg.Request, next nkernel.HandlerFunc) (*nmsg.Response, error) { return next(req) },
		"some.service",
		nkernel.Service("x"),
	} {
		_, err := nkernel.AsUnit(v)
		assert.NoErrorf(t, err, "%T", v)
	}
	u, err := nkernel.AsUnit("svc")
	require.NoError(t, err)
	assert.True(t, u.IsService())
	assert.Equal(t, "svc", u.ServiceID())

	_, err = nkernel.AsUnit(42)
	assert.True(t, errors.Is(err, nkernel.ErrInvalidArgument))
	_, err = nkernel.AsUnit(nkernel.Unit{})
	assert.Error(t, err)
	assert.Len(t, nkernel.MustUnits("a", "b"), 2)
}
