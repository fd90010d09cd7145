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

func TestMiddlewareKernelAnswers(t *testing.T) {
	t.Parallel()
	var calls []string
	k := nkernel.NewMiddlewareKernel(nil,
		nkernel.Func(pass("log", &calls)),
		nkernel.Object(answer{body: "hi", calls: &calls}))
	req := nmsg.MustRequest("GET", "/", nil)
	resp, err := k.Handle(req)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.String())
	assert.Same(t, req, k.Request())
}

func TestMiddlewareKernelNotIntercepted(t *testing.T) {
	t.Parallel()
	var calls []string
	k := nkernel.NewMiddlewareKernel(nil, nkernel.Func(pass("a", &calls)), nkernel.Func(pass("b", &calls)))
	_, err := k.Handle(nmsg.MustRequest("GET", "/", nil))
	assert.True(t, errors.Is(err, nkernel.ErrNotIntercepted))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestMiddlewareKernelReentry(t *testing.T) {
	t.Parallel()
	var calls []string
	k := nkernel.NewMiddlewareKernel(nil, nkernel.Object(answer{body: "once", calls: &calls}))
	_, err := k.Handle(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)

	_, err = k.Handle(nmsg.MustRequest("GET", "/", nil))
	assert.True(t, errors.Is(err, nkernel.ErrNotIntercepted), "second Handle without Reset")

	k.Reset()
	resp, err := k.Handle(nmsg.MustRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "once", resp.String())
}

func TestMiddlewareKernelCallbacks(t *testing.T) {
	t.Parallel()
	var calls []string
	k := nkernel.NewMiddlewareKernel(ncontainer.NewRegistry())
	assert.True(t, errors.Is(k.SetCallbacks(), nkernel.ErrInvalidArgument))
	require.NoError(t, k.SetCallbacks(nkernel.Object(answer{body: "x", calls: &calls})))
	assert.Len(t, k.Callbacks(), 1)

	boom := errors.New("boom")
	resp, err := k.HandleException(boom, nil)
	assert.Nil(t, resp)
	assert.Equal(t, boom, err)
}

func TestMiddlewareKernelWithRouteCaller(t *testing.T) {
	t.Parallel()
	reg := nkernel.RegisterDefaults(ncontainer.NewRegistry())
	k := nkernel.NewMiddlewareKernel(reg, nkernel.Service(nkernel.RouteCallerID))
	resp, err := k.Handle(routed("/users/3", named(func(id int) string {
		if id == 3 {
			return "three"
		}
		return "other"
	}, "id"), map[string]any{"id": "3"}))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "three", resp.String())
}
