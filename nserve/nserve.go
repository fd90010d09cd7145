package nserve

import (
	"context"
	"sync"

	"github.com/muir/nkernel/nlog"
	"github.com/rs/zerolog"
)

// Callback is invoked when its hook runs. It may register further
// callbacks, for example a start callback registering its stop.
type Callback func(ctx context.Context, app *App) error

// App provides hooks to start and stop the parts of a service: the
// HTTP server, background workers, connections.
type App struct {
	Name    string
	lock    sync.Mutex // held when adding hooks
	runLock sync.Mutex // held when running hooks
	hooks   map[hookID][]Callback
	log     zerolog.Logger
	cancel  context.CancelFunc
	ctx     context.Context
}

// NewApp creates an App. Its Context is cancelled by the Shutdown hook.
func NewApp(name string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Name:   name,
		hooks:  make(map[hookID][]Callback),
		log:    nlog.WithComponent("nserve").With().Str("app", name).Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	app.On(Shutdown, func(context.Context, *App) error {
		cancel()
		return nil
	})
	return app
}

// Context lives until the Shutdown hook runs.
func (app *App) Context() context.Context { return app.ctx }

// On registers a callback to be invoked on hook invocation. On may be
// called from inside callbacks.
func (app *App) On(h *Hook, callbacks ...Callback) *App {
	app.lock.Lock()
	defer app.lock.Unlock()
	app.hooks[h.ID] = append(app.hooks[h.ID], callbacks...)
	return app
}

// Do invokes the callbacks for a hook. It returns only the first error
// reported unless the hook provides an error combiner.
func (app *App) Do(ctx context.Context, h *Hook) error {
	app.runLock.Lock()
	defer app.runLock.Unlock()
	return app.do(ctx, h)
}

func (app *App) do(ctx context.Context, h *Hook) error {
	order, cont, ec, onError := h.settings()
	if ec == nil {
		ec = func(err, _ error) error { return err }
	}
	ecw := func(e1, e2 error) error {
		if e1 == nil {
			return e2
		}
		if e2 == nil {
			return e1
		}
		return ec(e1, e2)
	}
	app.lock.Lock()
	callbacks := make([]Callback, len(app.hooks[h.ID]))
	copy(callbacks, app.hooks[h.ID])
	app.lock.Unlock()

	app.log.Debug().Str("hook", h.Name).Int("callbacks", len(callbacks)).Msg("running hook")
	var err error
	run := func(cb Callback) {
		e := cb(ctx, app)
		if e != nil {
			app.log.Debug().Err(e).Str("hook", h.Name).Msg("hook callback failed")
		}
		err = ecw(err, e)
	}
	if order == ForwardOrder {
		for _, cb := range callbacks {
			run(cb)
			if err != nil && !cont {
				break
			}
		}
	} else {
		for i := len(callbacks) - 1; i >= 0; i-- {
			run(callbacks[i])
			if err != nil && !cont {
				break
			}
		}
	}
	if err != nil {
		for _, oe := range onError {
			err = ecw(err, app.do(ctx, oe))
		}
	}
	return err
}
