package nserve

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/muir/ndispatch/npoint"
	"github.com/muir/ndispatch/nvelope"
	"github.com/pkg/errors"
)

// Callback is run when its hook is invoked.  The context is the
// App's context, which is cancelled at the end of Shutdown.
type Callback func(ctx context.Context, app *App) error

type callback struct {
	name string
	fn   Callback
}

// App provides hooks to start and stop the things a server uses.
// Callbacks may register more callbacks, for example a start
// callback can register the stop callback that undoes it.
type App struct {
	Name    string
	log     nvelope.BasicLogger
	lock    sync.Mutex // held when adding hooks
	runLock sync.Mutex // held when running hooks
	hooks   map[hookID][]callback
	ctx     context.Context
}

// NewApp creates an App.  The log may be nil.
func NewApp(name string, log nvelope.BasicLogger) *App {
	if log == nil {
		log = nvelope.NoLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Name:  name,
		log:   log,
		hooks: make(map[hookID][]callback),
		ctx:   ctx,
	}
	app.On(Shutdown, "cancel-context", func(context.Context, *App) error {
		cancel()
		return nil
	})
	return app
}

// Context is cancelled when Shutdown finishes.
func (app *App) Context() context.Context { return app.ctx }

// On registers a callback to be invoked on hook invocation.
func (app *App) On(h *Hook, name string, fn Callback) {
	app.lock.Lock()
	defer app.lock.Unlock()
	app.hooks[h.ID] = append(app.hooks[h.ID], callback{name: name, fn: fn})
}

// Do invokes the callbacks for a hook.  It returns only the first error reported
// unless the hook provides an error combiner.
func (app *App) Do(h *Hook) error {
	app.runLock.Lock()
	defer app.runLock.Unlock()
	return app.do(h)
}

func (app *App) do(h *Hook) error {
	order, continuePast, ec, onError := h.settings()
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
	callbacks := append([]callback(nil), app.hooks[h.ID]...)
	app.lock.Unlock()

	var err error
	run := func(cb callback) {
		e := nvelope.Capture(app.log, func() error {
			return cb.fn(app.ctx, app)
		})
		if e != nil {
			app.log.Warn("Hook callback failed", map[string]interface{}{
				"app":      app.Name,
				"hook":     h.Name,
				"callback": cb.name,
				"error":    e.Error(),
			})
		}
		err = ecw(err, e)
	}
	if order == ForwardOrder {
		for _, cb := range callbacks {
			run(cb)
			if err != nil && !continuePast {
				break
			}
		}
	} else {
		for i := len(callbacks) - 1; i >= 0; i-- {
			run(callbacks[i])
			if err != nil && !continuePast {
				break
			}
		}
	}
	if err != nil {
		for _, oe := range onError {
			err = ecw(err, app.do(oe))
		}
	}
	return err
}

// ShutdownTimeout bounds how long the Stop callback registered by
// Serve waits for requests in flight.
var ShutdownTimeout = 30 * time.Second

// Serve arranges for services to be served on ln.  Nothing happens
// until the Start hook runs: then each ServiceRegistration is started
// on mux and requests are accepted.  The Stop hook registered by the
// Start callback shuts the http.Server down gracefully.
func (app *App) Serve(ln net.Listener, mux *http.ServeMux, services ...*npoint.ServiceRegistration) {
	app.On(Start, "serve "+ln.Addr().String(), func(_ context.Context, app *App) error {
		for _, svc := range services {
			svc.Start(mux.HandleFunc)
			if rejected := svc.Rejected(); len(rejected) != 0 {
				app.log.Warn("Service started with rejected endpoints", map[string]interface{}{
					"app":      app.Name,
					"service":  svc.Name,
					"rejected": len(rejected),
				})
			}
		}
		server := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			err := server.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.log.Error("Server failed", map[string]interface{}{
					"app":   app.Name,
					"addr":  ln.Addr().String(),
					"error": err.Error(),
				})
			}
		}()
		app.On(Stop, "shutdown "+ln.Addr().String(), func(context.Context, *App) error {
			ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			return errors.Wrap(server.Shutdown(ctx), "shutdown server")
		})
		return nil
	})
}
