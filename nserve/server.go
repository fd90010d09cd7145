package nserve

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/muir/nkernel"
	"github.com/muir/nkernel/nconfig"
	"github.com/muir/nkernel/nlog"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RequestIDHeader is read from, and echoed to, each request.
const RequestIDHeader = "X-Request-Id"

// KernelSource hands out one kernel per request. *nkernel.Application
// satisfies it.
type KernelSource interface {
	NewKernel() (nkernel.Kernel, error)
	Prepare(req *nmsg.Request) *nmsg.Request
}

// KernelFunc adapts a kernel constructor to KernelSource.
type KernelFunc func() (nkernel.Kernel, error)

func (f KernelFunc) NewKernel() (nkernel.Kernel, error)      { return f() }
func (f KernelFunc) Prepare(req *nmsg.Request) *nmsg.Request { return req }

// Server adapts kernels to net/http.
type Server struct {
	source  KernelSource
	cfg     nconfig.Server
	log     zerolog.Logger
	gather  prometheus.Gatherer
	metrics string

	lock sync.Mutex
	addr net.Addr
}

type ServerOption func(*Server)

func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithMetrics mounts a promhttp handler for g at path.
func WithMetrics(path string, g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.metrics = path
		s.gather = g
	}
}

func NewServer(cfg nconfig.Server, source KernelSource, opts ...ServerOption) *Server {
	s := &Server{
		source: source,
		cfg:    cfg,
		log:    nlog.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	if s.gather != nil && s.metrics != "" {
		r.Method(http.MethodGet, s.metrics, promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}
	r.Handle("/*", s)
	r.MethodNotAllowed(s.ServeHTTP)
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = nlog.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(nlog.ContextWithRequestID(r.Context(), id)))
	})
}

// ServeHTTP runs one request through a fresh kernel.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	log := nlog.FromContext(r.Context(), "server")
	resp, err := s.handle(r)
	if err != nil {
		s.writeError(ww, err)
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("unhandled request error")
	} else if err := resp.WriteTo(ww); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
	log.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", ww.Status()).
		Int("bytes", ww.BytesWritten()).
		Dur("duration", time.Since(start)).
		Msg("served")
}

func (s *Server) handle(r *http.Request) (*nmsg.Response, error) {
	req, err := nmsg.FromHTTP(r)
	if err != nil {
		return nil, nmsg.BadRequest(err)
	}
	req = s.source.Prepare(req)
	k, err := s.source.NewKernel()
	if err != nil {
		return nil, errors.Wrap(err, "build kernel")
	}
	resp, err := k.Handle(req)
	if err != nil {
		resp, err = k.HandleException(err, k.Request())
	}
	if err == nil && resp == nil {
		err = errors.New("kernel returned no response")
	}
	return resp, err
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := nmsg.StatusCode(err)
	msg := http.StatusText(status)
	if status < 500 {
		msg = err.Error()
	}
	body, mErr := sonic.Marshal(map[string]any{"error": msg, "status": status})
	if mErr != nil {
		body = []byte(`{"error":"internal"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.lock.Lock()
	s.addr = ln.Addr()
	s.lock.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return errors.Wrap(srv.Shutdown(sctx), "shutdown")
	})
	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Addr is the address being served, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addr
}

// Attach starts the server on the app's Start hook and stops it on Stop.
func (s *Server) Attach(app *App) {
	app.On(Start, func(context.Context, *App) error {
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
		}
		s.lock.Lock()
		s.addr = ln.Addr()
		s.lock.Unlock()
		ctx, cancel := context.WithCancel(app.Context())
		done := make(chan error, 1)
		go func() { done <- s.Serve(ctx, ln) }()
		app.On(Stop, func(context.Context, *App) error {
			cancel()
			return <-done
		})
		return nil
	})
}
