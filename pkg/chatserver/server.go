package chatserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/chatui/el"
	chatuierrors "github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/chat"
	"github.com/vango-dev/chatui/pkg/dom"
)

const tracerName = "github.com/vango-dev/chatui/pkg/chatserver"

// Server is the chat HTTP server.
type Server struct {
	config   Config
	backend  Backend
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	router   chi.Router

	mu         sync.Mutex
	httpServer *http.Server
	conns      sync.WaitGroup

	// closing is cancelled by Shutdown to end open websockets.
	closing context.Context
	close   context.CancelFunc
}

// Option configures a Server.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	metrics        MetricsConfig
	gatherer       prometheus.Gatherer
	tracerProvider trace.TracerProvider
}

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry registers the server metrics with reg and serves reg on
// /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.metrics.Registry = reg
		o.gatherer = reg
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// New creates a server for backend. Zero Config fields take their defaults.
func New(config Config, backend Backend, opts ...Option) *Server {
	o := options{
		logger:         slog.Default(),
		metrics:        defaultMetricsConfig(),
		gatherer:       prometheus.DefaultGatherer,
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if backend == nil {
		backend = EchoBackend{}
	}
	config = config.withDefaults()

	s := &Server{
		config:   config,
		backend:  backend,
		logger:   o.logger.With("component", "chatserver"),
		tracer:   o.tracerProvider.Tracer(tracerName),
		metrics:  newMetrics(o.metrics),
		gatherer: o.gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.closing, s.close = context.WithCancel(context.Background())
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/models", s.handleModels)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the HTTP handler for mounting in another router.
func (s *Server) Handler() http.Handler { return s.router }

// Config returns the effective configuration.
func (s *Server) Config() Config { return s.config }

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections, closes open websockets and waits
// for their handlers to return, up to the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.close()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc := dom.NewDocument()
	rt := el.New(doc)
	rt.Elements["meta"](el.Config{el.Attr("charset", "utf-8")})(doc.Head())
	rt.Elements["title"](nil, el.Text(s.config.Title))(doc.Head())
	page := chat.NewPage(doc, nil, chat.PageHandlers{})
	page.ApplyTheme(chat.ThemeDark)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.logger.Warn("render page", "error", err)
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.backend.Models(r.Context())
	if err != nil {
		err = chatuierrors.New("E150").Wrap(err)
		s.logger.Error("list models", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if models == nil {
		models = []chat.Model{}
	}
	writeJSON(w, http.StatusOK, chat.ModelList{Models: models})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
