// Package server publishes a repository's layout over HTTP and pushes a new
// layout to websocket clients after every reload.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/reach"
	"github.com/thiagokokada/gitlanes/internal/render"
)

// Session is the repository the server publishes.
type Session interface {
	Path() string
	Reload(ctx context.Context) error
	Layout() *graph.Layout
	Analyzer(strategy reach.Strategy) *reach.Analyzer
}

type Options struct {
	Addr     string
	Palette  graph.Palette
	Strategy reach.Strategy
	// Debounce delays reloads after repository changes.
	Debounce time.Duration
	// Watch enables reloading on repository changes.
	Watch bool
}

type Server struct {
	session Session
	opts    Options
	metrics *metrics
	hub     *hub
	router  chi.Router

	reloadMu sync.Mutex
	upgrader websocket.Upgrader
}

func New(session Session, opts Options) *Server {
	m := newMetrics()
	s := &Server{
		session: session,
		opts:    opts,
		metrics: m,
		hub:     newHub(m),
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
	}
	s.router = s.routes()
	s.observe(session.Layout())
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/layout", s.handleLayout)
		r.Get("/lost", s.handleLost)
		r.Post("/reload", s.handleReload)
		r.Get("/ws", s.handleWebSocket)
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, watching the repository when enabled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.run(ctx)

	if s.opts.Watch {
		w := NewWatcher(s.session.Path(), s.opts.Debounce, func() {
			if err := s.Reload(ctx); err != nil {
				slog.Error("auto reload failed", slog.Any("error", err))
			}
		})
		if err := w.Start(); err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				slog.Error("watcher close", slog.Any("error", err))
			}
		}()
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	slog.Info("serving layout", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Reload reloads the session and broadcasts the new layout. Concurrent calls
// are serialized.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	err := s.session.Reload(ctx)
	s.metrics.reloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		s.hub.Broadcast(Message{Type: MessageError, Data: err.Error()})
		return err
	}
	s.metrics.reloads.WithLabelValues("ok").Inc()
	layout := s.session.Layout()
	s.observe(layout)
	s.hub.Broadcast(s.layoutMessage(layout))
	return nil
}

func (s *Server) observe(layout *graph.Layout) {
	s.metrics.layoutCommits.Set(float64(layout.Len()))
	s.metrics.layoutWidth.Set(float64(layout.Width()))
}

func (s *Server) layoutMessage(layout *graph.Layout) Message {
	return Message{Type: MessageLayout, Data: render.NewLayoutDocument(layout, s.opts.Palette)}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.httpRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// sameOrigin accepts requests without an Origin header and same-host origins.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
