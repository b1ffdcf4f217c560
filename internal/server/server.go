// Package server is the HTML front end: a chi router with the signup,
// login, recovery and member pages on top of a goSession.Engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
)

const notFoundBody = "Page not found - 404"

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Logger *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine    *goSession.Engine
	logger    *zap.Logger
	templates *template.Template
	router    chi.Router
}

// New builds the router. engine must be built.
func New(engine *goSession.Engine, opts Options) (*Server, error) {
	if engine == nil {
		return nil, goSession.ErrEngineNotReady
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:    engine,
		logger:    logger,
		templates: tmpl,
	}
	s.router = s.routes(opts.Metrics)
	return s, nil
}

func (s *Server) routes(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(s.engine, s.logger))

		r.Get("/", s.landing)
		r.Get("/signup", s.signupForm)
		r.Post("/signupSubmit", s.signupSubmit)
		r.Get("/login", s.loginForm)
		r.Post("/loggingin", s.loginSubmit)
		r.Get("/changePassword", s.recoveryStartForm)
		r.Post("/changePassword", s.recoveryStartSubmit)
		r.Get("/resetPassword", s.recoveryCompleteForm)
		r.Post("/resetPassword", s.recoveryCompleteSubmit)
		r.Get("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated(s.engine, "/"))
			r.Get("/main", s.mainPage)
			r.Get("/quizWelcome", s.quizWelcome)
			r.Get("/quiz", s.quizForm)
			r.Post("/quiz", s.quizSubmit)
			r.Get("/members", s.members)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, notFoundBody)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log(r).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) log(r *http.Request) *zap.Logger {
	l := logging.FromContext(r.Context(), s.logger)
	if id := chimw.GetReqID(r.Context()); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l
}

// sessionOf returns the handle LoadSession put in the context.
func (s *Server) sessionOf(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := goSession.SessionFromContext(r.Context())
	if !ok {
		s.fail(w, r, goSession.ErrEngineNotReady)
	}
	return sess, ok
}

// fail answers 500 without exposing err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log(r).Error("request failed", zap.Error(err), zap.Bool("backend", goSession.IsBackendError(err)))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

type healthBody struct {
	SessionStore     bool    `json:"session_store"`
	CredentialStore  bool    `json:"credential_store"`
	SessionLatencyMS float64 `json:"session_latency_ms"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Health(r.Context())
	code := http.StatusOK
	if err != nil {
		s.log(r).Warn("health check", zap.Error(err))
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthBody{
		SessionStore:     status.SessionStore,
		CredentialStore:  status.CredentialStore,
		SessionLatencyMS: float64(status.SessionLatency.Microseconds()) / 1000,
	})
}
