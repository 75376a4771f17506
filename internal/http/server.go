package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"catatan/internal/core"
	applog "catatan/internal/log"
	"catatan/internal/middleware/ratelimit"
	"catatan/internal/middleware/security"
	"catatan/internal/middleware/trace"
	"catatan/internal/services"
	"catatan/internal/session"
	appweb "catatan/web"
)

// Options configures NewServer. Sessions, Commits and Formatter are required.
type Options struct {
	Addr               string
	Sessions           *session.Store
	Commits            *services.CommitService
	Formatter          core.AmountFormatter
	Logger             *applog.Logger
	RateLimitPerMinute int
	SessionTTL         time.Duration
	SecureCookies      bool
	Title              string
	Lang               string
	TrustedProxies     []string
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	commits   *services.CommitService
	formatter core.AmountFormatter
	logger    *applog.Logger
	slogger   *applog.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	sessionTTL    time.Duration
	secureCookies bool
	title         string
	lang          string

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// The rate limiter cleanup loop runs until Shutdown.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Commits == nil || opts.Formatter == nil {
		return nil, errors.New("http server requires sessions, commits and formatter")
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.Title == "" {
		opts.Title = "Transactions"
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector(logger.Logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		templates:     t,
		sessions:      opts.Sessions,
		commits:       opts.Commits,
		formatter:     opts.Formatter,
		logger:        logger,
		slogger:       applog.NewStructuredLogger(logger),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:      detector,
		tracer:        trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		sessionTTL:    opts.SessionTTL,
		secureCookies: opts.SecureCookies,
		title:         opts.Title,
		lang:          opts.Lang,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.limiter.Run(ctx, 5*time.Minute)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(s.tracer.Handler)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(security.NoStore).Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
		r.Get("/", s.handleIndex)
		r.Get("/ui/rows", s.handleRows)
		r.Post("/draft", s.handleDraft)
		r.Post("/transactions", s.handleCommit)
		r.Get("/api/transactions", s.handleListTransactions)
		r.Get("/api/transactions.xlsx", s.handleExportTransactions)
	})
	return r
}

// Shutdown stops background loops and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopBackground != nil {
			s.stopBackground()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.stopBackground()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerBlockingError("Too many requests. Please wait a moment and try again.").
		BodyHTML(`<div class="error">Rate limit exceeded</div>`).
		Write(w)
}
