package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	"tally/internal/storage"
	appweb "tally/web"
)

// ReadinessCheck reports whether one dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Config wires the server to its dependencies.
type Config struct {
	Addr           string
	Auth           *auth.Manager
	Records        storage.RecordStore
	Profiles       *services.ProfileService
	Logger         *log.Logger
	CurrencySymbol string
	RateLimitRPM   int
	MaxWorkspaces  int
	WorkspaceTTL   time.Duration
	// Ready is run by /readyz, keyed by dependency name
	Ready map[string]ReadinessCheck
	// Templates and Static default to the embedded web assets
	Templates fs.FS
	Static    fs.FS
	// Now overrides the clock used for summaries and form defaults
	Now func() time.Time
}

// Server serves the tally pages and API.
type Server struct {
	http.Server
	auth       *auth.Manager
	records    storage.RecordStore
	profiles   *services.ProfileService
	templates  *template.Template
	workspaces *workspaces
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	caches     *cache.Manager
	ready      map[string]ReadinessCheck
	logger     *log.Logger
	now        func() time.Time
	started    time.Time
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if cfg.Templates == nil {
		cfg.Templates = appweb.TemplatesFS
	}
	if cfg.Static == nil {
		cfg.Static = appweb.StaticFS
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxWorkspaces <= 0 {
		cfg.MaxWorkspaces = 1000
	}
	if cfg.WorkspaceTTL <= 0 {
		cfg.WorkspaceTTL = 24 * time.Hour
	}

	s := &Server{
		auth:       cfg.Auth,
		records:    cfg.Records,
		profiles:   cfg.Profiles,
		workspaces: newWorkspaces(cfg.Auth, cfg.Records, cfg.MaxWorkspaces, cfg.WorkspaceTTL, logger),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM, Logger: logger}),
		detector:   security.NewDetector(logger),
		caches:     cache.NewManager(logger),
		ready:      cfg.Ready,
		logger:     logger,
		now:        cfg.Now,
		started:    cfg.Now(),
	}

	t, err := parseTemplates(cfg.Templates, cfg.CurrencySymbol)
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.caches.Register("workspaces", s.workspaces)
	s.caches.StartCleanup(5 * time.Minute)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.Static),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes(static fs.FS) http.Handler {
	mux := http.NewServeMux()

	// Health checks and metrics skip the page middleware
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	if sub, err := fs.Sub(static, "static"); err == nil {
		mux.Handle("GET /static/", security.StaticAssetMiddleware(86400)(
			http.StripPrefix("/static/", http.FileServer(http.FS(sub)))))
	} else {
		s.logger.Warn("Static assets unavailable", log.FieldError, err)
	}

	pages := http.NewServeMux()
	pages.HandleFunc("GET /{$}", s.handleIndex)
	pages.HandleFunc("GET /auth", s.handleAuthPage)
	pages.HandleFunc("GET /auth/login", s.handleLogin)
	pages.HandleFunc("GET /auth/callback", s.handleCallback)
	pages.HandleFunc("GET /auth/complete-profile", s.requireAuth(s.handleCompleteProfileForm))
	pages.HandleFunc("POST /auth/complete-profile", s.requireAuth(s.handleCompleteProfile))
	pages.HandleFunc("POST /auth/signout", s.handleSignOut)

	pages.HandleFunc("GET /personal", s.requireAuth(s.handlePersonal))
	pages.HandleFunc("POST /personal/records", s.requireAuth(s.handleCreateRecord))
	pages.HandleFunc("POST /personal/records/{id}", s.requireAuth(s.handleEditRecord))
	pages.HandleFunc("DELETE /personal/records/{id}", s.requireAuth(s.handleDeleteRecord))
	pages.HandleFunc("POST /personal/records/{id}/delete", s.requireAuth(s.handleDeleteRecord))

	pages.HandleFunc("GET /profile", s.requireAuth(s.handleProfile))
	pages.HandleFunc("POST /profile", s.requireAuth(s.handleUpdateProfile))

	pages.HandleFunc("GET /api/personal-expenses", s.requireAPIAuth(s.handleListRecordsAPI))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = pages
	h = security.NoStore(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	mux.Handle("/", h)

	return trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(mux)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.").Write(w)
}

// RegisterCache adds c to the periodic cleanup cycle.
func (s *Server) RegisterCache(name string, c cache.Cleaner) {
	s.caches.Register(name, c)
}

// Shutdown stops background work, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}
