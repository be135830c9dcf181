package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	sessionSecret []byte
	sessionTTL    time.Duration
	secureCookie  bool
	maxUpload     int64
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithSessionSecret sets the key that signs session cookies
func WithSessionSecret(secret []byte) Option {
	return func(c *config) {
		c.sessionSecret = secret
	}
}

// WithSessionTTL sets the lifetime of the session cookie
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.sessionTTL = ttl
	}
}

// WithSecureCookie marks the session cookie Secure
func WithSecureCookie(secure bool) Option {
	return func(c *config) {
		c.secureCookie = secure
	}
}

// WithMaxUpload limits the size of one upload request in bytes
func WithMaxUpload(n int64) Option {
	return func(c *config) {
		c.maxUpload = n
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	catalog *model.Catalog,
	workspaceUC interfaces.WorkspaceUseCase,
	resultUC interfaces.ResultUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:       "localhost:8080",
		sessionTTL: 2 * time.Hour,
		maxUpload:  256 << 20,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.sessionSecret) < 32 {
		return nil, goerr.New("session secret must be at least 32 bytes", goerr.V("length", len(cfg.sessionSecret)))
	}

	pages, err := newRenderer(catalog)
	if err != nil {
		return nil, err
	}

	sessions := newSessionCodec(cfg.sessionSecret, cfg.sessionTTL, cfg.secureCookie)

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth(workspaceUC))

	wh := &workspaceHandler{
		uc:        workspaceUC,
		pages:     pages,
		maxUpload: cfg.maxUpload,
	}
	dh := &downloadHandler{
		uc:    resultUC,
		pages: pages,
	}

	router.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(sessions))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/merge", http.StatusSeeOther)
		})

		r.Route("/download", func(r chi.Router) {
			r.Get("/", dh.Arrive)
			r.Post("/file", dh.Download)
			r.Post("/discard", dh.Discard)
		})

		r.Route("/{tool}", func(r chi.Router) {
			r.Use(ToolMiddleware(catalog))
			r.Get("/", wh.Mount)
			r.Get("/workspace", wh.Workspace)
			r.Get("/state", wh.State)
			r.Post("/files", wh.Upload)
			r.Post("/files/order", wh.Reorder)
			r.Post("/files/{fileID}/delete", wh.Remove)
			r.Post("/reset", wh.Reset)
			r.Post("/process", wh.Process)
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
