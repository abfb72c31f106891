// Package web serves the browser front end: an upload form and a JSON
// describe endpoint backed by the describe package.
package web

import (
	"context"
	"embed"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/petvision/petvision/describe"
)

//go:embed templates
var content embed.FS

// Runner is the slice of describe.Describer the handlers need. Tests swap in
// a recorder to keep requests off the network.
type Runner interface {
	Describe(ctx context.Context, img describe.ImageInput, overrides *describe.Params) describe.Result
}

// Server serves the upload form and describe API on a TCP port.
type Server struct {
	cfg        Config
	runner     Runner
	httpServer *http.Server
	logger     zerolog.Logger
	templates  *template.Template
}

func New(cfg Config, runner Runner, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		logger: logger.With().Str("component", "web").Logger(),
	}

	s.templates = template.Must(template.ParseFS(content, "templates/*.html"))

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.accessLog,
	)

	r.Get("/", s.handleIndex)
	r.Post("/api/describe", s.handleDescribe)
	r.Get("/healthz", s.handleHealth)

	s.httpServer = &http.Server{Handler: r}
	return s
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Start begins listening on TCP. Blocks until Shutdown or error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.logger.Info().Str("listen", s.cfg.Listen).Msg("web UI listening")
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
