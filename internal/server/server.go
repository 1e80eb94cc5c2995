package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision/pkg/types"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

// DefaultMaxUpload is the request body limit when none is configured
const DefaultMaxUpload = 20 << 20

// Detector is what the API needs from the detection pipeline
type Detector interface {
	DetectIngredients(ctx context.Context, data []byte) (*types.DetectionResponse, error)
	Available(ctx context.Context) bool
}

// Options configures the HTTP API
type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUpload      int64
	Version        string
	Metrics        http.Handler // served on /metrics when set
}

// Server exposes the detection pipeline over HTTP
type Server struct {
	detector Detector
	opts     Options
	log      logrus.FieldLogger
	router   chi.Router
}

// New creates the server and its routes
func New(detector Detector, opts Options, log logrus.FieldLogger) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	if opts.Version == "" {
		opts.Version = Version
	}
	s := &Server{
		detector: detector,
		opts:     opts,
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(cors(s.opts.AllowedOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/detect-objects", s.handleDetectUpload)
	r.Post("/detect-objects-base64", s.handleDetectBase64)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("API server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("Server stopped")
	return nil
}
