package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/lifecycle"
	"github.com/vbonduro/nearby/internal/proximity"
	"github.com/vbonduro/nearby/internal/service"
)

// LocationIngester accepts location fixes pushed by the device.
type LocationIngester interface {
	Push(sample domain.LocationSample) int
}

// AppLifecycle receives foreground/background transitions from the UI.
type AppLifecycle interface {
	SetState(ctx context.Context, state lifecycle.State) error
	State() lifecycle.State
}

// ProximityStatus reports what the proximity engine is doing.
type ProximityStatus interface {
	Status() proximity.Status
	Active() []int64
	Threshold() float64
}

type Server struct {
	service   *service.PointService
	locations LocationIngester
	app       AppLifecycle
	proximity ProximityStatus
	mux       *http.ServeMux
	logger    *slog.Logger
}

func NewServer(
	svc *service.PointService,
	locations LocationIngester,
	app AppLifecycle,
	prox ProximityStatus,
	logger *slog.Logger,
) *Server {
	s := &Server{
		service:   svc,
		locations: locations,
		app:       app,
		proximity: prox,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/points", s.handleListPoints)
	s.mux.HandleFunc("POST /api/points", s.handleCreatePoint)
	s.mux.HandleFunc("GET /api/points/{id}", s.handleGetPoint)
	s.mux.HandleFunc("PATCH /api/points/{id}", s.handleUpdatePoint)
	s.mux.HandleFunc("DELETE /api/points/{id}", s.handleDeletePoint)
	s.mux.HandleFunc("GET /api/points/{id}/images", s.handleListImages)
	s.mux.HandleFunc("POST /api/points/{id}/images", s.handleAddImage)
	s.mux.HandleFunc("GET /api/images/{id}", s.handleGetImage)
	s.mux.HandleFunc("DELETE /api/images/{id}", s.handleDeleteImage)
	s.mux.HandleFunc("GET /api/images/{id}/content", s.handleImageContent)
	s.mux.HandleFunc("POST /api/location", s.handleLocation)
	s.mux.HandleFunc("POST /api/lifecycle", s.handleLifecycle)
	s.mux.HandleFunc("GET /api/proximity", s.handleProximity)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
