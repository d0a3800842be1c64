package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server exposes /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *log.Entry
}

func NewServer(addr string, checks map[string]HealthCheck) *Server {
	s := &Server{
		addr:   addr,
		logger: log.WithField("object", "ops_server"),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           NewRouter(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func NewRouter(checks map[string]HealthCheck) chi.Router {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("ops server failed")
		}
	}()
	s.logger.WithField("addr", s.addr).Info("ops server listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
