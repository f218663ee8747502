package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"restaurant-system/internal/common/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	*http.Server
	log *logger.Logger
}

func New(addr string, h http.Handler, lg *logger.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: lg,
	}
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	s.log.Info("http_listening", map[string]any{"addr": s.Addr})

	select {
	case <-ctx.Done():
		ctx2, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(ctx2); err != nil {
			s.log.Warn("http_shutdown_incomplete", err, nil)
		}
		s.log.Info("graceful_shutdown", map[string]any{"addr": s.Addr})
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
