package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
)

// Server owns the listening HTTP server and its graceful shutdown.
type Server struct {
	srv *http.Server
}

// New binds the engine to the configured address. Read/write timeouts
// stay 0: chat streams run for minutes and are bounded by the upstream,
// not by the listener.
func New(cfg *config.Config, engine *gin.Engine) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: engine,
		},
	}
}

// Run serves until the context is cancelled, then shuts down gracefully
// within the bounded timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
