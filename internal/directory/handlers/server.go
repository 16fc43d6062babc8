package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the HTTP server hosting the directory API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	endpoint   string
}

// NewServer constructs a Server listening on the given port.
func NewServer(port int, handler http.Handler, logger *zap.Logger) *Server {
	endpoint := fmt.Sprintf(":%d", port)
	return &Server{
		httpServer: &http.Server{
			Addr:    endpoint,
			Handler: handler,
		},
		logger:   logger,
		endpoint: endpoint,
	}
}

// Start runs the HTTP server, returning once it stops serving.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.endpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
