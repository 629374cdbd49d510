package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server represents the HTTP API server
type Server struct {
	router *chi.Mux
	store  *pagestore.Store
	config *types.APIConfig
	logger zerolog.Logger
	http   *http.Server
}

// NewServer creates a new API server
func NewServer(store *pagestore.Store, config *types.APIConfig, logger zerolog.Logger) *Server {
	router := NewRouter(store, logger)
	mux := router.SetupRoutes()

	return &Server{
		router: mux,
		store:  store,
		config: config,
		logger: logger,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	addr := ln.Addr().String()
	s.logger.Info().
		Str("addr", addr).
		Str("api", fmt.Sprintf("http://%s/api/v1/", addr)).
		Str("health", fmt.Sprintf("http://%s/health", addr)).
		Msg("starting Canopy page store")

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}

// Shutdown stops accepting requests, waits for in-flight ones and closes the store
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownErr := s.http.Shutdown(ctx)
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close page store: %w", err)
	}
	if shutdownErr != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", shutdownErr)
	}
	return nil
}
