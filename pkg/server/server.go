// Package server exposes the optional metrics and healthcheck endpoints that
// run alongside a deployment.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aidroute/deployer/pkg/config"
)

// StatusFunc reports the current status line and whether it is healthy.
type StatusFunc func() (status string, healthy bool)

type Server struct {
	log    logrus.FieldLogger
	config config.ServerConfig
	status StatusFunc

	metricsServer *http.Server
	healthServer  *http.Server

	metricsListener net.Listener
	healthListener  net.Listener

	group *errgroup.Group
}

func New(log logrus.FieldLogger, cfg config.ServerConfig, status StatusFunc) *Server {
	if status == nil {
		status = func() (string, bool) { return "ok", true }
	}

	return &Server{
		log:    log.WithField("component", "server"),
		config: cfg,
		status: status,
	}
}

// Enabled reports whether at least one endpoint is configured.
func (s *Server) Enabled() bool {
	return s.config.MetricsAddr != "" || s.config.HealthCheckAddr != ""
}

// Start binds every configured endpoint and serves them in the background.
// Bind errors are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	g := &errgroup.Group{}
	s.group = g

	var lc net.ListenConfig

	if s.config.MetricsAddr != "" {
		listener, err := lc.Listen(ctx, "tcp", s.config.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on metrics address %s: %w", s.config.MetricsAddr, err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		s.metricsListener = listener
		s.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 120 * time.Second,
		}

		s.log.WithField("addr", listener.Addr().String()).Info("Starting metrics server")

		g.Go(func() error {
			return serve(s.metricsServer, listener)
		})
	}

	if s.config.HealthCheckAddr != "" {
		listener, err := lc.Listen(ctx, "tcp", s.config.HealthCheckAddr)
		if err != nil {
			s.abort()

			return fmt.Errorf("failed to listen on healthcheck address %s: %w", s.config.HealthCheckAddr, err)
		}

		s.healthListener = listener
		s.healthServer = &http.Server{
			Handler:           http.HandlerFunc(s.handleHealth),
			ReadHeaderTimeout: 120 * time.Second,
		}

		s.log.WithField("addr", listener.Addr().String()).Info("Starting healthcheck server")

		g.Go(func() error {
			return serve(s.healthServer, listener)
		})
	}

	return nil
}

func serve(srv *http.Server, listener net.Listener) error {
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, healthy := s.status()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_, _ = fmt.Fprintln(w, status)
}

// MetricsAddr is the bound metrics address, empty when disabled.
func (s *Server) MetricsAddr() string {
	if s.metricsListener == nil {
		return ""
	}

	return s.metricsListener.Addr().String()
}

// HealthCheckAddr is the bound healthcheck address, empty when disabled.
func (s *Server) HealthCheckAddr() string {
	if s.healthListener == nil {
		return ""
	}

	return s.healthListener.Addr().String()
}

func (s *Server) abort() {
	if s.metricsServer != nil {
		_ = s.metricsServer.Close()
	}

	_ = s.group.Wait()
	s.group = nil
}

// Stop shuts both endpoints down and waits for them to exit.
func (s *Server) Stop(ctx context.Context) error {
	if s.group == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Create a timeout context for cleanup
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown metrics server")
		}
	}

	err := s.group.Wait()
	s.group = nil

	s.log.Debug("Server stopped")

	return err
}
