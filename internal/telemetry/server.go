package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeusync/voxphys/internal/core/observability/log"
)

var (
	ErrServerClosed         = errors.New("telemetry: server is closed")
	ErrServerNotRunning     = errors.New("telemetry: server is not running")
	ErrServerAlreadyRunning = errors.New("telemetry: server is already running")
	ErrInvalidConfig        = errors.New("telemetry: invalid config")
)

// Config holds the telemetry endpoint settings.
type Config struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	Path       string `json:"path" yaml:"path"`
	// ClientBuffer is the number of frames queued per client before the
	// client is dropped.
	ClientBuffer int           `json:"client_buffer" yaml:"client_buffer"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	// Every sends one tick frame per Every ticks.
	Every int `json:"every" yaml:"every"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8081",
		Path:         "/ws",
		ClientBuffer: 64,
		WriteTimeout: 5 * time.Second,
		Every:        1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Enabled && c.ListenAddr == "":
		return fmt.Errorf("%w: listen_addr is required", ErrInvalidConfig)
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidConfig, c.Path)
	case c.ClientBuffer < 0 || c.Every < 0 || c.WriteTimeout < 0:
		return fmt.Errorf("%w: negative limits", ErrInvalidConfig)
	}
	return nil
}

// Server exposes a Hub over HTTP. It can be started once.
type Server struct {
	cfg    Config
	hub    *Hub
	logger log.Log

	srv     *http.Server
	ln      net.Listener
	running atomic.Bool
	closed  atomic.Bool
}

func NewServer(cfg Config, hub *Hub, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Server{cfg: cfg, hub: hub, logger: logger.Named("telemetry")}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("telemetry: listen %s: %w", s.cfg.ListenAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s.hub)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("telemetry server failed", log.Error(err))
		}
	}()
	s.logger.Info("telemetry listening", log.String("addr", ln.Addr().String()), log.String("path", s.cfg.Path))
	return nil
}

// Addr is the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop disconnects clients and shuts the listener down. A stopped server
// cannot be restarted.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.closed.Store(true)
	s.hub.Close()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	s.logger.Info("telemetry stopped")
	return nil
}
