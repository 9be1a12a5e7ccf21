package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/interfaces/broadcast"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests on /ws/events and /ws/events/filtered
// into duplex sessions bound to the broadcast hub.
type Server struct {
	hub      *broadcast.Hub
	journal  cdc.Journal
	upgrader websocket.Upgrader
	logger   *zap.Logger

	heartbeatSeconds   int
	idleTimeoutSeconds int
}

// ServerConfig holds the session-level tunables sourced from configuration.
type ServerConfig struct {
	HeartbeatSeconds   int
	IdleTimeoutSeconds int
	ReadBufferSize     int
	WriteBufferSize    int
	CheckOrigin        func(r *http.Request) bool
}

// DefaultServerConfig returns the configuration used when the caller
// does not override it.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HeartbeatSeconds:   30,
		IdleTimeoutSeconds: 60,
		ReadBufferSize:     4096,
		WriteBufferSize:    4096,
		CheckOrigin:        func(r *http.Request) bool { return true },
	}
}

// NewServer wires a Server to the hub and journal every session will
// subscribe against.
func NewServer(hub *broadcast.Hub, journal cdc.Journal, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		hub:     hub,
		journal: journal,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:             logger,
		heartbeatSeconds:   config.HeartbeatSeconds,
		idleTimeoutSeconds: config.IdleTimeoutSeconds,
	}
}

// HandleEvents serves /ws/events: the subscription admits every event
// type from the start.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, broadcast.Filter{})
}

// HandleEventsFiltered serves /ws/events/filtered: the initial filter
// is read from the `types` query parameter (comma-separated event type
// names), narrowing the subscription before the first frame is sent.
func (s *Server) HandleEventsFiltered(w http.ResponseWriter, r *http.Request) {
	var types []cdc.EventType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, cdc.EventType(t))
			}
		}
	}
	s.serve(w, r, broadcast.NewFilter(types))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, filter broadcast.Filter) {
	lastSeenID := int64(0)
	if raw := r.URL.Query().Get("lastSeenId"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			lastSeenID = parsed
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("websocket upgrade failed", zap.Error(err), zap.String("remoteAddr", r.RemoteAddr))
		}
		return
	}

	session := NewSession(conn, s.hub, s.journal, filter, lastSeenID, s.heartbeatSeconds, s.idleTimeoutSeconds, s.logger)
	if s.logger != nil {
		s.logger.Info("websocket session established", zap.String("sessionId", session.id), zap.String("remoteAddr", r.RemoteAddr))
	}
	go session.Run()
}

// Start registers the routes and serves HTTP until the process is
// killed; callers that need graceful shutdown should use
// StartWithContext instead.
func (s *Server) Start(address string) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	server := &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting websocket server", zap.String("address", address))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("websocket server error: %w", err)
	}
	return nil
}

// StartWithContext starts the server and blocks until ctx is
// cancelled, then drains the hub and shuts the HTTP server down within
// a bounded grace period.
func (s *Server) StartWithContext(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	server := &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting websocket server", zap.String("address", address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down websocket server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("websocket server shutdown error: %w", err)
		}

		s.hub.Shutdown()
		s.logger.Info("websocket server stopped gracefully")
		return nil

	case err := <-serverErr:
		return fmt.Errorf("websocket server error: %w", err)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/events", s.HandleEvents)
	mux.HandleFunc("/ws/events/filtered", s.HandleEventsFiltered)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"websocket"}`)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"subscribers":%d,"fanoutDropped":%d}`, s.hub.SubscriberCount(), s.hub.FanoutDropped())
}

// GetHub returns the broadcast hub backing this server.
func (s *Server) GetHub() *broadcast.Hub {
	return s.hub
}
