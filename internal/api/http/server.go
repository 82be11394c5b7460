package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
	"github.com/2xkl/PeerFlow/internal/usecase"
)

type AddSessionUseCase interface {
	Execute(ctx context.Context, input usecase.AddSessionInput) (domain.SessionRecord, error)
}

type ListSessionsUseCase interface {
	Execute(ctx context.Context) ([]domain.SessionRecord, error)
}

type GetSessionUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
}

type RemoveSessionUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
}

type PauseSessionUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
}

type ResumeSessionUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
}

type ResolveStreamInfoUseCase interface {
	Execute(ctx context.Context, fileID domain.SessionID) (usecase.StreamInfo, error)
}

type Server struct {
	addSession     AddSessionUseCase
	listSessions   ListSessionsUseCase
	getSession     GetSessionUseCase
	removeSession  RemoveSessionUseCase
	pauseSession   PauseSessionUseCase
	resumeSession  ResumeSessionUseCase
	resolveStream  ResolveStreamInfoUseCase
	engine         ports.Engine
	store          ports.BlobStore
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithListSessions(uc ListSessionsUseCase) ServerOption {
	return func(s *Server) { s.listSessions = uc }
}

func WithGetSession(uc GetSessionUseCase) ServerOption {
	return func(s *Server) { s.getSession = uc }
}

func WithRemoveSession(uc RemoveSessionUseCase) ServerOption {
	return func(s *Server) { s.removeSession = uc }
}

func WithPauseSession(uc PauseSessionUseCase) ServerOption {
	return func(s *Server) { s.pauseSession = uc }
}

func WithResumeSession(uc ResumeSessionUseCase) ServerOption {
	return func(s *Server) { s.resumeSession = uc }
}

func WithResolveStreamInfo(uc ResolveStreamInfoUseCase) ServerOption {
	return func(s *Server) { s.resolveStream = uc }
}

func WithEngine(engine ports.Engine) ServerOption {
	return func(s *Server) { s.engine = engine }
}

func WithBlobStore(store ports.BlobStore) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(add AddSessionUseCase, opts ...ServerOption) *Server {
	s := &Server{addSession: add}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionByID)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "peerflow",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case s.wsHub.register <- client:
	case <-s.wsHub.done:
		// Hub already stopped; nobody will ever read the register channel.
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()

	// New listeners get the current state right away instead of waiting
	// for the next tick.
	if s.engine != nil {
		client.push("progress", s.engine.AllSnapshots(r.Context()))
	}
}

// BroadcastProgress pushes the current snapshot list to all WebSocket
// listeners. Called from the progress ticker.
func (s *Server) BroadcastProgress(ctx context.Context) {
	if s.wsHub == nil || s.engine == nil {
		return
	}
	snapshots := s.engine.AllSnapshots(ctx)
	if len(snapshots) == 0 {
		return
	}
	s.wsHub.Broadcast("progress", snapshots)
}
