package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aicode/internal/config"
	"aicode/internal/debug"
)

type session struct {
	id        string
	conn      *websocket.Conn
	createdAt time.Time
}

// WebSocketServer serves JSON-RPC over websocket text frames, one handler
// per connection.
type WebSocketServer struct {
	cfg      *config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	sessions      map[string]*session
	sessionsMutex sync.RWMutex
}

func NewWebSocketServer(cfg *config.Config, logger *zap.Logger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketServer{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *WebSocketServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run listens on addr until ctx is cancelled, then shuts down and closes
// open sessions.
func (s *WebSocketServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *WebSocketServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("WebSocket server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.closeSessions()
		return err
	})

	return g.Wait()
}

func (s *WebSocketServer) closeSessions() {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	for id, sess := range s.sessions {
		_ = sess.conn.Close()
		delete(s.sessions, id)
	}
}

func (s *WebSocketServer) SessionCount() int {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()
	return len(s.sessions)
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess := &session{id: uuid.NewString(), conn: conn, createdAt: time.Now()}
	logger := s.logger.With(zap.String("session_id", sess.id))

	dl := debug.NewDebugLogger(s.cfg.Debug.Enabled, s.cfg.Debug.LogDir)
	if err := dl.StartNewSession(sess.id); err != nil {
		logger.Warn("Failed to start debug session", zap.Error(err))
	}
	defer dl.Close()

	h, err := NewHandler(s.cfg, WithLogger(logger), WithDebugLogger(dl))
	if err != nil {
		logger.Error("Failed to create handler", zap.Error(err))
		_ = conn.WriteJSON(newError(nil, CodeInternalError, "Internal error", err.Error()))
		return
	}

	s.sessionsMutex.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMutex.Unlock()
	defer func() {
		s.sessionsMutex.Lock()
		delete(s.sessions, sess.id)
		s.sessionsMutex.Unlock()
		logger.Info("WebSocket session closed", zap.Duration("duration", time.Since(sess.createdAt)))
	}()

	logger.Info("New WebSocket session")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}

		resp := h.HandleMessage(ctx, data)
		if resp != nil {
			if err := conn.WriteJSON(resp); err != nil {
				logger.Warn("Failed to send response", zap.Error(err))
				return
			}
		}

		if h.ShutdownRequested() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			return
		}
	}
}

func (s *WebSocketServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":             "healthy",
		"mode":               "websocket",
		"policy":             s.cfg.Policy.Mode,
		"active_sessions":    s.SessionCount(),
		"websocket_endpoint": "/ws",
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("Failed to write health status", zap.Error(err))
	}
}
