// Package server serves the dungeon over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/thornwood/internal/config"
	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	graph        *dungeon.Graph
	cfg          config.ServerConfig
	router       chi.Router
	httpServer   *http.Server
	connLimiter  *ConnLimiter
	clients      map[*WebSocketClient]struct{}
	mu           sync.Mutex
	shutdownOnce sync.Once
	StartTime    time.Time
}

func NewServer(graph *dungeon.Graph, cfg config.ServerConfig) *Server {
	s := &Server{
		graph:       graph,
		cfg:         cfg,
		connLimiter: NewConnLimiter(cfg.Connections),
		clients:     make(map[*WebSocketClient]struct{}),
		StartTime:   time.Now(),
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/map", s.handleMap)
	r.Get("/rooms/{x}/{y}", s.handleRoom)
	r.Get("/ws", s.handleWebSocketUpgrade)

	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	logger.Info("Server listening", "address", listener.Addr().String())

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// handleWebSocketUpgrade upgrades GET /ws to a WebSocket session.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warning("WebSocket upgrade failed", "client_ip", clientIP, "error", err)
		s.connLimiter.Release(clientIP)
		return
	}
	if s.cfg.WebSocket.MaxMessageSize > 0 {
		wsConn.SetReadLimit(int64(s.cfg.WebSocket.MaxMessageSize))
	}

	go s.handleWebSocketConnection(NewWebSocketClient(wsConn), clientIP)
}

// handleWebSocketConnection runs one session: the spawn room is sent first,
// then every request line gets exactly one reply.
func (s *Server) handleWebSocketConnection(client *WebSocketClient, clientIP string) {
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		s.connLimiter.Release(clientIP)
		client.Close()
		logger.Info("Client disconnected", "client_ip", clientIP)
	}()

	logger.Info("Client connected", "client_ip", clientIP, "remote_addr", client.RemoteAddr())

	sess, err := newSession(s.graph)
	if err != nil {
		logger.Error("Failed to start session", "client_ip", clientIP, "error", err)
		client.WriteJSON(errorReply("failed to start session"))
		return
	}
	if err := client.WriteJSON(sess.roomReply()); err != nil {
		return
	}

	for {
		line, err := client.ReadLine()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warning("WebSocket read failed", "client_ip", clientIP, "error", err)
			}
			return
		}
		if err := client.WriteJSON(sess.handle(line)); err != nil {
			logger.Warning("WebSocket write failed", "client_ip", clientIP, "error", err)
			return
		}
	}
}

// Shutdown stops accepting requests and closes open sessions. Safe to call
// more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}

		s.mu.Lock()
		for client := range s.clients {
			client.Close()
		}
		s.mu.Unlock()

		logger.Info("Server shutdown complete", "uptime", time.Since(s.StartTime).Round(time.Second))
	})
}
