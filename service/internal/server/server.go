// Package server exposes the HTTP and WebSocket API that fronts a
// session.Session, built on net/http plus coder/websocket for the
// real-time channel, matching the teacher's transport stack.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ettoremodina/bombbuster/engine"
	"github.com/ettoremodina/bombbuster/service/internal/auth"
	"github.com/ettoremodina/bombbuster/service/internal/cache"
	"github.com/ettoremodina/bombbuster/service/internal/database"
	"github.com/ettoremodina/bombbuster/service/internal/session"
)

// Server holds every shared dependency the HTTP handlers need.
type Server struct {
	log        *logrus.Logger
	store      *database.Store
	sigCache   *cache.SignatureCache // nil when REDIS_ADDR is unset; signature caching then stays in-process only
	jwtSecret  string
	originList map[string]bool

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
	sockets  map[uuid.UUID]map[*wsClient]struct{} // sessionID -> connected clients
}

// New builds a Server ready to have its routes registered. sigCache may be
// nil, in which case every Session relies solely on its in-process
// per-Orchestrator SignatureCache.
func New(logger *logrus.Logger, store *database.Store, sigCache *cache.SignatureCache, jwtSecret string, allowedOrigins []string) *Server {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			origins[o] = true
		}
	}
	return &Server{
		log:        logger,
		store:      store,
		sigCache:   sigCache,
		jwtSecret:  jwtSecret,
		originList: origins,
		sessions:   make(map[uuid.UUID]*session.Session),
		sockets:    make(map[uuid.UUID]map[*wsClient]struct{}),
	}
}

// RestoreSessions rebuilds every in-memory Session still pending or active
// in the store, replaying each one's persisted EventLog — the service
// restart path that makes database.Store.AppendEvent/LoadEvents load-bearing
// rather than write-only.
func (s *Server) RestoreSessions(ctx context.Context) error {
	rows, err := s.store.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("server: listing active sessions: %w", err)
	}
	for _, gs := range rows {
		mode := engine.ModeSimulation
		if gs.Mode == "IRL" {
			mode = engine.ModeIRL
		}
		cfg, err := engine.NewConfig(gs.Deck, gs.NPlayers, gs.LMax, mode)
		if err != nil {
			return fmt.Errorf("server: restoring session %s: rebuilding config: %w", gs.ID, err)
		}
		sess, err := session.Reconstruct(ctx, s.store, gs.ID, gs.HostID, cfg, gs.Wires)
		if err != nil {
			return fmt.Errorf("server: restoring session %s: %w", gs.ID, err)
		}
		s.wireBroadcast(sess)
		sess.SetCache(s.sigCache)

		s.mu.Lock()
		s.sessions[sess.ID] = sess
		s.mu.Unlock()
	}
	s.log.WithField("count", len(rows)).Info("restored active sessions")
	return nil
}

// Routes builds the HTTP multiplexer per SPEC_FULL.md §6's route table.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/sessions", s.requireAuth(s.handleCreateSession))
	mux.HandleFunc("POST /api/sessions/{id}/call", s.requireAuth(s.handleCall))
	mux.HandleFunc("POST /api/sessions/{id}/swap", s.requireAuth(s.handleSwap))
	mux.HandleFunc("POST /api/sessions/{id}/signal", s.requireAuth(s.handleSignal))
	mux.HandleFunc("GET /ws/{id}", s.handleWebSocket)
	return s.withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withCORS mirrors the allowlist-based CORS middleware pattern the
// reusable card-game framework example uses for its own WS server.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originList[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth wraps a handler with bearer-token validation, stashing the
// authenticated player ID in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		playerID, err := auth.ParseToken(s.jwtSecret, tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), playerIDKey, playerID)
		next(w, r.WithContext(ctx))
	}
}

type contextKey string

const playerIDKey contextKey = "playerID"

func playerIDFromContext(r *http.Request) (uuid.UUID, bool) {
	v, ok := r.Context().Value(playerIDKey).(uuid.UUID)
	return v, ok
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// broadcastAll pushes a message to every socket attached to sessionID.
func (s *Server) broadcastAll(sessionID uuid.UUID, payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.sockets[sessionID] {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// registerSocket adds a client to a session's broadcast set.
func (s *Server) registerSocket(sessionID uuid.UUID, c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sockets[sessionID] == nil {
		s.sockets[sessionID] = make(map[*wsClient]struct{})
	}
	s.sockets[sessionID][c] = struct{}{}
}

func (s *Server) unregisterSocket(sessionID uuid.UUID, c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets[sessionID], c)
}

// wsClient is one connected WebSocket, pumped by a dedicated writer
// goroutine the way the reusable card-game framework's Client/Hub does.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump(ctx context.Context) {
	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
