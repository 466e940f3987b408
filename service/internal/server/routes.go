package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ettoremodina/bombbuster/engine"
	"github.com/ettoremodina/bombbuster/service/internal/auth"
	"github.com/ettoremodina/bombbuster/service/internal/models"
	"github.com/ettoremodina/bombbuster/service/internal/session"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string    `json:"token"`
	PlayerID uuid.UUID `json:"playerId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.WithError(err).Error("hashing password")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	player := &models.Player{ID: uuid.New(), Username: req.Username, PasswordHash: hash, CreatedAt: time.Now()}
	if err := s.store.CreatePlayer(r.Context(), player); err != nil {
		s.log.WithError(err).Warn("creating player")
		http.Error(w, "username unavailable", http.StatusConflict)
		return
	}

	token, err := auth.IssueToken(s.jwtSecret, player.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, PlayerID: player.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	player, err := s.store.GetPlayerByUsername(r.Context(), req.Username)
	if err != nil {
		s.log.WithError(err).Error("looking up player")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if player == nil || !auth.CheckPassword(player.PasswordHash, req.Password) {
		http.Error(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, err := auth.IssueToken(s.jwtSecret, player.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, PlayerID: player.ID})
}

type createSessionRequest struct {
	NPlayers int                  `json:"nPlayers"`
	LMax     int                  `json:"lMax"`
	Mode     string               `json:"mode"`
	Deck     map[engine.Value]int `json:"deck"`
	Wires    [][]engine.Value     `json:"wires"`
}

type sessionResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	hostID, ok := playerIDFromContext(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	mode := engine.ModeSimulation
	if req.Mode == "IRL" {
		mode = engine.ModeIRL
	}

	cfg, err := engine.NewConfig(req.Deck, req.NPlayers, req.LMax, mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.New(uuid.New(), hostID, cfg, req.Wires)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess.SetStore(s.store)
	sess.SetCache(s.sigCache)
	s.wireBroadcast(sess)

	gs := &models.GameSession{
		ID: sess.ID, HostID: hostID, Status: models.SessionPending,
		NPlayers: cfg.N, HandSize: cfg.L, LMax: cfg.LMax, Mode: mode.String(),
		Deck: req.Deck, Wires: req.Wires,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateSession(r.Context(), gs); err != nil {
		s.log.WithError(err).Error("persisting session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID})
}

// wireBroadcast attaches a Session's callbacks to this Server's WebSocket
// fan-out, so every engine.Event the Session applies reaches connected
// clients without the session package depending on the transport layer.
func (s *Server) wireBroadcast(sess *session.Session) {
	sess.BroadcastFn = func(ev session.SessionEvent) {
		buf, err := json.Marshal(ev)
		if err != nil {
			return
		}
		s.broadcastAll(sess.ID, buf)
	}
	sess.BroadcastToSeatFn = func(seat int, ev session.SessionEvent) {
		buf, err := json.Marshal(ev)
		if err != nil {
			return
		}
		// Per-seat sync_state fan-out: the simple Server keeps one socket
		// set per session rather than per seat, so every connected client
		// currently receives every seat's obfuscated state and is
		// responsible for filtering to its own. A per-seat socket map is
		// a natural extension once client identity is threaded through
		// the WebSocket handshake.
		s.broadcastAll(sess.ID, buf)
	}
}

func (s *Server) lookupSession(id uuid.UUID) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

type callRequest struct {
	Caller   int          `json:"caller"`
	Target   int          `json:"target"`
	Position int          `json:"position"`
	Value    engine.Value `json:"value"`
	Success  bool         `json:"success"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := sess.Call(req.Caller, req.Target, req.Position, req.Value, req.Success); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type swapRequest struct {
	P1        int          `json:"p1"`
	P2        int          `json:"p2"`
	InitPos1  int          `json:"initPos1"`
	InitPos2  int          `json:"initPos2"`
	FinalPos1 int          `json:"finalPos1"`
	FinalPos2 int          `json:"finalPos2"`
	Value1    engine.Value `json:"value1"`
	Value2    engine.Value `json:"value2"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := sess.Swap(req.P1, req.P2, req.InitPos1, req.InitPos2, req.FinalPos1, req.FinalPos2, req.Value1, req.Value2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type signalRequest struct {
	Kind     string            `json:"kind"` // certain|absent|copycount|adjacency
	Player   int               `json:"player"`
	Position int               `json:"position"`
	Value    engine.Value      `json:"value"`
	Class    engine.CopyClass  `json:"class"`
	Relation engine.AdjRelation `json:"relation"`
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Kind {
	case "certain":
		err = sess.SignalCertain(req.Player, req.Position, req.Value)
	case "absent":
		err = sess.SignalAbsent(req.Player, req.Value)
	case "copycount":
		err = sess.SignalCopyCount(req.Player, req.Position, req.Class)
	case "adjacency":
		err = sess.SignalAdjacency(req.Player, req.Position, req.Relation)
	default:
		http.Error(w, "unknown signal kind", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.lookupSession(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
