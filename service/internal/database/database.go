// Package database persists accounts, sessions, and event logs to
// Postgres via jackc/pgx/v5, matching the teacher's persistence stack.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ettoremodina/bombbuster/service/internal/models"
)

// schema is applied once at startup. It is intentionally idempotent
// (CREATE TABLE IF NOT EXISTS) so repeated boots of the same database are
// safe, matching the teacher's preference for startup-time migration over
// a separate migration tool.
const schema = `
CREATE TABLE IF NOT EXISTS players (
	id UUID PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS game_sessions (
	id UUID PRIMARY KEY,
	host_id UUID NOT NULL REFERENCES players(id),
	status TEXT NOT NULL,
	n_players INT NOT NULL,
	hand_size INT NOT NULL,
	strikes INT NOT NULL DEFAULT 0,
	l_max INT NOT NULL,
	mode TEXT NOT NULL,
	deck JSONB NOT NULL,
	wires JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS player_seats (
	session_id UUID NOT NULL REFERENCES game_sessions(id),
	player_id UUID NOT NULL REFERENCES players(id),
	seat INT NOT NULL,
	PRIMARY KEY (session_id, seat)
);

CREATE TABLE IF NOT EXISTS session_events (
	session_id UUID NOT NULL REFERENCES game_sessions(id),
	seq INT NOT NULL,
	payload JSONB NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, seq)
);
`

// Store wraps a pgxpool.Pool with the queries the service layer needs.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies schema, returning a ready Store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: connecting: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: applying schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// CreatePlayer inserts a new account.
func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO players (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Username, p.PasswordHash, p.CreatedAt)
	return err
}

// GetPlayerByUsername looks up an account by username.
func (s *Store) GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM players WHERE username = $1`, username)
	var p models.Player
	if err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateSession inserts a new game session row, including the deck
// composition and per-seat starting wires needed to reconstruct the
// session's engine.Config and Orchestrators after a restart.
func (s *Store) CreateSession(ctx context.Context, gs *models.GameSession) error {
	deckBuf, err := json.Marshal(gs.Deck)
	if err != nil {
		return fmt.Errorf("database: marshaling deck: %w", err)
	}
	wiresBuf, err := json.Marshal(gs.Wires)
	if err != nil {
		return fmt.Errorf("database: marshaling wires: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, host_id, status, n_players, hand_size, strikes, l_max, mode, deck, wires, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		gs.ID, gs.HostID, gs.Status, gs.NPlayers, gs.HandSize, gs.Strikes, gs.LMax, gs.Mode, deckBuf, wiresBuf, gs.CreatedAt)
	return err
}

// scanSession decodes one game_sessions row, including its JSONB deck
// and wires columns, into a models.GameSession.
func scanSession(row pgx.Row) (*models.GameSession, error) {
	var gs models.GameSession
	var deckBuf, wiresBuf []byte
	if err := row.Scan(&gs.ID, &gs.HostID, &gs.Status, &gs.NPlayers, &gs.HandSize, &gs.Strikes, &gs.LMax,
		&gs.Mode, &deckBuf, &wiresBuf, &gs.CreatedAt, &gs.EndedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(deckBuf, &gs.Deck); err != nil {
		return nil, fmt.Errorf("database: decoding deck: %w", err)
	}
	if err := json.Unmarshal(wiresBuf, &gs.Wires); err != nil {
		return nil, fmt.Errorf("database: decoding wires: %w", err)
	}
	return &gs, nil
}

const sessionColumns = `id, host_id, status, n_players, hand_size, strikes, l_max, mode, deck, wires, created_at, ended_at`

// GetSession loads one session row by id, for a single-session reconnect.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
	gs, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return gs, err
}

// ListActiveSessions returns every session still in progress (pending or
// active), for rebuilding in-memory Sessions on service startup.
func (s *Store) ListActiveSessions(ctx context.Context) ([]models.GameSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE status IN ($1, $2)`,
		models.SessionPending, models.SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameSession
	for rows.Next() {
		gs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gs)
	}
	return out, rows.Err()
}

// UpdateSessionStatus updates a session's status and strike count, and
// stamps ended_at if the new status is terminal.
func (s *Store) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, strikes int) error {
	var endedAt *time.Time
	if status == models.SessionWon || status == models.SessionLost || status == models.SessionAbandoned {
		now := time.Now()
		endedAt = &now
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = $1, strikes = $2, ended_at = $3 WHERE id = $4`,
		status, strikes, endedAt, id)
	return err
}

// AssignSeat records a player's seat within a session.
func (s *Store) AssignSeat(ctx context.Context, seat *models.PlayerSeat) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO player_seats (session_id, player_id, seat) VALUES ($1, $2, $3)`,
		seat.SessionID, seat.PlayerID, seat.Seat)
	return err
}

// AppendEvent persists one EventLog entry for replay after a restart.
func (s *Store) AppendEvent(ctx context.Context, sessionID uuid.UUID, seq int, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("database: marshaling event payload: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_events (session_id, seq, payload) VALUES ($1, $2, $3)`,
		sessionID, seq, buf)
	return err
}

// LoadEvents returns every persisted event for a session, ordered by
// sequence number, for EventLog replay on reconnect.
func (s *Store) LoadEvents(ctx context.Context, sessionID uuid.UUID) ([]models.StoredEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, seq, payload, logged_at FROM session_events WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredEvent
	for rows.Next() {
		var e models.StoredEvent
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Payload, &e.LoggedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
