package session

import "github.com/ettoremodina/bombbuster/engine"

// ObfSlot is one (player, position) slot's candidate set from a
// particular seat's perspective.
type ObfSlot struct {
	Player   int             `json:"player"`
	Position int             `json:"position"`
	Values   []engine.Value  `json:"values"`
	Certain  bool            `json:"certain"`
}

// ObfState is the full per-seat snapshot sent on EventSyncState, the
// session-layer analogue of the teacher's ObfGameState — generalized from
// "obfuscated cards" to "obfuscated wire domains".
type ObfState struct {
	Seat      int       `json:"seat"`
	Slots     []ObfSlot `json:"slots"`
	Strikes   int       `json:"strikes"`
	LMax      int       `json:"lMax"`
	Won       bool      `json:"won"`
	Lost      bool      `json:"lost"`
}

// ObfuscatedState builds the snapshot seat should receive: every slot's
// current domain as seen from seat's own Orchestrator.
func (s *Session) ObfuscatedState(seat int) ObfState {
	orch := s.orchestrators[seat]
	cfg := s.cfg

	var slots []ObfSlot
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			values := orch.GetDomain(p, j)
			slots = append(slots, ObfSlot{
				Player:   p,
				Position: j,
				Values:   values,
				Certain:  len(values) == 1,
			})
		}
	}

	return ObfState{
		Seat:    seat,
		Slots:   slots,
		Strikes: orch.Strikes(),
		LMax:    cfg.LMax,
		Won:     orch.IsWin(),
		Lost:    orch.IsLost(),
	}
}
