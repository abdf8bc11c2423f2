package game

import (
	"github.com/sparkplay/dominion-server-go/internal/game/rules"
)

// Summary is a read-only overview of a session, used by the admin listing.
// Waiting counts the responses each player still owes, keyed by nickname.
type Summary struct {
	GameID     string         `json:"game_id"`
	Room       string         `json:"room"`
	State      string         `json:"state"`
	Admin      string         `json:"admin"`
	Players    []PlayerInfo   `json:"players"`
	Current    string         `json:"current,omitempty"`
	Phase      string         `json:"phase,omitempty"`
	Turn       int            `json:"turn"`
	Pending    int            `json:"pending"`
	Waiting    map[string]int `json:"waiting,omitempty"`
	EmptyPiles int            `json:"empty_piles"`
	Checksum   string         `json:"checksum"`
}

// Players lists the seated players, in turn order once the game has started.
func (s *Session) Players() []PlayerInfo {
	out := make([]PlayerInfo, len(s.players))
	for i, p := range s.players {
		out[i] = PlayerInfo{ID: p.ID, Nickname: p.Nickname}
	}
	return out
}

// Current returns the player whose turn it is, or "" outside of play.
func (s *Session) Current() string {
	if s.turns == nil {
		return ""
	}
	return s.turns.Current()
}

// TurnNumber returns the 1-based turn in progress, or 0 before the start.
func (s *Session) TurnNumber() int {
	if s.turns == nil {
		return 0
	}
	return s.turns.TurnNumber()
}

// Phase reports whether the current player is still playing actions or has
// moved on to buying.
func (s *Session) Phase() rules.Phase {
	p, ok := s.byID[s.Current()]
	if ok && p.Bought {
		return rules.PhaseBuy
	}
	return rules.PhaseAction
}

// Pending returns the outstanding pending actions, oldest first.
func (s *Session) Pending() []rules.PendingAction {
	return s.pending.List()
}

// WaitingOn reports whether the session needs a response from the player on
// the given channel.
func (s *Session) WaitingOn(playerID string, public bool) bool {
	return s.pending.Waiting(playerID, public)
}

// SupplyCounts returns a copy of the supply pile counts.
func (s *Session) SupplyCounts() map[string]int {
	return s.board.Counts()
}

// HandOf returns a copy of a player's hand.
func (s *Session) HandOf(id string) ([]string, bool) {
	p, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return p.Hand(), true
}

// Summarize builds the admin overview of the session.
func (s *Session) Summarize() Summary {
	sum := Summary{
		GameID:     s.id,
		Room:       s.room,
		State:      s.state.String(),
		Admin:      s.admin,
		Players:    s.Players(),
		Current:    s.Current(),
		Turn:       s.TurnNumber(),
		Pending:    s.pending.Len(),
		EmptyPiles: s.board.EmptyPiles(),
		Checksum:   s.Checksum(),
	}
	if s.state == StateProgress {
		sum.Phase = s.Phase().String()
	}
	for _, p := range s.players {
		if owed := len(s.pending.ForPlayer(p.ID)); owed > 0 {
			if sum.Waiting == nil {
				sum.Waiting = make(map[string]int)
			}
			sum.Waiting[p.Nickname] = owed
		}
	}
	return sum
}
