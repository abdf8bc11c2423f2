package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Checksum returns a SHA-256 over a canonical rendering of the session. Two
// sessions built from the same seed and the same commands share a checksum, which
// is how replays of the command log are verified.
func (s *Session) Checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

// canonical renders every deterministic field; map keys are sorted and random
// identifiers (session and pending IDs) are left out.
func (s *Session) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%d\n", s.room, s.admin, s.state, s.TurnNumber())
	fmt.Fprintf(&buf, "CURRENT:%s\n", s.Current())

	for _, p := range s.players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d|%d|%d|%t\n",
			p.ID, p.Nickname, p.Actions, p.Buys, p.BonusTreasure, p.Spent, p.Bought)
		fmt.Fprintf(&buf, "  DECK:%s\n", strings.Join(p.Deck(), ","))
		fmt.Fprintf(&buf, "  HAND:%s\n", strings.Join(p.Hand(), ","))
		fmt.Fprintf(&buf, "  DISCARD:%s\n", strings.Join(p.DiscardPile(), ","))
		fmt.Fprintf(&buf, "  IN_PLAY:%s\n", strings.Join(p.InPlay(), ","))
	}

	counts := s.board.Counts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&buf, "PILE:%s|%d|%t\n", name, counts[name], s.board.IsEmpty(name))
	}

	trash := s.board.Trashed()
	sort.Strings(trash)
	fmt.Fprintf(&buf, "TRASH:%s\n", strings.Join(trash, ","))

	for _, action := range s.pending.List() {
		fmt.Fprintf(&buf, "PENDING:%s|%d|%t|%s\n",
			action.PlayerID, action.Remaining, action.Public, action.Description)
	}
	return buf.String()
}
