package rules

import (
	"fmt"
	"strings"
)

// Phase represents the part of a turn the current player is in.
type Phase int

const (
	PhaseAction Phase = iota
	PhaseBuy
)

var phaseNames = map[Phase]string{
	PhaseAction: "ACTION",
	PhaseBuy:    "BUY",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// EmptyPileLimit is the number of emptied supply piles that ends the game.
const EmptyPileLimit = 3

// EndCondition exposes the supply figures the end-of-game predicate reads.
type EndCondition interface {
	EmptyPiles() int
	Remaining(name string) int
}

// Coordinator tracks the fixed turn order and whose turn it is.
type Coordinator struct {
	order     []string
	index     int
	turn      int
	end       EndCondition
	finalPile string
}

// NewCoordinator creates a coordinator whose first turn belongs to order[0].
// The order is copied and never changes afterwards.
func NewCoordinator(order []string, end EndCondition, finalPile string) *Coordinator {
	cleaned := make([]string, 0, len(order))
	for _, id := range order {
		cleaned = append(cleaned, strings.TrimSpace(id))
	}
	return &Coordinator{
		order:     cleaned,
		index:     0,
		turn:      1,
		end:       end,
		finalPile: finalPile,
	}
}

// Current returns the player whose turn it is.
func (c *Coordinator) Current() string {
	if len(c.order) == 0 {
		return ""
	}
	return c.order[c.index]
}

// TurnNumber returns the 1-based number of the turn in progress.
func (c *Coordinator) TurnNumber() int {
	return c.turn
}

// Order returns the turn order.
func (c *Coordinator) Order() []string {
	return append([]string(nil), c.order...)
}

// GameOver reports whether three or more piles are empty or the final pile is gone.
func (c *Coordinator) GameOver() bool {
	if c.end == nil {
		return false
	}
	return c.end.EmptyPiles() >= EmptyPileLimit || c.end.Remaining(c.finalPile) == 0
}

// Advance moves to the next player. When the game is over it leaves the cursor
// where it is and returns ok == false.
func (c *Coordinator) Advance() (next string, ok bool) {
	if c.GameOver() || len(c.order) == 0 {
		return "", false
	}
	c.index = (c.index + 1) % len(c.order)
	c.turn++
	return c.order[c.index], true
}

// Opponents lists every other player, starting after the current player and
// wrapping around, stopping before the current player.
func (c *Coordinator) Opponents() []string {
	n := len(c.order)
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n-1)
	for i := (c.index + 1) % n; i != c.index; i = (i + 1) % n {
		out = append(out, c.order[i])
	}
	return out
}
