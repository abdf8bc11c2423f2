// Package cards holds the immutable card catalog and card-effect resolution.
package cards

import (
	"errors"
	"fmt"
)

// Category is the tagged variant every card belongs to.
type Category int

const (
	CategoryTreasure Category = iota
	CategoryVictory
	CategoryAction
)

var categoryNames = map[Category]string{
	CategoryTreasure: "TREASURE",
	CategoryVictory:  "VICTORY",
	CategoryAction:   "ACTION",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CATEGORY_%d", int(c))
}

// Bonus is the resource grant an action card gives its player.
type Bonus struct {
	Actions  int
	Buys     int
	Cards    int
	Treasure int
}

// Response names the kind of answer a pending action expects from its target.
type Response string

const (
	// ResponseDiscard asks the target to discard a named card from hand.
	ResponseDiscard Response = "DISCARD"
)

// OpponentFunc applies an action card's effect to one opponent.
type OpponentFunc func(t Table, actor, target string)

// ActionSpec is the effect data carried by Action cards.
type ActionSpec struct {
	Bonus       Bonus
	Attack      bool
	SeedsCurses bool
	Opponent    OpponentFunc
	Text        string
}

// Definition describes one card type. Definitions are shared and never mutated.
type Definition struct {
	Name        string
	Cost        int
	Purchasable bool
	Category    Category
	Value       int
	Points      int
	Minted      int
	Kingdom     bool
	Action      *ActionSpec
}

// IsAction reports whether the card can be played.
func (d *Definition) IsAction() bool {
	return d != nil && d.Category == CategoryAction && d.Action != nil
}

// IsTreasure reports whether the card contributes treasure in hand.
func (d *Definition) IsTreasure() bool {
	return d != nil && d.Category == CategoryTreasure
}

// IsAttack reports whether the card targets opponents as an attack.
func (d *Definition) IsAttack() bool {
	return d.IsAction() && d.Action.Attack
}

// Table is the slice of game-session state that card effects act on.
type Table interface {
	// Grant adds the bonus to the player's turn counters and draws bonus cards.
	Grant(playerID string, bonus Bonus)
	// Opponents lists every other player in turn order, starting after the current player.
	Opponents() []string
	// Protected reports whether the player is immune to attacks.
	Protected(playerID string) bool
	HandSize(playerID string) int
	Hand(playerID string) []string
	// Gain moves one card from the supply to the player's discard pile.
	Gain(playerID, card string) error
	// Draw draws up to n cards into the player's hand and returns how many were drawn.
	Draw(playerID string, n int) int
	// Require queues a response the target must give before play continues.
	Require(playerID string, response Response, count int, description string, public bool)
	// Tell sends a direct message to a player.
	Tell(playerID, text string)
}

var (
	// ErrNotAction is returned when resolving a card that is not an action.
	ErrNotAction = errors.New("only action cards can be played")
	// ErrPileEmpty is returned by Table.Gain when the pile has run out.
	ErrPileEmpty = errors.New("no cards left on that pile")
)

// Resolve applies an action card played by actor: the bonus first, then the
// opponent effect for each opponent in turn order. Attacks skip protected players.
func Resolve(t Table, def *Definition, actor string) error {
	if !def.IsAction() {
		return ErrNotAction
	}

	t.Grant(actor, def.Action.Bonus)

	if def.Action.Opponent == nil {
		return nil
	}
	for _, target := range t.Opponents() {
		if target == actor {
			continue
		}
		if def.IsAttack() && t.Protected(target) {
			continue
		}
		def.Action.Opponent(t, actor, target)
	}
	return nil
}
