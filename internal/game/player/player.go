// Package player implements one player's card zones and per-turn counters.
package player

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
)

// HandSize is the number of cards drawn for a new hand.
const HandSize = 5

// Zone identifies one of a player's card containers.
type Zone int

const (
	ZoneDeck Zone = iota
	ZoneHand
	ZoneDiscard
	ZoneInPlay
)

var zoneNames = map[Zone]string{
	ZoneDeck:    "DECK",
	ZoneHand:    "HAND",
	ZoneDiscard: "DISCARD",
	ZoneInPlay:  "IN_PLAY",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// Player holds a player's zones and turn counters. The deck is a stack whose top is
// the last element. Zones store card names; cards of one type are interchangeable.
type Player struct {
	ID       string
	Nickname string

	Actions       int
	Buys          int
	BonusTreasure int
	Spent         int
	Bought        bool

	deck    []string
	hand    []string
	discard []string
	inPlay  []string

	catalog *cards.Catalog
	rng     *rand.Rand
}

// New creates a player with a shuffled opening deck and draws the first hand.
func New(id, nickname string, catalog *cards.Catalog, rng *rand.Rand) *Player {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = id
	}
	p := &Player{
		ID:       id,
		Nickname: nickname,
		deck:     catalog.StartingDeck(),
		hand:     make([]string, 0, HandSize),
		discard:  make([]string, 0),
		inPlay:   make([]string, 0),
		catalog:  catalog,
		rng:      rng,
	}
	p.shuffle(p.deck)
	p.NewHand()
	return p
}

func (p *Player) shuffle(pile []string) {
	p.rng.Shuffle(len(pile), func(i, j int) { pile[i], pile[j] = pile[j], pile[i] })
}

// DrawCard moves the top card of the deck into the hand, reshuffling the discard
// pile into a new deck when the deck is empty. It returns false when no card is left.
func (p *Player) DrawCard() (string, bool) {
	if len(p.deck) == 0 {
		if len(p.discard) == 0 {
			return "", false
		}
		p.deck = p.discard
		p.discard = make([]string, 0)
		p.shuffle(p.deck)
	}

	top := len(p.deck) - 1
	card := p.deck[top]
	p.deck = p.deck[:top]
	p.hand = append(p.hand, card)
	return card, true
}

// Draw draws up to n cards and returns how many were drawn.
func (p *Player) Draw(n int) int {
	drawn := 0
	for i := 0; i < n; i++ {
		if _, ok := p.DrawCard(); !ok {
			break
		}
		drawn++
	}
	return drawn
}

// NewHand draws a fresh hand and resets the turn counters.
// It reports true when the player ran out of cards before drawing a full hand.
func (p *Player) NewHand() (short bool) {
	drawn := p.Draw(HandSize)
	p.Actions = 1
	p.Buys = 1
	p.BonusTreasure = 0
	p.Spent = 0
	p.Bought = false
	return drawn < HandSize
}

// EndTurn discards everything in play and in hand, then draws a new hand.
func (p *Player) EndTurn() (short bool) {
	p.discard = append(p.discard, p.inPlay...)
	p.discard = append(p.discard, p.hand...)
	p.inPlay = p.inPlay[:0]
	p.hand = p.hand[:0]
	return p.NewHand()
}

// CanPlay reports whether the named card may be played now, with a reason when not.
func (p *Player) CanPlay(name string) (bool, string) {
	if p.Actions < 1 {
		return false, "You have no more actions left"
	}
	def, ok := p.catalog.Lookup(name)
	if !ok || !def.IsAction() {
		return false, "Only action cards can be played"
	}
	if p.Bought {
		return false, "You can't play an action card after buying a card"
	}
	if p.indexInHand(def.Name) < 0 {
		return false, fmt.Sprintf("You don't have a %s", def.Name)
	}
	return true, ""
}

func (p *Player) indexInHand(name string) int {
	for i, card := range p.hand {
		if card == name {
			return i
		}
	}
	return -1
}

func removeAt(pile []string, i int) []string {
	return append(pile[:i], pile[i+1:]...)
}

// PlayFromHand moves the card from hand to in-play and spends one action.
func (p *Player) PlayFromHand(name string) bool {
	i := p.indexInHand(name)
	if i < 0 || p.Actions < 1 {
		return false
	}
	p.hand = removeAt(p.hand, i)
	p.inPlay = append(p.inPlay, name)
	p.Actions--
	return true
}

// Discard moves one copy of the card from hand to the discard pile.
func (p *Player) Discard(name string) bool {
	i := p.indexInHand(name)
	if i < 0 {
		return false
	}
	p.hand = removeAt(p.hand, i)
	p.discard = append(p.discard, name)
	return true
}

// Gain puts a card into the given zone. Gains to the deck land on top.
func (p *Player) Gain(name string, zone Zone) {
	switch zone {
	case ZoneHand:
		p.hand = append(p.hand, name)
	case ZoneDeck:
		p.deck = append(p.deck, name)
	case ZoneInPlay:
		p.inPlay = append(p.inPlay, name)
	default:
		p.discard = append(p.discard, name)
	}
}

// Grant adds an action card's bonus to the turn counters and draws its cards.
// It returns how many bonus cards could actually be drawn.
func (p *Player) Grant(bonus cards.Bonus) int {
	p.Actions += bonus.Actions
	p.Buys += bonus.Buys
	p.BonusTreasure += bonus.Treasure
	return p.Draw(bonus.Cards)
}

// Treasure is the spendable treasure: treasure cards in hand plus bonus treasure,
// less what was already spent this turn.
func (p *Player) Treasure() int {
	total := p.BonusTreasure - p.Spent
	for _, name := range p.hand {
		if def, ok := p.catalog.Lookup(name); ok && def.IsTreasure() {
			total += def.Value
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// Spend records a purchase of the given cost.
func (p *Player) Spend(cost int) {
	p.Spent += cost
	p.Bought = true
	p.Buys--
}

// Protected reports whether the player is immune to attacks. No card grants
// protection yet.
func (p *Player) Protected() bool {
	return false
}

// Hand returns a copy of the hand.
func (p *Player) Hand() []string { return append([]string(nil), p.hand...) }

// Deck returns a copy of the deck, top card last.
func (p *Player) Deck() []string { return append([]string(nil), p.deck...) }

// DiscardPile returns a copy of the discard pile.
func (p *Player) DiscardPile() []string { return append([]string(nil), p.discard...) }

// InPlay returns a copy of the cards played this turn.
func (p *Player) InPlay() []string { return append([]string(nil), p.inPlay...) }

// HandSize returns the number of cards in hand.
func (p *Player) HandSize() int { return len(p.hand) }

// Counts tallies every card the player owns across all zones.
func (p *Player) Counts() map[string]int {
	counts := make(map[string]int)
	for _, zone := range [][]string{p.deck, p.hand, p.discard, p.inPlay} {
		for _, name := range zone {
			counts[name]++
		}
	}
	return counts
}

// HandSummary renders the hand grouped by category followed by the turn counters.
func (p *Player) HandSummary() string {
	var actions, treasures, victories []string
	for _, name := range p.hand {
		def, ok := p.catalog.Lookup(name)
		if !ok {
			continue
		}
		switch def.Category {
		case cards.CategoryAction:
			actions = append(actions, name)
		case cards.CategoryTreasure:
			treasures = append(treasures, name)
		case cards.CategoryVictory:
			victories = append(victories, name)
		}
	}

	var sb strings.Builder
	if len(actions) > 0 {
		fmt.Fprintf(&sb, "**Actions**: %s\n\n", strings.Join(actions, ", "))
	}
	if len(treasures) > 0 {
		fmt.Fprintf(&sb, "**Treasures**: %s\n\n", strings.Join(treasures, ", "))
	}
	if len(victories) > 0 {
		fmt.Fprintf(&sb, "**Victories**: %s\n\n", strings.Join(victories, ", "))
	}
	fmt.Fprintf(&sb, "**actions** %d - **treasure** %d - **buys** %d", p.Actions, p.Treasure(), p.Buys)
	return sb.String()
}
