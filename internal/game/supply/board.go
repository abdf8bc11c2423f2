// Package supply tracks the shared card piles, the trash and emptied piles of one game.
package supply

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
)

var (
	// ErrExhausted is returned when taking from a pile that is already at zero.
	ErrExhausted = cards.ErrPileEmpty
	// ErrUnknownPile is returned for card types that are not part of this supply.
	ErrUnknownPile = errors.New("card is not in the supply")
)

// Board maps card types to their remaining counts.
type Board struct {
	mu      sync.RWMutex
	catalog *cards.Catalog
	counts  map[string]int
	order   []string
	empty   map[string]bool
	trash   []string
}

// New creates an empty board for the catalog. Call Initialize before play.
func New(catalog *cards.Catalog) *Board {
	return &Board{
		catalog: catalog,
		counts:  make(map[string]int),
		order:   make([]string, 0, 16),
		empty:   make(map[string]bool),
		trash:   make([]string, 0),
	}
}

// Initialize seeds every pile for a game with playerCount players.
// Victory piles hold 8 cards for two players and 12 otherwise; treasure piles hold the
// minted total less the copies dealt into starting decks; kingdomSize random kingdom
// cards get pileSize cards each. A curse-giving kingdom card adds (players-1)*10 curses.
func (b *Board) Initialize(playerCount, kingdomSize, pileSize int, rng *rand.Rand) error {
	if playerCount < 1 {
		return fmt.Errorf("player count must be positive")
	}

	// Piles are staged and only installed once every count is valid.
	staged := piles{counts: make(map[string]int)}
	victory := 12
	if playerCount == 2 {
		victory = 8
	}
	for _, def := range b.catalog.Victories() {
		staged.seed(def.Name, victory)
	}
	for _, def := range b.catalog.Treasures() {
		remaining := def.Minted - b.catalog.StartingCopies(def.Name)*playerCount
		if remaining < 0 {
			return fmt.Errorf("not enough %s for %d players", def.Name, playerCount)
		}
		staged.seed(def.Name, remaining)
	}

	kingdom := b.catalog.Kingdom()
	rng.Shuffle(len(kingdom), func(i, j int) { kingdom[i], kingdom[j] = kingdom[j], kingdom[i] })
	if kingdomSize < len(kingdom) {
		kingdom = kingdom[:kingdomSize]
	}
	for _, def := range kingdom {
		staged.seed(def.Name, pileSize)
		if def.Action.SeedsCurses && b.catalog.Curse() != "" {
			staged.seed(b.catalog.Curse(), (playerCount-1)*10)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts = staged.counts
	b.order = staged.order
	b.empty = make(map[string]bool)
	return nil
}

type piles struct {
	counts map[string]int
	order  []string
}

func (p *piles) seed(name string, count int) {
	if _, exists := p.counts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.counts[name] = count
}

// Take removes one card from the pile. emptied is true exactly when this call
// brought the pile to zero.
func (b *Board) Take(name string) (emptied bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, ok := b.counts[name]
	if !ok {
		return false, ErrUnknownPile
	}
	if count == 0 {
		return false, ErrExhausted
	}

	b.counts[name] = count - 1
	if count == 1 {
		b.empty[name] = true
		return true, nil
	}
	return false, nil
}

// Trash permanently removes a card from play.
func (b *Board) Trash(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trash = append(b.trash, name)
}

// Trashed returns a copy of the trash pile.
func (b *Board) Trashed() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.trash...)
}

// Remaining returns the count left on a pile (0 for piles not on the board).
func (b *Board) Remaining(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.counts[name]
}

// Has reports whether the pile is part of this game's supply.
func (b *Board) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.counts[name]
	return ok
}

// Names returns the pile names in board order.
func (b *Board) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// EmptyPiles returns how many distinct piles have run out.
func (b *Board) EmptyPiles() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.empty)
}

// IsEmpty reports whether the pile has been emptied.
func (b *Board) IsEmpty(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.empty[name]
}

// Counts returns a copy of every pile count.
func (b *Board) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.counts))
	for name, count := range b.counts {
		out[name] = count
	}
	return out
}

// Summary renders the board as markdown, one pile per line.
func (b *Board) Summary() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder
	for _, name := range b.order {
		def, _ := b.catalog.Lookup(name)
		cost := "-"
		if def != nil && def.Purchasable {
			cost = fmt.Sprintf("%d", def.Cost)
		}
		fmt.Fprintf(&sb, "* **%s** (cost %s): %d left\n", name, cost, b.counts[name])
	}
	return sb.String()
}
