package cards

import (
	"fmt"
	"strings"
)

// Card names of the base set.
const (
	Copper   = "copper"
	Silver   = "silver"
	Gold     = "gold"
	Estate   = "estate"
	Duchy    = "duchy"
	Province = "province"
	Curse    = "curse"

	Militia     = "militia"
	Witch       = "witch"
	Village     = "village"
	Woodcutter  = "woodcutter"
	Smithy      = "smithy"
	Festival    = "festival"
	Laboratory  = "laboratory"
	Market      = "market"
	CouncilRoom = "council room"
)

// Catalog is a read-only registry of card definitions.
type Catalog struct {
	defs      map[string]*Definition
	order     []string
	curse     string
	finalPile string
	starting  []string
}

// NewCatalog builds a catalog from definitions. Names are normalised to lower case
// and must be unique.
func NewCatalog(defs ...*Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make(map[string]*Definition, len(defs)),
		order: make([]string, 0, len(defs)),
	}
	for _, def := range defs {
		if def == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(def.Name))
		if name == "" {
			return nil, fmt.Errorf("card definition without a name")
		}
		if _, exists := c.defs[name]; exists {
			return nil, fmt.Errorf("duplicate card %q", name)
		}
		if def.Category == CategoryAction && def.Action == nil {
			return nil, fmt.Errorf("action card %q has no effect", name)
		}
		def.Name = name
		c.defs[name] = def
		c.order = append(c.order, name)
	}
	return c, nil
}

// WithStartingDeck sets the opening deck dealt to every player.
func (c *Catalog) WithStartingDeck(names ...string) *Catalog {
	c.starting = append([]string(nil), names...)
	return c
}

// WithSpecialPiles names the uncostable curse card and the pile that ends the game when empty.
func (c *Catalog) WithSpecialPiles(curse, finalPile string) *Catalog {
	c.curse = curse
	c.finalPile = finalPile
	return c
}

// Lookup returns the definition for an exact card name.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	def, ok := c.defs[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// MustLookup is Lookup for names known to be registered.
func (c *Catalog) MustLookup(name string) *Definition {
	def, ok := c.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("card %q not in catalog", name))
	}
	return def
}

// All returns every definition in registration order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name])
	}
	return out
}

func (c *Catalog) filter(keep func(*Definition) bool) []*Definition {
	out := make([]*Definition, 0)
	for _, def := range c.All() {
		if keep(def) {
			out = append(out, def)
		}
	}
	return out
}

// Kingdom returns the action cards eligible for random supply selection.
func (c *Catalog) Kingdom() []*Definition {
	return c.filter(func(d *Definition) bool { return d.Kingdom && d.IsAction() })
}

// Treasures returns the base treasure cards.
func (c *Catalog) Treasures() []*Definition {
	return c.filter(func(d *Definition) bool { return d.Category == CategoryTreasure })
}

// Victories returns the purchasable base victory cards (the curse is excluded).
func (c *Catalog) Victories() []*Definition {
	return c.filter(func(d *Definition) bool {
		return d.Category == CategoryVictory && d.Name != c.curse
	})
}

// Curse is the name of the card attacks hand out; it is never purchasable.
func (c *Catalog) Curse() string { return c.curse }

// FinalPile is the victory pile whose exhaustion ends the game.
func (c *Catalog) FinalPile() string { return c.finalPile }

// StartingDeck returns a copy of the opening deck.
func (c *Catalog) StartingDeck() []string {
	return append([]string(nil), c.starting...)
}

// StartingCopies counts how many copies of name each player starts with.
func (c *Catalog) StartingCopies(name string) int {
	n := 0
	for _, s := range c.starting {
		if s == name {
			n++
		}
	}
	return n
}
