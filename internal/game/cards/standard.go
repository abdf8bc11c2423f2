package cards

import (
	"errors"
	"fmt"
	"strings"
)

// militiaHandLimit is the hand size militia forces opponents down to.
const militiaHandLimit = 3

// Standard returns the base catalog: three treasures, three victory cards,
// the curse and the kingdom action cards.
func Standard() *Catalog {
	catalog, err := NewCatalog(standardDefinitions()...)
	if err != nil {
		panic(err)
	}
	starting := make([]string, 0, 10)
	for i := 0; i < 7; i++ {
		starting = append(starting, Copper)
	}
	for i := 0; i < 3; i++ {
		starting = append(starting, Estate)
	}
	return catalog.WithStartingDeck(starting...).WithSpecialPiles(Curse, Province)
}

func standardDefinitions() []*Definition {
	return []*Definition{
		{Name: Copper, Cost: 0, Purchasable: true, Category: CategoryTreasure, Value: 1, Minted: 60},
		{Name: Silver, Cost: 3, Purchasable: true, Category: CategoryTreasure, Value: 2, Minted: 40},
		{Name: Gold, Cost: 6, Purchasable: true, Category: CategoryTreasure, Value: 3, Minted: 30},

		{Name: Estate, Cost: 2, Purchasable: true, Category: CategoryVictory, Points: 1},
		{Name: Duchy, Cost: 5, Purchasable: true, Category: CategoryVictory, Points: 3},
		{Name: Province, Cost: 8, Purchasable: true, Category: CategoryVictory, Points: 6},
		{Name: Curse, Cost: 0, Purchasable: false, Category: CategoryVictory, Points: -1},

		{
			Name: Militia, Cost: 4, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{
				Bonus:    Bonus{Treasure: 2},
				Attack:   true,
				Opponent: militiaAttack,
				Text:     "+2 treasure. Each other player discards down to 3 cards in hand.",
			},
		},
		{
			Name: Witch, Cost: 5, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{
				Bonus:       Bonus{Cards: 2},
				Attack:      true,
				SeedsCurses: true,
				Opponent:    witchAttack,
				Text:        "+2 cards. Each other player gains a curse.",
			},
		},
		{
			Name: Village, Cost: 3, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Cards: 1, Actions: 2}, Text: "+1 card, +2 actions."},
		},
		{
			Name: Woodcutter, Cost: 3, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Buys: 1, Treasure: 2}, Text: "+1 buy, +2 treasure."},
		},
		{
			Name: Smithy, Cost: 4, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Cards: 3}, Text: "+3 cards."},
		},
		{
			Name: Festival, Cost: 5, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Actions: 2, Buys: 1, Treasure: 2}, Text: "+2 actions, +1 buy, +2 treasure."},
		},
		{
			Name: Laboratory, Cost: 5, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Cards: 2, Actions: 1}, Text: "+2 cards, +1 action."},
		},
		{
			Name: Market, Cost: 5, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{Bonus: Bonus{Cards: 1, Actions: 1, Buys: 1, Treasure: 1}, Text: "+1 card, +1 action, +1 buy, +1 treasure."},
		},
		{
			Name: CouncilRoom, Cost: 5, Purchasable: true, Category: CategoryAction, Kingdom: true,
			Action: &ActionSpec{
				Bonus:    Bonus{Cards: 4, Buys: 1},
				Opponent: councilRoomGift,
				Text:     "+4 cards, +1 buy. Each other player draws a card.",
			},
		},
	}
}

func militiaAttack(t Table, actor, target string) {
	toDiscard := t.HandSize(target) - militiaHandLimit
	if toDiscard <= 0 {
		return
	}
	t.Require(target, ResponseDiscard, toDiscard,
		fmt.Sprintf("discard %d card(s) down to %d", toDiscard, militiaHandLimit), true)
	t.Tell(target, fmt.Sprintf(
		"You have been attacked by a militia! Currently you have %s but you must discard %d card(s) "+
			"to get down to three. Discard publicly by typing the name of a card in the group room",
		strings.Join(t.Hand(target), ", "), toDiscard))
}

func witchAttack(t Table, actor, target string) {
	err := t.Gain(target, Curse)
	switch {
	case err == nil, errors.Is(err, ErrPileEmpty):
		// Once the curses run out the remaining opponents are spared.
	default:
		t.Tell(actor, fmt.Sprintf("Could not give %s a curse: %v", target, err))
	}
}

func councilRoomGift(t Table, actor, target string) {
	t.Draw(target, 1)
}
