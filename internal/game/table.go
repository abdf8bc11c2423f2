package game

import (
	"errors"

	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
	"github.com/sparkplay/dominion-server-go/internal/game/player"
	"github.com/sparkplay/dominion-server-go/internal/game/rules"
	"github.com/sparkplay/dominion-server-go/internal/game/supply"
)

// table exposes the session to card effects.
type table struct {
	s *Session
}

var _ cards.Table = table{}

func (t table) Grant(playerID string, bonus cards.Bonus) {
	p, ok := t.s.byID[playerID]
	if !ok {
		return
	}
	if drawn := p.Grant(bonus); drawn < bonus.Cards {
		t.s.say("No more cards available")
	}
}

func (t table) Opponents() []string {
	return t.s.turns.Opponents()
}

func (t table) Protected(playerID string) bool {
	p, ok := t.s.byID[playerID]
	return ok && p.Protected()
}

func (t table) HandSize(playerID string) int {
	if p, ok := t.s.byID[playerID]; ok {
		return p.HandSize()
	}
	return 0
}

func (t table) Hand(playerID string) []string {
	hand, _ := t.s.HandOf(playerID)
	return hand
}

func (t table) Gain(playerID, card string) error {
	p, ok := t.s.byID[playerID]
	if !ok {
		return ErrNoGame
	}
	emptied, err := t.s.board.Take(card)
	if err != nil {
		log := t.s.logger.Warn
		if errors.Is(err, supply.ErrExhausted) {
			log = t.s.logger.Debug
		}
		log("gain skipped", zap.String("player", playerID), zap.String("card", card), zap.Error(err))
		return err
	}
	p.Gain(card, player.ZoneDiscard)
	t.s.publish(rules.NewEvent(rules.EventCardGained, t.s.room, playerID, card))
	if emptied {
		t.s.pileEmptied(card)
	}
	return nil
}

func (t table) Draw(playerID string, n int) int {
	p, ok := t.s.byID[playerID]
	if !ok {
		return 0
	}
	drawn := p.Draw(n)
	if drawn < n {
		t.s.say("No more cards available")
	}
	return drawn
}

func (t table) Require(playerID string, response cards.Response, count int, description string, public bool) {
	p, ok := t.s.byID[playerID]
	if !ok {
		return
	}
	id := t.s.pending.Enqueue(rules.PendingAction{
		PlayerID:    playerID,
		Description: description,
		Remaining:   count,
		Public:      public,
		Respond:     responder(p, response),
	})
	if id == "" {
		return
	}
	evt := rules.NewEventWithAmount(rules.EventPendingAdded, t.s.room, playerID, "", count)
	evt.Description = description
	t.s.publish(evt)
}

func (t table) Tell(playerID, text string) {
	t.s.tell(playerID, text)
}

func responder(p *player.Player, response cards.Response) func(string) bool {
	switch response {
	case cards.ResponseDiscard:
		return p.Discard
	default:
		return func(string) bool { return false }
	}
}
