package bot

import (
	"context"
	"regexp"

	"github.com/sparkplay/dominion-server-go/internal/game"
)

// input is one normalized inbound message.
type input struct {
	messageID string
	room      string
	sender    string
	text      string
	direct    bool
	nickname  string
}

type command struct {
	name    string
	pattern *regexp.Regexp
	run     func(h *Handler, ctx context.Context, in input, args []string) error

	// mention commands only fire when the bot is tagged.
	mention bool

	// direct commands also fire in 1:1 spaces.
	direct bool

	// seats commands take the sender's display name when no name is given.
	seats bool
}

// commands is checked in order; the first match wins. The bare-word select
// must stay last.
var commands = []command{
	{name: "help", pattern: regexp.MustCompile(`(?i)^help$`), mention: true, direct: true, run: (*Handler).help},
	{name: "new", pattern: regexp.MustCompile(`(?i)^new(?:\s+game)?(?:\s+as\s+(\S+))?$`), mention: true, seats: true, run: (*Handler).newGame},
	{name: "join", pattern: regexp.MustCompile(`(?i)^join(?:\s+as\s+(\S+))?$`), mention: true, seats: true, run: (*Handler).join},
	{name: "start", pattern: regexp.MustCompile(`(?i)^start$`), mention: true, run: (*Handler).start},
	{name: "rename", pattern: regexp.MustCompile(`(?i)^call\s+me\s+(\S+)$`), mention: true, run: (*Handler).rename},
	{name: "play", pattern: regexp.MustCompile(`(?i)^play\s+(.+)$`), run: (*Handler).play},
	{name: "buy", pattern: regexp.MustCompile(`(?i)^buy\s+(.+)$`), run: (*Handler).buy},
	{name: "done", pattern: regexp.MustCompile(`(?i)^(?:pass|done)$`), run: (*Handler).done},
	{name: "hand", pattern: regexp.MustCompile(`(?i)^hand$`), run: (*Handler).hand},
	{name: "board", pattern: regexp.MustCompile(`(?i)^(?:board|supply)$`), run: (*Handler).board},
	{name: "select", pattern: regexp.MustCompile(`^(\w+(?:\s+\w+)?)$`), direct: true, run: (*Handler).selectCard},
}

const helpText = "## Help\n" +
	"#### Setup\n" +
	"Tag me in these messages:\n\n" +
	"* **help**: show this message\n" +
	"* **new** [as _name_]: create a game in this room\n" +
	"* **join** [as _name_]: join the game in this room\n" +
	"* **start**: deal the cards (game creator only)\n" +
	"* **call me** _name_: change your name\n\n" +
	"#### In progress\n" +
	"No need to tag me once the game is running:\n\n" +
	"* **play** _card_: play an action card from your hand\n" +
	"* **buy** _card_: buy a card from the supply\n" +
	"* **pass** or **done**: end your turn\n" +
	"* **hand**: get your hand as a private message\n" +
	"* **board**: list the supply\n" +
	"* _card_: answer when the game asks you to pick a card\n\n" +
	"Card names can be shortened to any unambiguous prefix."

func (h *Handler) help(_ context.Context, in input, _ []string) error {
	h.notify(game.Notification{Target: in.room, Text: helpText, Markdown: true})
	return nil
}

func (h *Handler) newGame(_ context.Context, in input, args []string) error {
	_, err := h.manager.Create(in.room, in.sender, nickname(in, args[0]), Seed(in.room, in.messageID))
	return err
}

func (h *Handler) join(_ context.Context, in input, args []string) error {
	nick := nickname(in, args[0])
	return h.inRoom(in, true, func(s *game.Session) error {
		return s.AddPlayer(in.sender, nick)
	})
}

func (h *Handler) start(_ context.Context, in input, _ []string) error {
	return h.inRoom(in, true, func(s *game.Session) error {
		return s.Start(in.sender)
	})
}

func (h *Handler) rename(_ context.Context, in input, args []string) error {
	return h.inRoom(in, true, func(s *game.Session) error {
		return s.Rename(in.sender, args[0])
	})
}

func (h *Handler) play(_ context.Context, in input, args []string) error {
	return h.inRoom(in, false, func(s *game.Session) error {
		return s.Play(in.sender, args[0])
	})
}

func (h *Handler) buy(_ context.Context, in input, args []string) error {
	return h.inRoom(in, false, func(s *game.Session) error {
		return s.Buy(in.sender, args[0])
	})
}

func (h *Handler) done(_ context.Context, in input, _ []string) error {
	return h.inRoom(in, false, func(s *game.Session) error {
		return s.Done(in.sender)
	})
}

func (h *Handler) hand(_ context.Context, in input, _ []string) error {
	return h.inRoom(in, false, func(s *game.Session) error {
		summary, err := s.HandSummary(in.sender)
		if err != nil {
			return nil
		}
		h.notify(game.Notification{Target: in.sender, Text: summary, Direct: true, Markdown: true})
		return nil
	})
}

func (h *Handler) board(_ context.Context, in input, _ []string) error {
	return h.inRoom(in, false, func(s *game.Session) error {
		h.notify(game.Notification{Target: in.room, Text: s.BoardSummary(), Markdown: true})
		return nil
	})
}

// selectCard answers a pending action. In a room it goes to that room's game;
// in a 1:1 space it goes to the oldest game waiting on a private answer.
func (h *Handler) selectCard(_ context.Context, in input, args []string) error {
	room := in.room
	public := !in.direct
	if in.direct {
		var ok bool
		room, ok = h.manager.FindWaiting(in.sender, false)
		if !ok {
			return nil
		}
	}
	return h.inRoom(input{room: room, sender: in.sender}, false, func(s *game.Session) error {
		return s.Select(in.sender, args[0], public)
	})
}
