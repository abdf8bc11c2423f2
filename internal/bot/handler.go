// Package bot turns chat messages into game commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game"
	"github.com/sparkplay/dominion-server-go/internal/spark"
	"github.com/sparkplay/dominion-server-go/internal/storage"
)

var (
	mentionPattern   = regexp.MustCompile(`(?s)<spark-mention[^>]*?data-object-id="([^"]+)"[^>]*>.*?</spark-mention>`)
	paragraphPattern = regexp.MustCompile(`(?i)</?p>`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
)

// People looks up chat users.
type People interface {
	GetPerson(ctx context.Context, id string) (*spark.Person, error)
}

// Options configures a Handler.
type Options struct {
	Manager *game.Manager
	// Gate must be the notifier the manager's sessions were created with.
	Gate   *Gate
	People People
	Log    storage.CommandLog
	// BotID is the bot's own person ID. Setup commands must mention it.
	BotID     string
	AdminRoom string
	Logger    *zap.Logger
}

// Handler dispatches inbound messages.
type Handler struct {
	manager   *game.Manager
	gate      *Gate
	people    People
	log       storage.CommandLog
	botID     string
	adminRoom string
	logger    *zap.Logger

	namesMu sync.Mutex
	names   map[string]string
}

// NewHandler creates a handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Manager == nil {
		return nil, errors.New("bot: manager is required")
	}
	if opts.Gate == nil {
		opts.Gate = NewGate(nil)
	}
	if opts.Log == nil {
		opts.Log = storage.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		manager:   opts.Manager,
		gate:      opts.Gate,
		people:    opts.People,
		log:       opts.Log,
		botID:     opts.BotID,
		adminRoom: opts.AdminRoom,
		logger:    opts.Logger,
		names:     make(map[string]string),
	}, nil
}

// Seed derives a game's shuffle seed from the message that created it, so
// replaying the same log deals the same cards.
func Seed(room, messageID string) uint64 {
	return xxhash.Sum64String(room + ":" + messageID)
}

// Normalize returns the plain text of a message. Mentions become the mentioned
// person's ID.
func Normalize(msg *spark.Message) string {
	if msg.HTML == "" {
		return strings.TrimSpace(msg.Text)
	}
	text := mentionPattern.ReplaceAllString(msg.HTML, "$1")
	text = paragraphPattern.ReplaceAllString(text, " ")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Handle records and dispatches one message. Game rule rejections are reported
// in chat and are not errors; only a failure to record the message is.
func (h *Handler) Handle(ctx context.Context, msg *spark.Message) error {
	if msg == nil || msg.PersonID == "" || msg.PersonID == h.botID {
		return nil
	}
	created := msg.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	entry := storage.Entry{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		PersonID:  msg.PersonID,
		Text:      Normalize(msg),
		Direct:    msg.Direct(),
		CreatedAt: created,
	}
	cmd, args := h.match(toInput(entry))
	if cmd != nil && cmd.seats && args[0] == "" {
		entry.Nickname = strings.TrimSpace(h.displayName(ctx, msg.PersonID))
	}
	if err := h.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("record message %s: %w", msg.ID, err)
	}
	h.run(ctx, cmd, toInput(entry), args)
	return nil
}

// Replay re-runs the command log with chat output muted and returns how many
// entries it processed. Names come from the log, so replay never calls the
// chat API.
func (h *Handler) Replay(ctx context.Context) (int, error) {
	entries, err := h.log.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load command log: %w", err)
	}

	resume := h.gate.Mute()
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			resume()
			return i, err
		}
		in := toInput(e)
		cmd, args := h.match(in)
		h.run(ctx, cmd, in, args)
	}
	resume()

	h.logger.Info("command log replayed",
		zap.Int("entries", len(entries)),
		zap.Int("active_games", h.manager.ActiveCount()),
	)
	if h.adminRoom != "" && len(entries) > 0 {
		h.notify(game.Notification{
			Target: h.adminRoom,
			Text:   fmt.Sprintf("Restored %d games from %d messages", h.manager.ActiveCount(), len(entries)),
		})
	}
	return len(entries), nil
}

func toInput(e storage.Entry) input {
	return input{
		messageID: e.MessageID,
		room:      e.RoomID,
		sender:    e.PersonID,
		text:      e.Text,
		direct:    e.Direct,
		nickname:  e.Nickname,
	}
}

// match finds the first command that accepts the message.
func (h *Handler) match(in input) (*command, []string) {
	mentioned := in.direct || h.botID == "" || strings.Contains(in.text, h.botID)
	text := in.text
	if h.botID != "" {
		text = strings.TrimSpace(strings.ReplaceAll(text, h.botID, ""))
	}

	for i := range commands {
		cmd := &commands[i]
		if cmd.mention && !mentioned {
			continue
		}
		if in.direct && !cmd.direct {
			continue
		}
		if m := cmd.pattern.FindStringSubmatch(text); m != nil {
			return cmd, m[1:]
		}
	}
	return nil, nil
}

func (h *Handler) run(ctx context.Context, cmd *command, in input, args []string) {
	if cmd == nil {
		return
	}
	err := cmd.run(h, ctx, in, args)
	h.report(in, cmd.name, err)
}

// report logs a command's outcome. Rule rejections were already announced by
// the game; anything else goes to the admin room.
func (h *Handler) report(in input, name string, err error) {
	var gerr *game.Error
	switch {
	case err == nil:
		h.logger.Debug("command handled",
			zap.String("command", name),
			zap.String("room", in.room),
			zap.String("sender", in.sender),
		)
	case errors.As(err, &gerr):
		h.logger.Debug("command rejected",
			zap.String("command", name),
			zap.String("room", in.room),
			zap.Stringer("kind", gerr.Kind),
		)
	default:
		h.logger.Error("command failed",
			zap.String("command", name),
			zap.String("room", in.room),
			zap.String("message_id", in.messageID),
			zap.Error(err),
		)
		if h.adminRoom != "" {
			h.notify(game.Notification{
				Target: h.adminRoom,
				Text:   fmt.Sprintf("%s in %s failed: %v", name, in.room, err),
			})
		}
	}
}

// inRoom runs fn on the room's game. Without a game, setup commands say so and
// turn commands stay quiet.
func (h *Handler) inRoom(in input, announce bool, fn func(*game.Session) error) error {
	err := h.manager.Do(in.room, fn)
	if errors.Is(err, game.ErrNoGame) {
		if announce {
			h.notify(game.Notification{Target: in.room, Text: "No games are active in this room"})
		}
		return nil
	}
	return err
}

// nickname picks the name a player joins under: the one they asked for, else
// the display name recorded with the message, else their ID.
func nickname(in input, requested string) string {
	switch {
	case requested != "":
		return requested
	case in.nickname != "":
		return in.nickname
	default:
		return in.sender
	}
}

// displayName looks up a person's chat name, falling back to the first name
// and then the ID. Failed lookups are not cached.
func (h *Handler) displayName(ctx context.Context, id string) string {
	h.namesMu.Lock()
	name, ok := h.names[id]
	h.namesMu.Unlock()
	if ok {
		return name
	}

	name = id
	if h.people != nil {
		person, err := h.people.GetPerson(ctx, id)
		switch {
		case err != nil:
			h.logger.Warn("person lookup failed", zap.String("person", id), zap.Error(err))
			return id
		case person.DisplayName != "":
			name = person.DisplayName
		case person.FirstName != "":
			name = person.FirstName
		}
	}

	h.namesMu.Lock()
	h.names[id] = name
	h.namesMu.Unlock()
	return name
}

func (h *Handler) notify(n game.Notification) {
	h.gate.Notify(n)
}
