// Package game runs per-room Dominion sessions: the setup/progress/ended state
// machine, turn commands, card-name resolution and the room manager.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
	"github.com/sparkplay/dominion-server-go/internal/game/player"
	"github.com/sparkplay/dominion-server-go/internal/game/rules"
	"github.com/sparkplay/dominion-server-go/internal/game/supply"
)

// State is the lifecycle state of a session.
type State int

const (
	StateSetup State = iota
	StateProgress
	StateEnded
)

var stateNames = map[State]string{
	StateSetup:    "setup",
	StateProgress: "progress",
	StateEnded:    "ended",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state_%d", int(s))
}

const (
	defaultKingdomSize = 10
	defaultPileSize    = 10
	defaultMaxPlayers  = 6
	minPlayers         = 2
)

// seedStream mixes the second PCG word so sessions sharing a seed prefix diverge.
const seedStream = 0x9e3779b97f4a7c15

// SessionConfig configures a new session.
type SessionConfig struct {
	RoomID        string
	AdminID       string
	AdminNickname string
	Catalog       *cards.Catalog
	// Seed drives every shuffle; equal seeds and equal commands give equal games.
	Seed     uint64
	Notifier Notifier
	Events   *rules.EventBus
	Logger   *zap.Logger

	KingdomSize int
	PileSize    int
	MaxPlayers  int
}

// PlayerInfo is the public identity of a seated player.
type PlayerInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// Session is one game in one room. It is not safe for concurrent use; the
// Manager serialises commands per room.
type Session struct {
	id        string
	room      string
	admin     string
	state     State
	createdAt time.Time

	players []*player.Player
	byID    map[string]*player.Player

	catalog *cards.Catalog
	board   *supply.Board
	pending *rules.PendingQueue
	turns   *rules.Coordinator
	minted  map[string]int

	rng      *rand.Rand
	notifier Notifier
	events   *rules.EventBus
	logger   *zap.Logger

	kingdomSize int
	pileSize    int
	maxPlayers  int
}

// NewSession creates a session in setup with the admin seated as the first player.
func NewSession(cfg SessionConfig) (*Session, error) {
	if strings.TrimSpace(cfg.RoomID) == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if strings.TrimSpace(cfg.AdminID) == "" {
		return nil, fmt.Errorf("admin id is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = cards.Standard()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.KingdomSize <= 0 {
		cfg.KingdomSize = defaultKingdomSize
	}
	if cfg.PileSize <= 0 {
		cfg.PileSize = defaultPileSize
	}
	if cfg.MaxPlayers < minPlayers {
		cfg.MaxPlayers = defaultMaxPlayers
	}

	s := &Session{
		id:          uuid.New().String(),
		room:        cfg.RoomID,
		admin:       cfg.AdminID,
		state:       StateSetup,
		createdAt:   time.Now().UTC(),
		players:     make([]*player.Player, 0, cfg.MaxPlayers),
		byID:        make(map[string]*player.Player),
		catalog:     cfg.Catalog,
		board:       supply.New(cfg.Catalog),
		pending:     rules.NewPendingQueue(),
		rng:         rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^seedStream)),
		notifier:    cfg.Notifier,
		events:      cfg.Events,
		logger:      cfg.Logger.With(zap.String("room", cfg.RoomID)),
		kingdomSize: cfg.KingdomSize,
		pileSize:    cfg.PileSize,
		maxPlayers:  cfg.MaxPlayers,
	}

	s.seat(cfg.AdminID, cfg.AdminNickname)
	s.publish(rules.NewEvent(rules.EventGameCreated, s.room, cfg.AdminID, ""))
	s.logger.Info("game created",
		zap.String("game_id", s.id),
		zap.String("admin", cfg.AdminID),
	)
	s.say("Created game, waiting for more people to join")
	return s, nil
}

func (s *Session) seat(id, nickname string) *player.Player {
	p := player.New(id, nickname, s.catalog, s.rng)
	s.players = append(s.players, p)
	s.byID[id] = p
	return p
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// Room returns the room hosting the session.
func (s *Session) Room() string { return s.room }

// Admin returns the player allowed to start the game.
func (s *Session) Admin() string { return s.admin }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// AddPlayer seats a new player during setup.
func (s *Session) AddPlayer(id, nickname string) error {
	if s.state != StateSetup {
		return s.reject(newError(KindValidation, "Can't join the game right now"))
	}
	if _, ok := s.byID[id]; ok {
		return s.reject(newError(KindDuplicateJoin, "You are already in this game"))
	}
	if err := s.checkNickname(id, nickname); err != nil {
		return s.reject(err)
	}
	if len(s.players) >= s.maxPlayers {
		return s.reject(newError(KindValidation, "The game is full, at most %d players can join", s.maxPlayers))
	}

	p := s.seat(id, nickname)
	s.publish(rules.NewEvent(rules.EventPlayerJoined, s.room, id, ""))
	s.logger.Debug("player joined", zap.String("player", id), zap.Int("players", len(s.players)))
	s.say(fmt.Sprintf("Added %s to the game. Players are %s", p.Nickname, strings.Join(s.nicknames(s.players), ", ")))
	return nil
}

// Rename changes a seated player's nickname.
func (s *Session) Rename(id, nickname string) error {
	p, ok := s.byID[id]
	if !ok {
		return s.reject(newError(KindValidation, "You are not in this game"))
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return s.reject(newError(KindValidation, "What should I call you?"))
	}
	if err := s.checkNickname(id, nickname); err != nil {
		return s.reject(err)
	}

	old := p.Nickname
	p.Nickname = nickname
	s.publish(rules.NewEvent(rules.EventPlayerRenamed, s.room, id, ""))
	s.say(fmt.Sprintf("%s will now be called %s", old, nickname))
	return nil
}

func (s *Session) checkNickname(id, nickname string) *Error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = id
	}
	for _, p := range s.players {
		if p.ID != id && strings.EqualFold(p.Nickname, nickname) {
			return newError(KindValidation, "The name %s is already taken", nickname)
		}
	}
	return nil
}

// Start shuffles the turn order, builds the supply and begins the first turn.
func (s *Session) Start(actor string) error {
	if s.state != StateSetup {
		return s.reject(newError(KindValidation, "Can't start the game right now"))
	}
	if actor != s.admin {
		return s.reject(newError(KindNotAdmin, "Only the game creator can start"))
	}
	if len(s.players) < minPlayers {
		return s.reject(newError(KindValidation, "At least %d players are needed to start", minPlayers))
	}
	if err := s.board.Initialize(len(s.players), s.kingdomSize, s.pileSize, s.rng); err != nil {
		s.logger.Warn("failed to build supply", zap.Error(err))
		return s.reject(newError(KindValidation, "Can't build the supply: %v", err))
	}

	s.rng.Shuffle(len(s.players), func(i, j int) {
		s.players[i], s.players[j] = s.players[j], s.players[i]
	})
	order := make([]string, len(s.players))
	for i, p := range s.players {
		order[i] = p.ID
	}
	s.turns = rules.NewCoordinator(order, s.board, s.catalog.FinalPile())
	s.minted = s.tally()
	s.state = StateProgress

	s.publish(rules.NewEvent(rules.EventGameStarted, s.room, actor, ""))
	s.logger.Info("game started",
		zap.String("game_id", s.id),
		zap.Strings("order", order),
		zap.Strings("supply", s.board.Names()),
	)
	s.say("Turn order is: " + strings.Join(s.nicknames(s.players), ", "))
	s.announceTurn()
	return nil
}

// IdentifyCard resolves typed text to exactly one card in this game's supply.
func (s *Session) IdentifyCard(text string) (string, error) {
	name, err := identify(s.board.Names(), text)
	if err != nil {
		return "", s.reject(err)
	}
	return name, nil
}

// Play plays an action card from the current player's hand.
func (s *Session) Play(actor, text string) error {
	if err := s.turnGuard(actor); err != nil {
		return s.reject(err)
	}
	name, err := s.IdentifyCard(text)
	if err != nil {
		return err
	}

	p := s.byID[actor]
	if ok, reason := p.CanPlay(name); !ok {
		return s.reject(newError(KindRuleViolation, "%s", reason))
	}
	def := s.catalog.MustLookup(name)

	p.PlayFromHand(name)
	s.publish(rules.NewEvent(rules.EventCardPlayed, s.room, actor, name))
	if err := cards.Resolve(table{s}, def, actor); err != nil {
		// CanPlay already rejected non-actions, so this is a catalog bug.
		s.logger.Error("card effect failed", zap.String("card", name), zap.Error(err))
	}

	msg := fmt.Sprintf("**%s** played **%s**\n\n%s", p.Nickname, name, p.HandSummary())
	if waiting := s.waitingOn(); len(waiting) > 0 {
		msg += fmt.Sprintf("\n\nWaiting for %s to select a card", strings.Join(waiting, ", "))
	}
	s.sayMarkdown(msg)
	return nil
}

// Buy buys a card from the supply for the current player.
func (s *Session) Buy(actor, text string) error {
	if err := s.turnGuard(actor); err != nil {
		return s.reject(err)
	}
	name, err := s.IdentifyCard(text)
	if err != nil {
		return err
	}

	p := s.byID[actor]
	def := s.catalog.MustLookup(name)
	switch {
	case name == s.catalog.Curse():
		return s.reject(newError(KindRuleViolation, "You can't buy curses silly"))
	case !def.Purchasable:
		return s.reject(newError(KindRuleViolation, "%s is not purchasable", name))
	case p.Buys < 1:
		return s.reject(newError(KindRuleViolation, "You have no buys left"))
	case p.Treasure() < def.Cost:
		return s.reject(newError(KindRuleViolation, "You can't afford that card"))
	}

	emptied, err := s.board.Take(name)
	if err != nil {
		if errors.Is(err, supply.ErrExhausted) {
			return s.reject(newError(KindSupplyExhausted, "Sorry, there are none left"))
		}
		return s.reject(newError(KindNoSuchCard, "There is no %s pile in this game", name))
	}

	p.Gain(name, player.ZoneDiscard)
	p.Spend(def.Cost)
	s.publish(rules.NewEventWithAmount(rules.EventCardBought, s.room, actor, name, def.Cost))
	s.say(fmt.Sprintf("%s bought a %s", p.Nickname, name))
	if emptied {
		s.pileEmptied(name)
	}

	if p.Buys <= 0 {
		s.endTurn()
		return nil
	}
	s.sayMarkdown(p.HandSummary())
	return nil
}

// Done ends the current player's turn.
func (s *Session) Done(actor string) error {
	if err := s.turnGuard(actor); err != nil {
		return s.reject(err)
	}
	s.endTurn()
	return nil
}

// Select answers a pending action owed by actor. Input from a player the game
// is not waiting on through that channel is ignored.
func (s *Session) Select(actor, text string, public bool) error {
	if s.state != StateProgress || !s.pending.Waiting(actor, public) {
		return nil
	}

	name, gerr := identify(s.board.Names(), text)
	if gerr != nil {
		return s.rejectTo(actor, !public, gerr)
	}

	res, ok := s.pending.Resolve(actor, name, public)
	if !ok {
		return nil
	}
	p := s.byID[actor]
	if !res.Accepted {
		return s.rejectTo(actor, !public, newError(KindRuleViolation, "You don't have a %s", name))
	}

	s.publish(rules.NewEvent(rules.EventCardDiscarded, s.room, actor, name))
	s.publish(rules.NewEventWithAmount(rules.EventPendingResolved, s.room, actor, name, res.Remaining))
	msg := fmt.Sprintf("%s discarded a %s", p.Nickname, name)
	if res.Remaining > 0 {
		msg += fmt.Sprintf(", %d more to go", res.Remaining)
	}
	s.say(msg)

	if s.pending.Empty() {
		current := s.byID[s.turns.Current()]
		s.sayMarkdown(fmt.Sprintf("%s, everyone has responded. Carry on with your turn\n\n%s",
			current.Nickname, current.HandSummary()))
	}
	return nil
}

// HandSummary renders a player's hand and turn counters.
func (s *Session) HandSummary(id string) (string, error) {
	p, ok := s.byID[id]
	if !ok {
		return "", newError(KindValidation, "You are not in this game")
	}
	return p.HandSummary(), nil
}

// BoardSummary renders the supply piles.
func (s *Session) BoardSummary() string {
	if s.state == StateSetup {
		return "The supply is built when the game starts"
	}
	return s.board.Summary()
}

func (s *Session) turnGuard(actor string) *Error {
	switch s.state {
	case StateSetup:
		return newError(KindValidation, "The game hasn't started yet")
	case StateEnded:
		return newError(KindValidation, "The game is over")
	}
	if !s.pending.Empty() {
		return newError(KindValidation, "Waiting for one or more players to select a card")
	}
	if actor != s.turns.Current() {
		current := s.byID[s.turns.Current()]
		return newError(KindValidation, "It's not your turn, it's %s's", current.Nickname)
	}
	return nil
}

func (s *Session) endTurn() {
	p := s.byID[s.turns.Current()]
	if p.EndTurn() {
		s.say("No more cards available")
	}

	if _, ok := s.turns.Advance(); !ok {
		s.finish()
		return
	}
	s.announceTurn()
}

func (s *Session) announceTurn() {
	p := s.byID[s.turns.Current()]
	s.publish(rules.NewEventWithAmount(rules.EventTurnStarted, s.room, p.ID, "", s.turns.TurnNumber()))
	s.sayMarkdown(fmt.Sprintf("%s it's your turn, you have:\n\n%s", p.Nickname, p.HandSummary()))
}

func (s *Session) finish() {
	reason := "three supply piles are empty"
	if s.board.Remaining(s.catalog.FinalPile()) == 0 {
		reason = fmt.Sprintf("the last %s has been taken", s.catalog.FinalPile())
	}
	s.state = StateEnded
	s.publish(rules.NewEvent(rules.EventGameEnded, s.room, "", ""))
	s.logger.Info("game ended",
		zap.String("game_id", s.id),
		zap.Int("turns", s.turns.TurnNumber()),
		zap.String("reason", reason),
	)
	s.say(fmt.Sprintf("Game over, %s. Thanks for playing!", reason))
}

func (s *Session) pileEmptied(name string) {
	s.publish(rules.NewEvent(rules.EventPileEmptied, s.room, "", name))
	s.say(fmt.Sprintf("The last %s has been taken", name))
}

func (s *Session) waitingOn() []string {
	var names []string
	seen := make(map[string]bool)
	for _, action := range s.pending.List() {
		if seen[action.PlayerID] {
			continue
		}
		seen[action.PlayerID] = true
		names = append(names, s.byID[action.PlayerID].Nickname)
	}
	return names
}

func (s *Session) nicknames(players []*player.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Nickname
	}
	return out
}

func (s *Session) tally() map[string]int {
	totals := s.board.Counts()
	for _, p := range s.players {
		for name, n := range p.Counts() {
			totals[name] += n
		}
	}
	for _, name := range s.board.Trashed() {
		totals[name]++
	}
	return totals
}

// Audit checks that every card minted at start is still accounted for across
// the supply, the trash and every player's zones.
func (s *Session) Audit() error {
	if s.minted == nil {
		return nil
	}
	now := s.tally()
	for name, want := range s.minted {
		if got := now[name]; got != want {
			return fmt.Errorf("card %s: %d accounted for, %d minted", name, got, want)
		}
	}
	for name, got := range now {
		if _, ok := s.minted[name]; !ok && got != 0 {
			return fmt.Errorf("card %s: %d appeared from nowhere", name, got)
		}
	}
	return nil
}

func (s *Session) reject(err *Error) error {
	s.logger.Debug("command rejected",
		zap.Stringer("kind", err.Kind),
		zap.String("reason", err.Message),
	)
	s.say(err.Message)
	return err
}

func (s *Session) rejectTo(id string, direct bool, err *Error) error {
	if !direct {
		return s.reject(err)
	}
	s.logger.Debug("command rejected",
		zap.String("player", id),
		zap.Stringer("kind", err.Kind),
		zap.String("reason", err.Message),
	)
	s.tell(id, err.Message)
	return err
}

func (s *Session) say(text string) {
	s.notifier.Notify(Notification{Target: s.room, Text: text})
}

func (s *Session) sayMarkdown(text string) {
	s.notifier.Notify(Notification{Target: s.room, Text: text, Markdown: true})
}

func (s *Session) tell(id, text string) {
	s.notifier.Notify(Notification{Target: id, Text: text, Direct: true})
}

func (s *Session) publish(evt rules.Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}
