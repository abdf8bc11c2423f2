package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sparkplay/dominion-server-go/internal/game"
	"github.com/sparkplay/dominion-server-go/internal/spark"
	"github.com/sparkplay/dominion-server-go/internal/storage"
)

const botID = "bot1"

type recorder struct {
	mu    sync.Mutex
	notes []game.Notification
}

func (r *recorder) Notify(n game.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []game.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.Notification(nil), r.notes...)
}

func (r *recorder) texts() []string {
	var out []string
	for _, n := range r.all() {
		out = append(out, n.Text)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

type fakePeople struct {
	mu    sync.Mutex
	calls int
	names map[string]string
}

func (f *fakePeople) GetPerson(_ context.Context, id string) (*spark.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	name, ok := f.names[id]
	if !ok {
		return nil, fmt.Errorf("no person %s", id)
	}
	return &spark.Person{ID: id, DisplayName: name}, nil
}

type harness struct {
	t       *testing.T
	handler *Handler
	manager *game.Manager
	rec     *recorder
	people  *fakePeople
	log     storage.CommandLog
	next    int
}

func newHarness(t *testing.T, log storage.CommandLog) *harness {
	t.Helper()
	rec := &recorder{}
	gate := NewGate(rec)
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(game.ManagerConfig{Notifier: gate, Logger: logger, KingdomSize: 9})
	people := &fakePeople{names: map[string]string{"alice": "Alice", "bob": "Bob"}}
	if log == nil {
		log = storage.NewMemory()
	}
	h, err := NewHandler(Options{
		Manager:   manager,
		Gate:      gate,
		People:    people,
		Log:       log,
		BotID:     botID,
		AdminRoom: "admin",
		Logger:    logger,
	})
	require.NoError(t, err)
	return &harness{t: t, handler: h, manager: manager, rec: rec, people: people, log: log}
}

func (h *harness) send(room, person, text string) {
	h.t.Helper()
	h.next++
	msg := &spark.Message{
		ID:       fmt.Sprintf("msg%d", h.next),
		RoomID:   room,
		RoomType: "group",
		PersonID: person,
		Text:     text,
	}
	require.NoError(h.t, h.handler.Handle(context.Background(), msg))
}

func (h *harness) sendDirect(person, text string) {
	h.t.Helper()
	h.next++
	msg := &spark.Message{
		ID:       fmt.Sprintf("msg%d", h.next),
		RoomID:   "dm-" + person,
		RoomType: "direct",
		PersonID: person,
		Text:     text,
	}
	require.NoError(h.t, h.handler.Handle(context.Background(), msg))
}

func (h *harness) startGame(room string) *game.Session {
	h.t.Helper()
	h.send(room, "alice", botID+" new")
	h.send(room, "bob", botID+" join")
	h.send(room, "alice", botID+" start")
	s, ok := h.manager.Get(room)
	require.True(h.t, ok)
	require.Equal(h.t, game.StateProgress, s.State())
	return s
}

func TestNormalizeMentions(t *testing.T) {
	msg := &spark.Message{
		Text: "Dominion new as Al",
		HTML: `<p><spark-mention data-object-type="person" data-object-id="bot1">Dominion</spark-mention> new as Al</p>`,
	}
	assert.Equal(t, "bot1 new as Al", Normalize(msg))

	assert.Equal(t, "buy silver", Normalize(&spark.Message{Text: "  buy silver "}))
}

func TestSetupCommandsNeedMention(t *testing.T) {
	h := newHarness(t, nil)

	h.send("room1", "alice", "new")
	assert.Equal(t, 0, h.manager.ActiveCount())

	h.send("room1", "alice", botID+" new as Al")
	require.Equal(t, 1, h.manager.ActiveCount())
	s, _ := h.manager.Get("room1")
	assert.Equal(t, "Al", s.Players()[0].Nickname)
	assert.Contains(t, h.rec.texts(), "Created game, waiting for more people to join")
}

func TestIgnoresOwnMessages(t *testing.T) {
	h := newHarness(t, nil)
	h.send("room1", botID, botID+" new")
	assert.Equal(t, 0, h.manager.ActiveCount())

	entries, err := h.log.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJoinUsesDisplayName(t *testing.T) {
	h := newHarness(t, nil)
	h.send("room1", "alice", botID+" new")
	h.send("room1", "bob", botID+" join")
	h.send("room1", "carol", botID+" join")

	s, _ := h.manager.Get("room1")
	var names []string
	for _, p := range s.Players() {
		names = append(names, p.Nickname)
	}
	assert.Equal(t, []string{"Alice", "Bob", "carol"}, names, "unknown people fall back to their ID")

	h.send("room2", "alice", botID+" new")
	assert.Equal(t, 3, h.people.calls, "names are cached")
}

func TestOnlyCreatorStarts(t *testing.T) {
	h := newHarness(t, nil)
	h.send("room1", "alice", botID+" new")
	h.send("room1", "bob", botID+" join")
	h.send("room1", "bob", botID+" start")

	assert.Contains(t, h.rec.texts(), "Only the game creator can start")
	s, _ := h.manager.Get("room1")
	assert.Equal(t, game.StateSetup, s.State())
}

func TestNoGameInRoom(t *testing.T) {
	h := newHarness(t, nil)
	h.send("room1", "alice", botID+" join")
	assert.Equal(t, []string{"No games are active in this room"}, h.rec.texts())

	h.rec.reset()
	h.send("room1", "alice", "buy copper")
	h.send("room1", "alice", "done")
	assert.Empty(t, h.rec.texts(), "turn commands stay quiet without a game")
}

func TestTurnCommands(t *testing.T) {
	h := newHarness(t, nil)
	s := h.startGame("room1")
	first := s.Current()
	other := "alice"
	if first == "alice" {
		other = "bob"
	}

	h.rec.reset()
	h.send("room1", other, "buy copper")
	assert.Contains(t, h.rec.texts()[0], "It's not your turn")

	h.send("room1", first, "buy cop")
	assert.Equal(t, 2, s.TurnNumber())
	assert.Equal(t, other, s.Current())

	h.send("room1", other, "pass")
	assert.Equal(t, 3, s.TurnNumber())
	assert.Equal(t, first, s.Current())
}

func TestHandIsSentDirectly(t *testing.T) {
	h := newHarness(t, nil)
	h.startGame("room1")

	h.rec.reset()
	h.send("room1", "bob", "hand")
	notes := h.rec.all()
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Direct)
	assert.Equal(t, "bob", notes[0].Target)

	h.rec.reset()
	h.send("room1", "bob", "board")
	notes = h.rec.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "room1", notes[0].Target)
	assert.True(t, strings.Contains(notes[0].Text, "**copper**"))
}

func TestDirectMessagesWithoutPendingAreIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.startGame("room1")
	h.rec.reset()

	h.sendDirect("bob", "copper")
	h.sendDirect("bob", "buy copper")
	assert.Empty(t, h.rec.texts())

	h.sendDirect("bob", "help")
	require.Len(t, h.rec.all(), 1)
	assert.True(t, h.rec.all()[0].Markdown)
}

func TestHandleFailsWhenLogIsClosed(t *testing.T) {
	log := storage.NewMemory()
	h := newHarness(t, log)
	require.NoError(t, log.Close())

	err := h.handler.Handle(context.Background(), &spark.Message{ID: "m1", RoomID: "room1", PersonID: "alice", Text: botID + " new"})
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.Equal(t, 0, h.manager.ActiveCount(), "unrecorded messages are not dispatched")
}

func TestReplayRebuildsGames(t *testing.T) {
	log := storage.NewMemory()
	live := newHarness(t, log)
	s := live.startGame("room1")
	live.send("room1", s.Current(), "buy copper")
	live.send("room1", s.Current(), "buy silver")
	live.send("room2", "bob", botID+" new")
	want := s.Checksum()

	restored := newHarness(t, log)
	n, err := restored.handler.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, live.next, n)
	assert.Equal(t, 2, restored.manager.ActiveCount())

	got, ok := restored.manager.Get("room1")
	require.True(t, ok)
	assert.Equal(t, want, got.Checksum())

	notes := restored.rec.all()
	require.Len(t, notes, 1, "replay is silent apart from the admin summary")
	assert.Equal(t, "admin", notes[0].Target)
	assert.False(t, restored.handler.gate.Muted())

	restored.send("room1", got.Current(), "done")
	assert.NotEmpty(t, restored.rec.texts()[1:], "restored games speak again")
}

func TestReplayUsesRecordedNames(t *testing.T) {
	log := storage.NewMemory()
	live := newHarness(t, log)
	live.people.names = map[string]string{"u1": "Sam", "u2": "Sam", "u3": "Kim"}
	live.send("room1", "u1", botID+" new")
	live.send("room1", "u2", botID+" join")
	live.send("room1", "u3", botID+" join")

	s, ok := live.manager.Get("room1")
	require.True(t, ok)
	want := []game.PlayerInfo{{ID: "u1", Nickname: "Sam"}, {ID: "u3", Nickname: "Kim"}}
	require.Equal(t, want, s.Players(), "second Sam is turned away")

	// Lookups fail during the restart; the log still holds the names.
	restored := newHarness(t, log)
	restored.people.names = map[string]string{}
	_, err := restored.handler.Replay(context.Background())
	require.NoError(t, err)

	got, ok := restored.manager.Get("room1")
	require.True(t, ok)
	assert.Equal(t, want, got.Players())
	assert.Equal(t, s.Checksum(), got.Checksum())
	assert.Zero(t, restored.people.calls, "replay never asks the chat API")
}

func TestNamedJoinSkipsLookup(t *testing.T) {
	h := newHarness(t, nil)
	h.send("room1", "alice", botID+" new as Al")
	h.send("room1", "bob", botID+" buy copper")
	assert.Zero(t, h.people.calls)

	entries, err := h.log.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].Nickname)
}

func TestSeedIsStable(t *testing.T) {
	assert.Equal(t, Seed("room1", "msg1"), Seed("room1", "msg1"))
	assert.NotEqual(t, Seed("room1", "msg1"), Seed("room2", "msg1"))
}
