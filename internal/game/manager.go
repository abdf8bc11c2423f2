package game

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
	"github.com/sparkplay/dominion-server-go/internal/game/rules"
)

// ManagerConfig holds what every session created by a Manager shares.
type ManagerConfig struct {
	Catalog     *cards.Catalog
	Notifier    Notifier
	Events      *rules.EventBus
	Logger      *zap.Logger
	KingdomSize int
	PileSize    int
	MaxPlayers  int
}

type slot struct {
	mu      sync.Mutex
	session *Session
	// state mirrors session.State() so it can be read without mu.
	state atomic.Int32
}

// Manager owns the active session of every room. Commands for one room run one
// at a time; different rooms proceed in parallel.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*slot
	cfg    ManagerConfig
	logger *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Catalog == nil {
		cfg.Catalog = cards.Standard()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		rooms:  make(map[string]*slot),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Create starts a new game in the room with adminID seated. A room hosts at most
// one active game.
func (m *Manager) Create(roomID, adminID, nickname string, seed uint64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rooms[roomID]; ok {
		err := newError(KindValidation, "Game already in %s", State(existing.state.Load()))
		m.cfg.Notifier.Notify(Notification{Target: roomID, Text: err.Message})
		return nil, err
	}

	session, err := NewSession(SessionConfig{
		RoomID:        roomID,
		AdminID:       adminID,
		AdminNickname: nickname,
		Catalog:       m.cfg.Catalog,
		Seed:          seed,
		Notifier:      m.cfg.Notifier,
		Events:        m.cfg.Events,
		Logger:        m.logger,
		KingdomSize:   m.cfg.KingdomSize,
		PileSize:      m.cfg.PileSize,
		MaxPlayers:    m.cfg.MaxPlayers,
	})
	if err != nil {
		return nil, err
	}
	m.rooms[roomID] = &slot{session: session}
	return session, nil
}

// Do runs fn against the room's session while holding that room's lock. A
// session that ends during fn is archived so the room can host a new game.
func (m *Manager) Do(roomID string, fn func(*Session) error) error {
	m.mu.RLock()
	sl, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return ErrNoGame
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.session == nil {
		return ErrNoGame
	}

	err := fn(sl.session)
	sl.state.Store(int32(sl.session.State()))
	if sl.session.State() == StateEnded {
		m.archive(roomID, sl)
	}
	return err
}

func (m *Manager) archive(roomID string, sl *slot) {
	ended := sl.session

	m.mu.Lock()
	if m.rooms[roomID] == sl {
		delete(m.rooms, roomID)
	}
	sl.session = nil
	m.mu.Unlock()

	m.logger.Info("game archived",
		zap.String("room", roomID),
		zap.String("game_id", ended.ID()),
		zap.String("checksum", ended.Checksum()),
	)
}

// Get returns the room's active session. Callers must not mutate it outside Do.
func (m *Manager) Get(roomID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sl, ok := m.rooms[roomID]
	if !ok {
		return nil, false
	}
	return sl.session, sl.session != nil
}

func (m *Manager) slots() map[string]*slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*slot, len(m.rooms))
	for room, sl := range m.rooms {
		out[room] = sl
	}
	return out
}

// FindWaiting returns the room of the oldest game waiting on a response from
// playerID through the given channel.
func (m *Manager) FindWaiting(playerID string, public bool) (string, bool) {
	type candidate struct {
		room    string
		created int64
	}
	var found []candidate
	for room, sl := range m.slots() {
		sl.mu.Lock()
		if sl.session != nil && sl.session.WaitingOn(playerID, public) {
			found = append(found, candidate{room: room, created: sl.session.CreatedAt().UnixNano()})
		}
		sl.mu.Unlock()
	}
	if len(found) == 0 {
		return "", false
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].created == found[j].created {
			return found[i].room < found[j].room
		}
		return found[i].created < found[j].created
	})
	return found[0].room, true
}

// Summaries lists every active game ordered by room.
func (m *Manager) Summaries() []Summary {
	slots := m.slots()
	out := make([]Summary, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.session != nil {
			out = append(out, sl.session.Summarize())
		}
		sl.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Room, out[j].Room) < 0
	})
	return out
}

// ActiveCount returns the number of rooms with a game.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
