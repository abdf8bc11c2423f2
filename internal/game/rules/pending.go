package rules

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// PendingAction is a response a specific player owes before play can continue.
type PendingAction struct {
	ID          string
	PlayerID    string
	Description string
	Remaining   int
	// Public entries are answered in the game room, private ones by direct message.
	Public bool
	// Respond handles one answer; returning false leaves Remaining untouched.
	Respond func(card string) bool
}

// Resolution describes the outcome of one Resolve call.
type Resolution struct {
	ActionID    string
	Description string
	Accepted    bool
	Remaining   int
	Done        bool
}

// PendingQueue holds outstanding pending actions in the order they were queued.
type PendingQueue struct {
	mu    sync.Mutex
	items []PendingAction
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{
		items: make([]PendingAction, 0, 4),
	}
}

// Enqueue adds an action and returns its ID. Actions with a non-positive count are ignored.
func (q *PendingQueue) Enqueue(action PendingAction) string {
	if action.Remaining <= 0 {
		return ""
	}
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	action.PlayerID = strings.TrimSpace(action.PlayerID)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, action)
	return action.ID
}

// Resolve hands card to the first action waiting on playerID through the given
// channel. It returns false when nothing is waiting on that player and channel.
func (q *PendingQueue) Resolve(playerID, card string, public bool) (Resolution, bool) {
	q.mu.Lock()
	var target PendingAction
	found := false
	for _, item := range q.items {
		if item.PlayerID == playerID && item.Public == public {
			target = item
			found = true
			break
		}
	}
	q.mu.Unlock()

	if !found {
		return Resolution{}, false
	}

	res := Resolution{
		ActionID:    target.ID,
		Description: target.Description,
		Remaining:   target.Remaining,
	}
	if target.Respond != nil && !target.Respond(card) {
		return res, true
	}
	res.Accepted = true

	q.mu.Lock()
	defer q.mu.Unlock()
	for idx := range q.items {
		if q.items[idx].ID != target.ID {
			continue
		}
		q.items[idx].Remaining--
		res.Remaining = q.items[idx].Remaining
		if q.items[idx].Remaining <= 0 {
			q.items = append(q.items[:idx], q.items[idx+1:]...)
			res.Done = true
		}
		break
	}
	return res, true
}

// Waiting reports whether playerID owes a response on the given channel.
func (q *PendingQueue) Waiting(playerID string, public bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.PlayerID == playerID && item.Public == public {
			return true
		}
	}
	return false
}

// ForPlayer returns copies of every action owed by playerID.
func (q *PendingQueue) ForPlayer(playerID string) []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, 0)
	for _, item := range q.items {
		if item.PlayerID == playerID {
			out = append(out, item)
		}
	}
	return out
}

// List returns a copy of all actions (oldest first).
func (q *PendingQueue) List() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	cpy := make([]PendingAction, len(q.items))
	copy(cpy, q.items)
	return cpy
}

// Len returns the number of outstanding actions.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether nothing is outstanding.
func (q *PendingQueue) Empty() bool {
	return q.Len() == 0
}
