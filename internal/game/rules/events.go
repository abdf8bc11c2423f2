package rules

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a game event.
type EventType string

const (
	EventGameCreated     EventType = "GAME_CREATED"
	EventPlayerJoined    EventType = "PLAYER_JOINED"
	EventPlayerRenamed   EventType = "PLAYER_RENAMED"
	EventGameStarted     EventType = "GAME_STARTED"
	EventTurnStarted     EventType = "TURN_STARTED"
	EventCardPlayed      EventType = "CARD_PLAYED"
	EventCardBought      EventType = "CARD_BOUGHT"
	EventCardGained      EventType = "CARD_GAINED"
	EventCardDiscarded   EventType = "CARD_DISCARDED"
	EventPileEmptied     EventType = "PILE_EMPTIED"
	EventPendingAdded    EventType = "PENDING_ADDED"
	EventPendingResolved EventType = "PENDING_RESOLVED"
	EventGameEnded       EventType = "GAME_ENDED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType `json:"type"`
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	PlayerID    string    `json:"player_id,omitempty"`
	Card        string    `json:"card,omitempty"`
	Amount      int       `json:"amount,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, gameID, playerID, card string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		GameID:    gameID,
		PlayerID:  playerID,
		Card:      card,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, gameID, playerID, card string, amount int) Event {
	evt := NewEvent(eventType, gameID, playerID, card)
	evt.Amount = amount
	return evt
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

type typedListener struct {
	handle    int
	eventType EventType
	callback  Listener
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]typedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]typedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback Listener) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], typedListener{
		handle:    handle,
		eventType: eventType,
		callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.callback(event)
	}
}
