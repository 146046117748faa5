package rules

import (
	"sync"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// EventType identifies something that happened in a match.
type EventType string

// Reactive events share their names with card triggers.
const (
	EventAfterDraw           = EventType(cards.TriggerAfterDraw)
	EventAfterDiscard        = EventType(cards.TriggerAfterDiscard)
	EventAfterRefresh        = EventType(cards.TriggerAfterRefresh)
	EventAfterShuffle        = EventType(cards.TriggerAfterShuffle)
	EventAfterClearCache     = EventType(cards.TriggerAfterClearCache)
	EventAfterDelete         = EventType(cards.TriggerAfterDelete)
	EventAfterPlay           = EventType(cards.TriggerAfterPlay)
	EventAfterCompile        = EventType(cards.TriggerAfterCompile)
	EventOnCover             = EventType(cards.TriggerOnCover)
	EventOnFlip              = EventType(cards.TriggerOnFlip)
	EventBeforeCompileDelete = EventType(cards.TriggerBeforeCompileDelete)
)

// Structural events are published for observers only.
const (
	EventPhaseChanged   EventType = "phase_changed"
	EventTurnStarted    EventType = "turn_started"
	EventControlChanged EventType = "control_changed"
	EventGameOver       EventType = "game_over"
)

// Trigger returns the card trigger matching the event.
func (et EventType) Trigger() cards.Trigger {
	return cards.Trigger(et)
}

// Reactive reports whether cards can respond to the event.
func (et EventType) Reactive() bool {
	return et.Trigger().Reactive()
}

// Event is one occurrence raised while resolving effects.
type Event struct {
	Type   EventType    `json:"type"`
	Seq    uint64       `json:"seq"`
	Player state.Player `json:"player"`
	CardID string       `json:"cardId,omitempty"`
	Lane   int          `json:"lane"`
	Count  int          `json:"count,omitempty"`
	Turn   int          `json:"turn"`
	Phase  state.Phase  `json:"phase"`
}

// NewEvent creates an event stamped with the next sequence number of s.
func NewEvent(s *state.GameState, eventType EventType, player state.Player) Event {
	return Event{
		Type:   eventType,
		Seq:    s.NextEventSeq(),
		Player: player,
		Lane:   state.NoLane,
		Turn:   s.TurnNumber,
		Phase:  s.Phase,
	}
}

// Listener receives published events.
type Listener func(Event)

// TypedListener is a listener filtered by event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus is a synchronous publish/subscribe hub for match observers.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
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
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
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
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}
