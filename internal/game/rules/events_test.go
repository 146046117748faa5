package rules

import (
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
)

func TestEventTypesMirrorTriggers(t *testing.T) {
	assert.Equal(t, cards.TriggerAfterDraw, EventAfterDraw.Trigger())
	assert.True(t, EventOnCover.Reactive())
	assert.False(t, EventPhaseChanged.Reactive())
}

func TestNewEventSequence(t *testing.T) {
	s := &state.GameState{TurnNumber: 3, Phase: state.PhaseAction}
	a := NewEvent(s, EventAfterDraw, state.PlayerOne)
	b := NewEvent(s, EventAfterDiscard, state.PlayerTwo)

	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
	assert.Equal(t, state.NoLane, a.Lane)
	assert.Equal(t, 3, a.Turn)
}

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus()
	var all, typed int
	handle := bus.Subscribe(func(Event) { all++ })
	bus.SubscribeTyped(EventAfterDraw, func(Event) { typed++ })

	bus.PublishBatch([]Event{{Type: EventAfterDraw}, {Type: EventAfterDelete}})
	assert.Equal(t, 2, all)
	assert.Equal(t, 1, typed)

	bus.Unsubscribe(handle)
	bus.Publish(Event{Type: EventAfterDraw})
	assert.Equal(t, 2, all)
	assert.Equal(t, 2, typed)
	assert.Equal(t, -1, bus.Subscribe(nil))
}
