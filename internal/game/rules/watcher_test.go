package rules

import (
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/state"
)

type countingWatcher struct {
	*BaseWatcher
	seen   int
	resets int
}

func (w *countingWatcher) Watch(event Event) {
	if w.Applies(event) {
		w.seen++
	}
}

func (w *countingWatcher) Reset() { w.resets++ }

func TestWatcherRegistryNotifies(t *testing.T) {
	registry := NewWatcherRegistry()
	match := &countingWatcher{BaseWatcher: NewBaseWatcher(WatcherScopeMatch, "count", state.NoPlayer)}
	mine := &countingWatcher{BaseWatcher: NewBaseWatcher(WatcherScopePlayer, "count", state.PlayerOne)}
	registry.AddWatcher(match)
	registry.AddWatcher(mine)

	bus := NewEventBus()
	registry.Attach(bus)
	bus.Publish(Event{Type: EventAfterDraw, Player: state.PlayerOne})
	bus.Publish(Event{Type: EventAfterDraw, Player: state.PlayerTwo})
	bus.Publish(Event{Type: EventTurnStarted, Player: state.PlayerTwo})

	if match.seen != 3 {
		t.Fatalf("expected match watcher to see 3 events, got %d", match.seen)
	}
	if mine.seen != 1 {
		t.Fatalf("expected player watcher to see 1 event, got %d", mine.seen)
	}
	if match.resets != 1 {
		t.Fatalf("expected one reset on turn start, got %d", match.resets)
	}
	if keys := registry.Keys(); len(keys) != 2 || keys[0] != "count" || keys[1] != "player_count" {
		t.Fatalf("unexpected keys %v", keys)
	}

	registry.RemoveWatcher("count")
	if registry.GetWatcher("count") != nil {
		t.Fatalf("expected watcher to be removed")
	}
}
