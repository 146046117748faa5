package watchers

import (
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// CardsDrawnWatcher tracks cards drawn this turn.
type CardsDrawnWatcher struct {
	*rules.BaseWatcher
	cardsDrawn map[state.Player]int
}

// NewCardsDrawnWatcher creates a new cards drawn watcher.
func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	return &CardsDrawnWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch, "CardsDrawnWatcher", state.NoPlayer),
		cardsDrawn:  make(map[state.Player]int),
	}
}

// Watch implements the Watcher interface.
func (w *CardsDrawnWatcher) Watch(event rules.Event) {
	switch event.Type {
	case rules.EventAfterDraw, rules.EventAfterRefresh:
		w.cardsDrawn[event.Player] += event.Count
	}
}

// Reset clears the watcher's state.
func (w *CardsDrawnWatcher) Reset() {
	w.cardsDrawn = make(map[state.Player]int)
}

// Count returns the number of cards a player drew this turn.
func (w *CardsDrawnWatcher) Count(p state.Player) int {
	return w.cardsDrawn[p]
}

// CardsDeletedWatcher tracks cards deleted by one player this turn.
type CardsDeletedWatcher struct {
	*rules.BaseWatcher
	deleted int
}

// NewCardsDeletedWatcher creates a watcher of the deletions caused by p.
func NewCardsDeletedWatcher(p state.Player) *CardsDeletedWatcher {
	return &CardsDeletedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer, "CardsDeletedWatcher", p),
	}
}

// Watch implements the Watcher interface.
func (w *CardsDeletedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventAfterDelete || !w.Applies(event) {
		return
	}
	w.deleted += event.Count
}

// Reset clears the watcher's state.
func (w *CardsDeletedWatcher) Reset() {
	w.deleted = 0
}

// Count returns the number of cards deleted this turn.
func (w *CardsDeletedWatcher) Count() int {
	return w.deleted
}
