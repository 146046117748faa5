package rules

import (
	"sort"
	"sync"

	"github.com/compilegame/compile-server-go/internal/game/state"
)

// WatcherScope defines what a watcher tracks.
type WatcherScope int

const (
	// WatcherScopeMatch tracks events for the whole match.
	WatcherScopeMatch WatcherScope = iota
	// WatcherScopePlayer tracks events caused by one player.
	WatcherScopePlayer
)

// String returns the string representation of the watcher scope.
func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeMatch:
		return "MATCH"
	case WatcherScopePlayer:
		return "PLAYER"
	default:
		return "UNKNOWN"
	}
}

// Watcher observes published match events. Watchers never influence rules;
// they feed statistics and spectators.
type Watcher interface {
	// Watch is called for every published event.
	Watch(event Event)
	// Reset clears per-turn tracking.
	Reset()
	// Scope returns what the watcher tracks.
	Scope() WatcherScope
	// Key returns a unique key for this watcher instance.
	Key() string
}

// BaseWatcher provides the bookkeeping shared by watchers.
type BaseWatcher struct {
	scope  WatcherScope
	player state.Player
	key    string
}

// NewBaseWatcher creates a base watcher. player is only used for player scope.
func NewBaseWatcher(scope WatcherScope, key string, player state.Player) *BaseWatcher {
	if scope == WatcherScopePlayer && player != state.NoPlayer {
		key = string(player) + "_" + key
	}
	return &BaseWatcher{scope: scope, player: player, key: key}
}

// Scope returns the watcher's scope.
func (bw *BaseWatcher) Scope() WatcherScope {
	return bw.scope
}

// Player returns the tracked player for player-scoped watchers.
func (bw *BaseWatcher) Player() state.Player {
	return bw.player
}

// Key returns the unique key for this watcher.
func (bw *BaseWatcher) Key() string {
	return bw.key
}

// Applies reports whether the event concerns this watcher.
func (bw *BaseWatcher) Applies(event Event) bool {
	return bw.scope == WatcherScopeMatch || event.Player == bw.player
}

// WatcherRegistry manages the watchers of one match.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
}

// NewWatcherRegistry creates a new watcher registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{watchers: make(map[string]Watcher)}
}

// AddWatcher registers a watcher, replacing any with the same key.
func (wr *WatcherRegistry) AddWatcher(w Watcher) {
	if w == nil {
		return
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.watchers[w.Key()] = w
}

// RemoveWatcher removes the watcher with the given key.
func (wr *WatcherRegistry) RemoveWatcher(key string) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	delete(wr.watchers, key)
}

// GetWatcher returns the watcher with the given key, or nil.
func (wr *WatcherRegistry) GetWatcher(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.watchers[key]
}

// Keys returns the registered keys, sorted.
func (wr *WatcherRegistry) Keys() []string {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	keys := make([]string, 0, len(wr.watchers))
	for k := range wr.watchers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NotifyWatchers delivers an event to every watcher. A turn start resets
// per-turn tracking first.
func (wr *WatcherRegistry) NotifyWatchers(event Event) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, w := range wr.watchers {
		if event.Type == EventTurnStarted {
			w.Reset()
		}
		w.Watch(event)
	}
}

// Attach subscribes the registry to a bus and returns the subscription handle.
func (wr *WatcherRegistry) Attach(bus *EventBus) int {
	return bus.Subscribe(wr.NotifyWatchers)
}
