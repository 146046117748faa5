package watchers

import (
	"sync"

	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// PlayerStats are the running totals of one player over a match.
type PlayerStats struct {
	Drawn     int `json:"drawn"`
	Discarded int `json:"discarded"`
	Deleted   int `json:"deleted"`
	Played    int `json:"played"`
	Flipped   int `json:"flipped"`
	Compiles  int `json:"compiles"`
	Refreshes int `json:"refreshes"`
}

// MatchStats keeps totals for the whole match. Unlike the per-turn watchers
// it survives turn changes.
type MatchStats struct {
	*rules.BaseWatcher
	mu      sync.RWMutex
	players map[state.Player]*PlayerStats
	turns   int
	winner  state.Player
}

// NewMatchStats creates an empty statistics watcher.
func NewMatchStats() *MatchStats {
	return &MatchStats{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch, "MatchStats", state.NoPlayer),
		players: map[state.Player]*PlayerStats{
			state.PlayerOne: {},
			state.PlayerTwo: {},
		},
	}
}

// Watch implements the Watcher interface.
func (w *MatchStats) Watch(event rules.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Type == rules.EventTurnStarted {
		w.turns++
		return
	}
	if event.Type == rules.EventGameOver {
		w.winner = event.Player
		return
	}
	ps, ok := w.players[event.Player]
	if !ok {
		return
	}
	switch event.Type {
	case rules.EventAfterDraw:
		ps.Drawn += event.Count
	case rules.EventAfterRefresh:
		ps.Drawn += event.Count
		ps.Refreshes++
	case rules.EventAfterDiscard:
		ps.Discarded += event.Count
	case rules.EventAfterDelete:
		ps.Deleted += event.Count
	case rules.EventAfterPlay:
		ps.Played++
	case rules.EventOnFlip:
		ps.Flipped++
	case rules.EventAfterCompile:
		ps.Compiles++
	}
}

// Reset is a no-op: totals span the match.
func (w *MatchStats) Reset() {}

// For returns a copy of a player's totals.
func (w *MatchStats) For(p state.Player) PlayerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if ps, ok := w.players[p]; ok {
		return *ps
	}
	return PlayerStats{}
}

// Turns returns how many turns started after the first.
func (w *MatchStats) Turns() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.turns
}

// Winner returns the winner once the match is over.
func (w *MatchStats) Winner() state.Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.winner
}
