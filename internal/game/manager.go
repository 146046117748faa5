package game

import (
	"fmt"
	"sync"

	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is published after every accepted decision of a managed match.
type Notification struct {
	MatchID string
	Result  Result
}

// NotificationHandler receives match notifications. It runs on the goroutine
// that submitted the decision, after the match lock is released.
type NotificationHandler func(Notification)

type match struct {
	mu       sync.Mutex
	id       string
	state    state.GameState
	turnSeen int
	// history keeps the state at the start of recent turns.
	history map[int]state.GameState
}

// Manager runs several matches over one Engine. Decisions for the same match
// are applied one at a time.
type Manager struct {
	logger   *zap.Logger
	engine   *Engine
	recorder *ReplayRecorder

	mu                  sync.RWMutex
	matches             map[string]*match
	notificationHandler NotificationHandler
	historyTurns        int
}

// NewManager creates a manager. recorder may be nil.
func NewManager(engine *Engine, recorder *ReplayRecorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:       logger,
		engine:       engine,
		recorder:     recorder,
		matches:      make(map[string]*match),
		historyTurns: 4,
	}
}

// SetNotificationHandler installs the handler for match notifications.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationHandler = handler
}

func (m *Manager) notify(n Notification) {
	m.mu.RLock()
	handler := m.notificationHandler
	m.mu.RUnlock()
	if handler != nil {
		handler(n)
	}
}

// Start deals a match, runs it to its first decision and returns its ID.
func (m *Manager) Start(setup MatchSetup) (string, state.GameState, error) {
	dealt, err := m.engine.NewMatch(setup)
	if err != nil {
		return "", state.GameState{}, err
	}
	res := m.engine.Advance(dealt)
	id := uuid.NewString()
	mt := &match{
		id:       id,
		state:    res.State,
		turnSeen: res.State.TurnNumber,
		history:  map[int]state.GameState{res.State.TurnNumber: res.State},
	}

	m.mu.Lock()
	m.matches[id] = mt
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.StartRecording(id, setup, res.State); err != nil {
			m.logger.Warn("replay recording disabled", zap.String("match_id", id), zap.Error(err))
		}
	}
	m.logger.Info("match started",
		zap.String("match_id", id),
		zap.String("first", string(res.State.Turn)),
	)
	m.notify(Notification{MatchID: id, Result: res})
	return id, res.State, nil
}

func (m *Manager) get(id string) (*match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s not found", id)
	}
	return mt, nil
}

// Submit applies a decision to a match. A rejected decision leaves the match
// unchanged and returns an error.
func (m *Manager) Submit(id string, d state.Decision) (Result, error) {
	mt, err := m.get(id)
	if err != nil {
		return Result{}, err
	}

	mt.mu.Lock()
	if mt.state.Done() {
		mt.mu.Unlock()
		return Result{State: mt.state}, fmt.Errorf("match %s has ended", id)
	}
	res := m.engine.Apply(mt.state, d)
	if !res.Changed {
		mt.mu.Unlock()
		return res, fmt.Errorf("decision rejected in match %s", id)
	}
	mt.state = res.State
	if res.State.TurnNumber != mt.turnSeen {
		mt.turnSeen = res.State.TurnNumber
		mt.history[mt.turnSeen] = res.State
		delete(mt.history, mt.turnSeen-m.historyTurns)
	}
	mt.mu.Unlock()

	if m.recorder != nil {
		m.recorder.Record(id, d, res.State)
	}
	if res.State.Done() {
		m.logger.Info("match finished",
			zap.String("match_id", id),
			zap.String("winner", string(res.State.Winner)),
			zap.Int("turn", res.State.TurnNumber),
		)
	}
	m.notify(Notification{MatchID: id, Result: res})
	return res, nil
}

// State returns the current state of a match.
func (m *Manager) State(id string) (state.GameState, error) {
	mt, err := m.get(id)
	if err != nil {
		return state.GameState{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.state.Clone(), nil
}

// TurnStart returns the state at the start of a recent turn.
func (m *Manager) TurnStart(id string, turn int) (state.GameState, error) {
	mt, err := m.get(id)
	if err != nil {
		return state.GameState{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	s, ok := mt.history[turn]
	if !ok {
		return state.GameState{}, fmt.Errorf("turn %d of match %s is not kept", turn, id)
	}
	return s.Clone(), nil
}

// Matches returns the IDs of the running matches.
func (m *Manager) Matches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.matches))
	for id := range m.matches {
		ids = append(ids, id)
	}
	return ids
}

// End forgets a match, saving its replay when one was recorded.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	_, ok := m.matches[id]
	delete(m.matches, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("match %s not found", id)
	}
	if m.recorder != nil && m.recorder.IsRecording(id) {
		if err := m.recorder.SaveReplay(id); err != nil {
			return err
		}
	}
	m.logger.Info("match ended", zap.String("match_id", id))
	return nil
}
