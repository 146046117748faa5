package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/compilegame/compile-server-go/internal/game/state"
	"go.uber.org/zap"
)

const replayVersion = 1

// Frame is one recorded decision and the checksum of the state it produced.
type Frame struct {
	Decision state.Decision
	Checksum state.Checksum
}

// Replay is a recorded match: the setup, the checksum of the dealt state and
// every decision applied after it. Replaying the decisions through an engine
// must reproduce every checksum.
type Replay struct {
	MatchID      string
	Setup        MatchSetup
	Initial      state.Checksum
	Frames       []Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay for a match.
func NewReplay(matchID string, setup MatchSetup, initial state.Checksum) *Replay {
	return &Replay{
		MatchID: matchID,
		Setup:   setup,
		Initial: initial,
		Frames:  make([]Frame, 0),
	}
}

// Record appends a decision and the checksum of the resulting state.
func (r *Replay) Record(d state.Decision, sum state.Checksum) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Frames = append(r.Frames, Frame{Decision: d, Checksum: sum})
}

// Start rewinds playback.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the next frame, or false at the end.
func (r *Replay) Next() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Frames) {
		f := r.Frames[r.CurrentIndex]
		r.CurrentIndex++
		return f, true
	}
	return Frame{}, false
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Frames)
}

// FrameAt returns the frame at index.
func (r *Replay) FrameAt(index int) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.Frames) {
		return r.Frames[index], true
	}
	return Frame{}, false
}

// Play re-runs the replay through e and returns the final state. It stops at
// the first frame whose checksum differs from the recording.
func (r *Replay) Play(e *Engine) (state.GameState, error) {
	r.mu.RLock()
	frames := append([]Frame(nil), r.Frames...)
	setup := r.Setup
	initial := r.Initial
	r.mu.RUnlock()

	s, err := e.NewMatch(setup)
	if err != nil {
		return state.GameState{}, fmt.Errorf("failed to deal replay %s: %w", r.MatchID, err)
	}
	s = e.Advance(s).State
	sum, err := state.ComputeChecksum(s)
	if err != nil {
		return s, err
	}
	if !sum.Equal(initial) {
		return s, fmt.Errorf("replay %s diverged at deal: got %s, recorded %s", r.MatchID, sum.Hash, initial.Hash)
	}
	for i, f := range frames {
		res := e.Apply(s, f.Decision)
		if !res.Changed {
			return s, fmt.Errorf("replay %s: decision %d was rejected", r.MatchID, i)
		}
		s = res.State
		sum, err := state.ComputeChecksum(s)
		if err != nil {
			return s, err
		}
		if !sum.Equal(f.Checksum) {
			return s, fmt.Errorf("replay %s diverged at decision %d: got %s, recorded %s", r.MatchID, i, sum.Hash, f.Checksum.Hash)
		}
	}
	return s, nil
}

// Verify reports whether the replay reproduces exactly through e.
func (r *Replay) Verify(e *Engine) error {
	_, err := r.Play(e)
	return err
}

type replayMetadata struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	Setup      MatchSetup
	Initial    state.Checksum
	FrameCount int
}

// SaveToFile writes the replay as a gzipped gob stream to directory.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.MatchID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)
	metadata := replayMetadata{
		MatchID:    r.MatchID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		Setup:      r.Setup,
		Initial:    r.Initial,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Frames {
		if err := encoder.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", matchID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)
	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.MatchID, metadata.Setup, metadata.Initial)
	for i := 0; i < metadata.FrameCount; i++ {
		var f Frame
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, f)
	}
	return replay, nil
}

// ReplayRecorder keeps the replays of running matches.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewReplayRecorder creates a recorder that saves to saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// StartRecording begins a replay for a freshly dealt match.
func (rr *ReplayRecorder) StartRecording(matchID string, setup MatchSetup, dealt state.GameState) error {
	sum, err := state.ComputeChecksum(dealt)
	if err != nil {
		return fmt.Errorf("failed to checksum dealt state: %w", err)
	}

	rr.mu.Lock()
	rr.replays[matchID] = NewReplay(matchID, setup, sum)
	rr.mu.Unlock()

	rr.logger.Info("started replay recording", zap.String("match_id", matchID))
	return nil
}

// Record appends a decision to a match's replay, if it is being recorded.
func (rr *ReplayRecorder) Record(matchID string, d state.Decision, s state.GameState) {
	rr.mu.RLock()
	replay := rr.replays[matchID]
	rr.mu.RUnlock()

	if replay == nil {
		return
	}
	sum, err := state.ComputeChecksum(s)
	if err != nil {
		rr.logger.Error("failed to checksum state", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	replay.Record(d, sum)
	rr.logger.Debug("recorded replay frame",
		zap.String("match_id", matchID),
		zap.Int("frame_count", replay.Size()),
	)
}

// GetReplay returns the replay of a match.
func (rr *ReplayRecorder) GetReplay(matchID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[matchID]
	return replay, exists
}

// SaveReplay writes a replay to disk and forgets it.
func (rr *ReplayRecorder) SaveReplay(matchID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[matchID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for match %s", matchID)
	}
	delete(rr.replays, matchID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("match_id", matchID),
		zap.Int("frame_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// LoadReplay reads a saved replay.
func (rr *ReplayRecorder) LoadReplay(matchID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.saveDir, matchID)
	if err != nil {
		return nil, err
	}
	rr.logger.Info("loaded replay from disk",
		zap.String("match_id", matchID),
		zap.Int("frame_count", replay.Size()),
	)
	return replay, nil
}

// ClearReplay drops a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, matchID)
}

// IsRecording reports whether a match is being recorded.
func (rr *ReplayRecorder) IsRecording(matchID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	_, ok := rr.replays[matchID]
	return ok
}
