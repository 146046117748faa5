package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compilegame/compile-server-go/internal/bots"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfPlay lets two random bots play a managed match for at most limit
// decisions and returns the last state.
func selfPlay(t *testing.T, m *Manager, id string, s state.GameState, limit int) state.GameState {
	t.Helper()
	seats := map[state.Player]*bots.RandomBot{
		state.PlayerOne: bots.NewRandomBot("one", 1, 5),
		state.PlayerTwo: bots.NewRandomBot("two", 2, 5),
	}
	for i := 0; i < limit; i++ {
		p, ok := s.Awaiting()
		if !ok {
			break
		}
		d, ok := seats[p].Decide(s)
		require.True(t, ok)
		res, err := m.Submit(id, d)
		require.NoError(t, err, "decision %d: %+v", i, d)
		s = res.State
	}
	return s
}

func TestReplayPlayback(t *testing.T) {
	replay := NewReplay("m1", defaultSetup(1), state.Checksum{Hash: "a", Version: 1})
	pass := state.Decision{Move: &state.Move{Type: state.MovePass, Player: state.PlayerOne}}

	replay.Record(pass, state.Checksum{Hash: "b", Version: 1})
	replay.Record(pass, state.Checksum{Hash: "c", Version: 1})
	assert.Equal(t, 2, replay.Size())

	f, ok := replay.Next()
	require.True(t, ok)
	assert.Equal(t, "b", f.Checksum.Hash)
	f, ok = replay.Next()
	require.True(t, ok)
	assert.Equal(t, "c", f.Checksum.Hash)
	_, ok = replay.Next()
	assert.False(t, ok)

	replay.Start()
	f, ok = replay.Next()
	require.True(t, ok)
	assert.Equal(t, "b", f.Checksum.Hash)

	_, ok = replay.FrameAt(5)
	assert.False(t, ok)
}

func TestSelfPlayReplaysExactly(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	recorder := NewReplayRecorder(nil, dir)
	m := NewManager(e, recorder, nil)
	notes := 0
	m.SetNotificationHandler(func(Notification) { notes++ })

	id, s, err := m.Start(defaultSetup(99))
	require.NoError(t, err)
	require.True(t, recorder.IsRecording(id))

	s = selfPlay(t, m, id, s, 300)

	replay, ok := recorder.GetReplay(id)
	require.True(t, ok)
	frames := replay.Size()
	require.Greater(t, frames, 0)
	assert.Equal(t, frames+1, notes)

	final, err := replay.Play(e)
	require.NoError(t, err)
	want, err := state.ComputeChecksum(s)
	require.NoError(t, err)
	got, err := state.ComputeChecksum(final)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	require.NoError(t, m.End(id))
	assert.False(t, recorder.IsRecording(id))
	_, err = os.Stat(filepath.Join(dir, id+".replay"))
	require.NoError(t, err)

	loaded, err := recorder.LoadReplay(id)
	require.NoError(t, err)
	assert.Equal(t, frames, loaded.Size())
	assert.Equal(t, replay.Initial, loaded.Initial)
	require.NoError(t, loaded.Verify(e))

	loaded.Frames[frames-1].Checksum.Hash = "tampered"
	assert.Error(t, loaded.Verify(e))
}

func TestReplayDetectsDifferentDeal(t *testing.T) {
	e := newTestEngine(t)
	dealt, err := e.NewMatch(defaultSetup(5))
	require.NoError(t, err)
	sum, err := state.ComputeChecksum(e.Advance(dealt).State)
	require.NoError(t, err)

	assert.NoError(t, NewReplay("same", defaultSetup(5), sum).Verify(e))
	assert.Error(t, NewReplay("other", defaultSetup(6), sum).Verify(e))
}

func TestLoadReplayFromMissingFile(t *testing.T) {
	_, err := LoadReplayFromFile(t.TempDir(), "missing")
	assert.Error(t, err)
}
