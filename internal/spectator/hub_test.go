package spectator

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func notification(id string, log ...string) game.Notification {
	s := state.GameState{Turn: state.PlayerTwo, Phase: state.PhaseAction, TurnNumber: 3}
	s.Player.LaneValues = [state.LaneCount]int{4, 0, 2}
	for _, line := range log {
		s.AppendLog(state.PlayerOne, line, 0, "")
	}
	return game.Notification{MatchID: id, Result: game.Result{
		State:      s,
		Animations: []state.AnimationRequest{state.NewAnimation(state.AnimationDraw, state.PlayerOne)},
		Changed:    true,
	}}
}

func readFrame(t *testing.T, conn *websocket.Conn) (Message, Frame) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env struct {
		Message
		Data Frame `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Message, env.Data
}

func TestPublishSendsOnlyNewLogLines(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(notification("m1", "player draws 1 card"))
	hub.Publish(notification("m1", "player draws 1 card", "player passes"))

	msg, frame := readFrame(t, conn)
	assert.Equal(t, "frame", msg.Type)
	assert.Equal(t, "m1", msg.MatchID)
	assert.Equal(t, 3, frame.Turn)
	assert.Equal(t, state.PlayerTwo, frame.TurnPlayer)
	assert.Equal(t, [state.LaneCount]int{4, 0, 2}, frame.Values[state.PlayerOne])
	require.Len(t, frame.Animations, 1)
	assert.Equal(t, state.AnimationDraw, frame.Animations[0].Type)
	require.Len(t, frame.Log, 1)

	_, frame = readFrame(t, conn)
	require.Len(t, frame.Log, 1)
	assert.Equal(t, "player passes", frame.Log[0].Message)
}

func TestSpectatorsFollowOneMatch(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "?match=m2")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(notification("m1", "elsewhere"))
	hub.Publish(notification("m2", "here"))

	msg, frame := readFrame(t, conn)
	assert.Equal(t, "m2", msg.MatchID)
	require.Len(t, frame.Log, 1)
	assert.Equal(t, "here", frame.Log[0].Message)
}

func TestClosingConnectionUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
