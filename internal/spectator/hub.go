// Package spectator streams managed matches to websocket clients.
package spectator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope of everything sent over the socket.
type Message struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Frame is what a renderer needs after one decision: the animations to play
// and the log lines written since the previous frame.
type Frame struct {
	Turn       int                                   `json:"turn"`
	Phase      state.Phase                           `json:"phase"`
	TurnPlayer state.Player                          `json:"turn_player"`
	Awaiting   state.Player                          `json:"awaiting,omitempty"`
	Winner     state.Player                          `json:"winner,omitempty"`
	Values     map[state.Player][state.LaneCount]int `json:"values"`
	Animations []state.AnimationRequest              `json:"animations"`
	Log        []state.LogEntry                      `json:"log"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu sync.RWMutex
	// matchID filters the feed; empty receives every match.
	matchID string
}

func (c *client) wants(matchID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchID == "" || c.matchID == matchID
}

type envelope struct {
	matchID string
	body    []byte
}

// Hub fans match frames out to connected spectators.
type Hub struct {
	logger *zap.Logger

	clients    map[*client]bool
	broadcast  chan envelope
	register   chan *client
	unregister chan *client
	done       chan struct{}
	connected  atomic.Int32

	mu      sync.Mutex
	logSeen map[string]int
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan envelope, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logSeen:    make(map[string]int),
	}
}

// Run dispatches until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.connected.Store(int32(len(h.clients)))
			h.logger.Debug("spectator connected", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("spectator disconnected", zap.Int("clients", len(h.clients)))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.matchID) {
					continue
				}
				select {
				case c.send <- msg.body:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Store(int32(len(h.clients)))
}

// Clients returns the number of connected spectators.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish turns a match notification into a frame for spectators. It is
// meant to be installed as the manager's notification handler.
func (h *Hub) Publish(n game.Notification) {
	s := n.Result.State

	h.mu.Lock()
	from := h.logSeen[n.MatchID]
	if from > len(s.Log) {
		from = 0
	}
	h.logSeen[n.MatchID] = len(s.Log)
	h.mu.Unlock()

	frame := Frame{
		Turn:       s.TurnNumber,
		Phase:      s.Phase,
		TurnPlayer: s.Turn,
		Winner:     s.Winner,
		Values: map[state.Player][state.LaneCount]int{
			state.PlayerOne: s.Player.LaneValues,
			state.PlayerTwo: s.Opponent.LaneValues,
		},
		Animations: n.Result.Animations,
		Log:        append([]state.LogEntry(nil), s.Log[from:]...),
	}
	if p, ok := s.Awaiting(); ok {
		frame.Awaiting = p
	}
	body, err := json.Marshal(Message{Type: "frame", MatchID: n.MatchID, Data: frame})
	if err != nil {
		h.logger.Error("failed to encode frame", zap.String("match_id", n.MatchID), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{matchID: n.MatchID, body: body}:
	default:
		h.logger.Warn("spectator feed is full, dropping frame", zap.String("match_id", n.MatchID))
	}
}

// ServeHTTP upgrades the request to a websocket spectator connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		matchID: r.URL.Query().Get("match"),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// readPump handles "watch" messages that switch the followed match.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Debug("ignoring malformed spectator message", zap.Error(err))
			continue
		}
		if msg.Type == "watch" {
			c.mu.Lock()
			c.matchID = msg.MatchID
			c.mu.Unlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
