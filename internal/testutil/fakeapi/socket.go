package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is the server frame: {type, payload, timestamp}.
type wsMessage struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type wsAction struct {
	Action  string         `json:"action"`
	Room    string         `json:"room,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]bool
	once   sync.Once
}

// hub tracks live sockets. It never takes Server.mu, so handlers may push
// while holding it.
type hub struct {
	mu       sync.Mutex
	clients  map[*wsClient]bool
	dials    int
	received []wsAction
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.dials++
}

func (h *hub) drop(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
		h.drop(c)
	}
}

func (h *hub) toRoom(room string, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if room != "" && !c.rooms[room] {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ============================================
// Test controls
// ============================================

// Push sends msgType to every connected socket.
func (s *Server) Push(msgType string, payload map[string]any) {
	s.hub.toRoom("", wsMessage{Type: msgType, Payload: payload, Timestamp: now()})
}

// PushToRoom sends msgType to sockets that joined room.
func (s *Server) PushToRoom(room, msgType string, payload map[string]any) {
	s.hub.toRoom(room, wsMessage{Type: msgType, Payload: payload, Timestamp: now()})
}

// Rooms lists the rooms userID's sockets are in, sorted.
func (s *Server) Rooms(userID string) []string {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	set := map[string]bool{}
	for c := range s.hub.clients {
		if c.userID != userID {
			continue
		}
		for r := range c.rooms {
			set[r] = true
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Connections counts live sockets.
func (s *Server) Connections() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.clients)
}

// Dials counts accepted upgrades since the server started.
func (s *Server) Dials() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.hub.dials
}

// Received returns the client actions seen so far.
func (s *Server) Received() []wsAction {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return append([]wsAction(nil), s.hub.received...)
}

// DropConnections closes every socket without a close frame, as a network
// failure would.
func (s *Server) DropConnections() {
	s.hub.closeAll()
}

// ============================================
// Upgrade and pumps
// ============================================

func (s *Server) serveWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	userID, ok := s.userFromToken(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		rooms:  map[string]bool{"user:" + userID: true},
	}
	s.hub.add(client)

	go s.writePump(client)
	go s.readPump(client)
}

func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.hub.drop(c)
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var act wsAction
		if err := json.Unmarshal(data, &act); err != nil {
			continue
		}
		s.hub.mu.Lock()
		s.hub.received = append(s.hub.received, act)
		switch act.Action {
		case "join":
			if act.Room != "" {
				c.rooms[act.Room] = true
			}
		case "leave":
			delete(c.rooms, act.Room)
		}
		s.hub.mu.Unlock()

		switch act.Action {
		case "join", "leave":
			s.reply(c, wsMessage{Type: "ack", Payload: map[string]any{"action": act.Action, "room": act.Room}})
		case "ping":
			s.reply(c, wsMessage{Type: "pong", Payload: map[string]any{"time": time.Now().Unix()}})
		}
	}
}

func (s *Server) reply(c *wsClient, msg wsMessage) {
	msg.Timestamp = now()
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if !s.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump batches queued frames with newlines, like the production hub.
func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(msg)
			for n := len(c.send); n > 0; n-- {
				next, ok := <-c.send
				if !ok {
					break
				}
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(next)
			}
			if err := w.Close(); err != nil {
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
