package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/retry"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum size of a frame we send (4KB)
	maxMessageSize = 4096

	// Maximum size of a frame we accept; the hub batches queued events
	// into one frame
	maxReadSize int64 = 512 << 10
)

var (
	ErrNoToken      = errors.New("realtime: no access token")
	ErrTooLarge     = errors.New("realtime: message exceeds 4096 bytes")
	errUnauthorized = errors.New("realtime: handshake rejected")
)

// Tokens supplies the access token for the handshake and renews it when the
// hub rejects it.
type Tokens interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

type Options struct {
	URL    string
	Tokens Tokens
	// Store receives the invalidations derived from hub events. Optional.
	Store *cache.Store
	// Retryer spaces reconnect attempts; the default tries 5 times, 5s apart.
	Retryer retry.Retryer
	Dialer  *websocket.Dialer
	Logger  zerolog.Logger
	// OnMessage is called for every event after its invalidations.
	OnMessage func(Message)
}

// Listener keeps one hub connection alive and replays joined rooms after
// every reconnect.
type Listener struct {
	opts Options
	log  zerolog.Logger

	mu    sync.Mutex
	rooms map[string]bool
	conn  *connection
}

type connection struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *connection) close() {
	c.once.Do(func() { close(c.done) })
}

func NewListener(opts Options) *Listener {
	if opts.Retryer == nil {
		opts.Retryer = retry.NewFixed(5*time.Second, 5)
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: writeWait}
	}
	return &Listener{opts: opts, log: opts.Logger, rooms: make(map[string]bool)}
}

// Connected reports whether a connection is currently open.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Rooms lists the joined rooms, sorted.
func (l *Listener) Rooms() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.rooms))
	for r := range l.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// JoinRoom subscribes to room now if connected, and on every reconnect.
func (l *Listener) JoinRoom(room string) {
	l.mu.Lock()
	l.rooms[room] = true
	conn := l.conn
	l.mu.Unlock()
	if conn != nil {
		l.enqueue(conn, ClientMessage{Action: "join", Room: room})
	}
}

func (l *Listener) LeaveRoom(room string) {
	l.mu.Lock()
	delete(l.rooms, room)
	conn := l.conn
	l.mu.Unlock()
	if conn != nil {
		l.enqueue(conn, ClientMessage{Action: "leave", Room: room})
	}
}

// Send queues an action for the hub, e.g. typing.
func (l *Listener) Send(msg ClientMessage) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return errors.New("realtime: not connected")
	}
	return l.enqueue(conn, msg)
}

func (l *Listener) enqueue(conn *connection, msg ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if len(data) > maxMessageSize {
		return ErrTooLarge
	}
	select {
	case conn.send <- data:
		return nil
	case <-conn.done:
		return errors.New("realtime: connection closed")
	default:
		l.log.Warn().Str("action", msg.Action).Msg("realtime send buffer full, dropping message")
		return errors.New("realtime: send buffer full")
	}
}

// Run connects and serves until ctx is done or the hub closes the
// connection normally. Other disconnects are retried with the Retryer; the
// attempt count starts over after each successful connection.
func (l *Listener) Run(ctx context.Context) error {
	for {
		var ws *websocket.Conn
		err := retry.Do(ctx, l.opts.Retryer, retryDial, func(ctx context.Context) error {
			var err error
			ws, err = l.dial(ctx)
			if err != nil {
				l.log.Warn().Err(err).Msg("realtime connect failed")
			}
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = l.serve(ctx, ws)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			l.log.Info().Msg("realtime connection closed by server")
			return nil
		}
		l.log.Warn().Err(err).Msg("realtime connection lost, reconnecting")
	}
}

func retryDial(err error) bool {
	return !errors.Is(err, ErrNoToken)
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	token := l.opts.Tokens.AccessToken()
	if token == "" {
		return nil, ErrNoToken
	}
	u, err := url.Parse(l.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, resp, err := l.opts.Dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			// The next attempt dials with the renewed token.
			if _, rerr := l.opts.Tokens.Refresh(ctx); rerr != nil {
				l.log.Debug().Err(rerr).Msg("realtime token refresh failed")
			}
			return nil, errUnauthorized
		}
		return nil, err
	}
	return ws, nil
}

// serve pumps one connection. It returns nil on a normal close.
func (l *Listener) serve(ctx context.Context, ws *websocket.Conn) error {
	conn := &connection{ws: ws, send: make(chan []byte, 64), done: make(chan struct{})}

	l.mu.Lock()
	l.conn = conn
	rooms := make([]string, 0, len(l.rooms))
	for r := range l.rooms {
		rooms = append(rooms, r)
	}
	l.mu.Unlock()
	sort.Strings(rooms)

	l.log.Info().Str("url", l.opts.URL).Int("rooms", len(rooms)).Msg("realtime connected")
	for _, r := range rooms {
		_ = l.enqueue(conn, ClientMessage{Action: "join", Room: r})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.writePump(conn)
	}()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(writeWait)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = ws.Close()
		case <-conn.done:
		}
	}()

	err := l.readPump(conn)

	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()
	conn.close()
	_ = ws.Close()
	wg.Wait()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return nil
	}
	return err
}

func (l *Listener) readPump(conn *connection) error {
	ws := conn.ws
	ws.SetReadLimit(maxReadSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		// The hub joins queued events with newlines.
		for _, frame := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			l.handle(conn, frame)
		}
	}
}

func (l *Listener) handle(conn *connection, frame []byte) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		l.log.Debug().Err(err).Msg("realtime: unreadable message")
		return
	}

	if msg.Type == MessagePing {
		_ = l.enqueue(conn, ClientMessage{Action: "pong"})
	}

	keys, known := Invalidations(msg)
	if !known {
		l.log.Debug().Str("type", string(msg.Type)).Msg("realtime: ignoring unknown event")
		return
	}
	if l.opts.Store != nil {
		for _, k := range keys {
			l.opts.Store.Invalidate(k)
		}
	}
	if len(keys) > 0 {
		l.log.Debug().Str("type", string(msg.Type)).Int("keys", len(keys)).Msg("realtime event")
	}
	if l.opts.OnMessage != nil {
		l.opts.OnMessage(msg)
	}
}

func (l *Listener) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.close()
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.close()
				return
			}
		case <-conn.done:
			return
		}
	}
}
