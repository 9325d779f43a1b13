package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"galebot/internal/event"
	"galebot/internal/logger"
	"galebot/internal/pkg/text"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const timeSyncEvent = "timeSync"

// Frame is the broker wire envelope. Every command and every inbound event is
// one JSON frame tagged by name; request_id is a local monotonic id the
// broker echoes nowhere useful, so correlation happens by name + payload.
type Frame struct {
	Name      string `json:"name"`
	Msg       any    `json:"msg"`
	RequestID int64  `json:"request_id"`
}

// Config describes one broker websocket endpoint.
type Config struct {
	URL            string
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	return c
}

// Session owns exactly one full-duplex connection to a broker endpoint. It
// serializes typed commands to frames and fans every inbound frame out
// through the Bus under its event-name tag.
type Session struct {
	cfg Config
	bus *event.Bus

	mu   sync.Mutex
	conn *websocket.Conn

	requestID atomic.Int64

	clockMu     sync.RWMutex
	clockOffset time.Duration
	clockSet    bool
}

func New(cfg Config, bus *event.Bus) *Session {
	return &Session{cfg: cfg.withDefaults(), bus: bus}
}

func (s *Session) Bus() *event.Bus { return s.bus }

// IsConnected reflects current transport readiness. Other operations consult
// this instead of caching a flag, so state cannot drift after an unexpected
// close.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Connect opens the connection and starts the inbound dispatch loop. It
// reports true once the transport is open (immediately when already open)
// and false when the dial fails or the configured timeout elapses first.
func (s *Session) Connect(ctx context.Context) bool {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.cfg.URL, nil)
	if err != nil {
		logger.Errorf("session: dial %s failed: %v", s.cfg.URL, err)
		return false
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	logger.Infof("session: connected to %s", s.cfg.URL)
	go s.readLoop(conn)
	return true
}

// Send serializes a command frame and writes it. It reports false without
// writing when the session is not connected; frames are never queued.
func (s *Session) Send(name string, body any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	frame := Frame{Name: name, Msg: body, RequestID: s.requestID.Add(1)}
	if err := s.conn.WriteJSON(frame); err != nil {
		logger.Errorf("session: write %q failed: %v", name, err)
		return false
	}
	return true
}

// Disconnect closes the transport with a normal-closure code; it is a no-op
// when not connected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing connection normally")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		logger.Debugf("session: close handshake failed: %v", err)
	}
	conn.Close()
}

// ServerNow returns the broker's notion of "now", derived from the offset
// observed on the first time-sync event; ok is false until that event
// arrives.
func (s *Session) ServerNow() (time.Time, bool) {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	if !s.clockSet {
		return time.Time{}, false
	}
	return time.Now().Add(s.clockOffset), true
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				logger.Warnf("session: connection closed: %v", err)
			}
			s.mu.Unlock()
			return
		}
		s.onFrame(data)
	}
}

func (s *Session) onFrame(data []byte) {
	parsed := gjson.ParseBytes(data)
	name := parsed.Get("name").String()
	if name == "" {
		logger.Debugf("session: dropping unnamed frame: %s", data)
		return
	}
	msg := parsed.Get("msg")

	if name == timeSyncEvent {
		serverUnix := msg.Int() / 1000
		s.clockMu.Lock()
		s.clockOffset = time.Unix(serverUnix, 0).Sub(time.Now().Truncate(time.Second))
		s.clockSet = true
		s.clockMu.Unlock()
	}

	logger.Debugf("session: frame %s: %s", name, text.Truncate(msg.Raw, 512))

	// Republished even for timeSync: establishment explicitly awaits it.
	s.bus.Publish(name, msg)
}
