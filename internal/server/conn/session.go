package conn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OCharnyshevich/snake-server/internal/server/packet"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
	pongWait   = 30 * time.Second

	// maxMessageSize bounds client messages; controls are 9 bytes and joins
	// are short JSON.
	maxMessageSize = 1024

	// DefaultQueueSize is the number of outbound messages a session buffers
	// before it starts dropping frames.
	DefaultQueueSize = 8
)

// Arena is the game side of a session. Calls may come from any goroutine.
type Arena interface {
	// Connect registers a new spectator and returns its observer id.
	Connect(writeFrame func([]byte) bool, writeJSON func(any) bool) uint32
	Join(id uint32, name string, skin uint8)
	Control(id uint32, c packet.Control)
	Leave(id uint32)
}

type outbound struct {
	kind int
	data []byte
}

// Session is one websocket client. Reads run on the Serve goroutine;
// writes go through a bounded queue drained by a writer goroutine, so the
// tick never waits for a slow client.
type Session struct {
	ws  *websocket.Conn
	log *slog.Logger

	out       chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps an upgraded websocket connection.
func NewSession(ws *websocket.Conn, log *slog.Logger, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		ws:   ws,
		log:  log.With("addr", ws.RemoteAddr().String()),
		out:  make(chan outbound, queueSize),
		done: make(chan struct{}),
	}
}

// WriteFrame queues a binary frame. It reports false when the queue is
// full or the session is closed; the frame is dropped.
func (s *Session) WriteFrame(data []byte) bool {
	return s.enqueue(outbound{kind: websocket.BinaryMessage, data: data})
}

// WriteJSON queues a text message.
func (s *Session) WriteJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal text message", "error", err)
		return false
	}
	return s.enqueue(outbound{kind: websocket.TextMessage, data: data})
}

func (s *Session) enqueue(m outbound) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- m:
		return true
	default:
		return false
	}
}

// Serve runs the session until the client disconnects or ctx is done.
func (s *Session) Serve(ctx context.Context, arena Arena) {
	id := arena.Connect(s.WriteFrame, s.WriteJSON)
	log := s.log.With("observer", id)
	log.Info("session opened")

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.close()
		arena.Leave(id)
		log.Info("session closed")
	}()

	go s.writeLoop(ctx, log)
	go func() {
		<-ctx.Done()
		s.close()
	}()

	s.ws.SetReadLimit(maxMessageSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := s.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Debug("read failed", "error", err)
			}
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))

		switch kind {
		case websocket.BinaryMessage:
			c, err := packet.ParseControl(data)
			if err != nil {
				log.Debug("dropping control frame", "error", err)
				continue
			}
			arena.Control(id, c)
		case websocket.TextMessage:
			j, err := packet.ParseText(data)
			if err != nil {
				log.Debug("dropping text message", "error", err)
				continue
			}
			arena.Join(id, j.Name, j.Skin)
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case m := <-s.out:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(m.kind, m.data); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) && ctx.Err() == nil {
					log.Debug("write failed", "error", err)
				}
				s.close()
				return
			}
		case <-ticker.C:
			if err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.close()
				return
			}
		}
	}
}

// close stops the writer and unblocks the reader. It is safe to call more
// than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		// Give the writer a moment to send the close frame before the
		// socket goes away underneath the reader.
		time.AfterFunc(writeWait/10, func() { _ = s.ws.Close() })
	})
}
