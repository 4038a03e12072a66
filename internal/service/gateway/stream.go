// Package gateway adapts a chat-gateway deployment to the relay's bus
// interfaces: inbound group messages arrive over a WebSocket update stream,
// outbound messages go through the Bot API sendMessage endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements repository.SignalBus over the gateway WebSocket.
// All frame writes go through writeMu: gorilla/websocket allows only one
// concurrent writer per connection.
type Stream struct {
	url            string
	token          string
	sources        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	writeMu   sync.Mutex
	conn      *websocket.Conn
	pingStop  chan struct{}
	connected bool
}

// NewStream creates a gateway stream subscribed to the given source groups.
func NewStream(url, token string, sources []string, reconnectDelay, pingInterval time.Duration) drepo.SignalBus {
	return &Stream{
		url:            url,
		token:          token,
		sources:        sources,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect dials the gateway, subscribes to the source groups and starts the
// connection's ping loop.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.url, s.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	s.conn = conn
	s.connected = true

	sub := map[string]interface{}{"type": "subscribe", "chats": s.sources}
	s.writeMu.Lock()
	err = conn.WriteJSON(sub)
	s.writeMu.Unlock()
	if err != nil {
		s.connected = false
		_ = conn.Close()
		return fmt.Errorf("gateway subscribe: %w", err)
	}

	// One ping loop per connection; Close stops it before the next dial so
	// writers never stack across reconnects.
	s.pingStop = make(chan struct{})
	go s.pingLoop(conn, s.pingStop)

	return nil
}

func (s *Stream) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			_ = conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
		}
	}
}

// gwUpdate is one inbound frame from the gateway.
type gwUpdate struct {
	Type      string `json:"type"`
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Date      int64  `json:"date"` // unix seconds
}

// Read streams raw signals and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.RawSignal, <-chan error) {
	signals := make(chan *models.RawSignal, 256)
	errs := make(chan error, 1)

	// read loop
	go func() {
		defer close(signals)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("gateway conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("gateway read: %w", err)
					return
				}
				var u gwUpdate
				if err := json.Unmarshal(b, &u); err != nil {
					// ignore non-update frames
					continue
				}
				if u.Type != "message" {
					continue
				}
				at := time.Unix(u.Date, 0)
				if u.Date == 0 {
					at = time.Now()
				}
				sig := models.NewRawSignal(u.ChatID, u.MessageID, u.Text, at)
				select {
				case signals <- sig:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return signals, errs
}

// Reconnect closes and re-establishes the stream.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	return s.Connect(ctx)
}

// Close stops the ping loop and closes the WebSocket connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
