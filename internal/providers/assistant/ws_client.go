package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var ErrClientClosed = errors.New("assistant client closed")

// WSClient talks to the hosted voice assistant over a websocket. One call at a time.
type WSClient struct {
	url    string
	apiKey string
	dialer *websocket.Dialer
	log    *logrus.Entry

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

type wireFrame struct {
	Type      string        `json:"type"`
	Assistant *StartRequest `json:"assistant,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func NewWSClient(url, apiKey string, l *logrus.Logger) *WSClient {
	if l == nil {
		l = logrus.New()
	}
	return &WSClient{
		url:    url,
		apiKey: apiKey,
		dialer: &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		log:    l.WithField("component", "assistant"),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

func (c *WSClient) Events() <-chan Event { return c.events }

func (c *WSClient) Start(ctx context.Context, req StartRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.conn != nil {
		return errors.New("assistant call already in progress")
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial assistant: %w", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wireFrame{Type: "start", Assistant: &req}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send start: %w", err)
	}

	c.conn = conn
	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

func (c *WSClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conn
	if conn == nil {
		return nil
	}
	c.conn = nil

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	err := conn.WriteJSON(wireFrame{Type: "stop"})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stop"), deadline)
	_ = conn.Close()
	return err
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	close(c.events)
	return nil
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	terminal := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			// a connection we already let go of (Stop/Close) is expected to fail
			expected := terminal || c.closed || c.conn != conn
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			_ = conn.Close()

			if !expected {
				c.log.WithError(err).Warn("assistant connection lost")
				c.emit(Event{Type: EventSessionError, Err: fmt.Errorf("assistant connection lost: %w", err)})
			}
			return
		}

		var f wireFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.WithError(err).Warn("invalid assistant frame")
			continue
		}

		ev, ok := eventFromFrame(f)
		if !ok {
			c.log.WithField("type", f.Type).Debug("ignoring assistant frame")
			continue
		}

		if ev.Type == EventSessionEnded || ev.Type == EventSessionError {
			// the call is over even if the remote keeps the socket open
			terminal = true
			c.release(conn)
		}
		c.emit(ev)
	}
}

// release frees the call slot held by conn so the next Start can dial.
func (c *WSClient) release(conn *websocket.Conn) {
	c.mu.Lock()
	owned := c.conn == conn
	if owned {
		c.conn = nil
	}
	c.mu.Unlock()
	if owned {
		_ = conn.Close()
	}
}

func (c *WSClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func eventFromFrame(f wireFrame) (Event, bool) {
	switch f.Type {
	case "call-start":
		return Event{Type: EventSessionStarted}, true
	case "speech-start":
		return Event{Type: EventAssistantSpeakingStarted}, true
	case "speech-end":
		return Event{Type: EventAssistantSpeakingEnded}, true
	case "call-end":
		return Event{Type: EventSessionEnded}, true
	case "error":
		msg := f.Error
		if msg == "" {
			msg = "assistant error"
		}
		return Event{Type: EventSessionError, Err: errors.New(msg)}, true
	default:
		return Event{}, false
	}
}
