// Package client connects a duel endpoint to the relay and keeps it connected.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/protocol"
	"tank-duel/internal/session"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 5 * time.Second
	inboundBuffer = 256
)

// errClosed reports that the relay ended the connection
var errClosed = errors.New("relay connection closed")

// Transport owns the WebSocket to the relay. Frames go out through a
// buffered queue and come back as session.Inbound items.
type Transport struct {
	url     string
	delay   time.Duration
	name    string
	dialer  *websocket.Dialer
	send    chan []byte
	inbound chan session.Inbound
}

// New creates a transport for cfg.RelayURL. name tags log lines.
func New(cfg config.ClientConfig, name string) *Transport {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}

	return &Transport{
		url:     cfg.RelayURL,
		delay:   delay,
		name:    name,
		dialer:  websocket.DefaultDialer,
		send:    make(chan []byte, buffer),
		inbound: make(chan session.Inbound, inboundBuffer),
	}
}

// Inbound delivers relay frames and connection status changes
func (t *Transport) Inbound() <-chan session.Inbound {
	return t.inbound
}

// Send queues a frame without blocking. A full queue drops the frame.
func (t *Transport) Send(data []byte) bool {
	select {
	case t.send <- data:
		return true
	default:
		return false
	}
}

// Run connects and reconnects at a fixed delay until ctx is cancelled
func (t *Transport) Run(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(t.delay), ctx)

	notify := func(err error, wait time.Duration) {
		log.Printf("🔄 [%s] %v, retrying in %s", t.name, err, wait)
	}

	err := backoff.RetryNotify(func() error {
		if err := t.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}, b, notify)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// connect runs one connection to completion. It never returns nil while
// ctx is alive so the retry loop keeps reconnecting.
func (t *Transport) connect(ctx context.Context) error {
	ws, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.url, err)
	}
	ws.SetReadLimit(protocol.MaxMessageSize)

	// Patches queued while offline describe a stale duel
	t.drain()
	if !t.deliver(ctx, session.Inbound{Connected: true}) {
		ws.Close()
		return ctx.Err()
	}

	err = t.serve(ctx, ws)
	t.deliver(ctx, session.Inbound{Disconnected: true})
	return err
}

func (t *Transport) serve(ctx context.Context, ws *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- t.readLoop(ctx, ws) }()
	go func() { errc <- t.writeLoop(ctx, ws) }()

	err := <-errc
	cancel()
	ws.Close()
	<-errc
	return err
}

func (t *Transport) readLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errClosed
			}
			return fmt.Errorf("read: %w", err)
		}
		if !t.deliver(ctx, session.Inbound{Frame: data}) {
			return ctx.Err()
		}
	}
}

func (t *Transport) writeLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return ctx.Err()
		case data := <-t.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (t *Transport) deliver(ctx context.Context, in session.Inbound) bool {
	select {
	case t.inbound <- in:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) drain() {
	for {
		select {
		case <-t.send:
		default:
			return
		}
	}
}
