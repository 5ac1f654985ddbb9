package mediastream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

// ErrTransport is returned by Serve when the socket failed rather than
// closing normally.
var ErrTransport = errors.New("mediastream: transport error")

// DefaultWriteTimeout bounds a single socket write.
const DefaultWriteTimeout = 5 * time.Second

// Conn is one media stream socket bound to a bridge.
type Conn struct {
	ws  *websocket.Conn
	br  *bridge.Bridge
	log atomic.Pointer[slog.Logger]

	// WriteTimeout bounds each write. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration

	streamSID atomic.Pointer[string]
	closeOnce sync.Once
	closed    atomic.Bool
	frames    atomic.Uint64
	bad       atomic.Uint64
}

// NewConn binds ws to br. The logger gains call_id and stream_id once
// the start message arrives.
func NewConn(ws *websocket.Conn, br *bridge.Bridge, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{ws: ws, br: br}
	c.log.Store(logger)
	return c
}

func (c *Conn) logger() *slog.Logger {
	return c.log.Load()
}

// StreamSID returns the stream id announced by the start message, or ""
// before it arrived.
func (c *Conn) StreamSID() string {
	if p := c.streamSID.Load(); p != nil {
		return *p
	}
	return ""
}

// Frames returns the number of inbound messages pushed to the bridge.
func (c *Conn) Frames() uint64 { return c.frames.Load() }

// BadFrames returns the number of inbound messages that failed to parse.
func (c *Conn) BadFrames() uint64 { return c.bad.Load() }

// Serve runs the read and write loops until both finish. The read loop ends
// on a stop message or when the socket closes; either way the bridge is
// stopped. The write loop ends when the bridge's outbound side is closed
// and drained, or when a write fails, and then closes the socket.
// Cancelling ctx closes the socket too.
func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.close()
	}()

	var (
		wg       sync.WaitGroup
		writeErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeErr = c.writeLoop(ctx)
		// Nothing more will be written; closing the socket ends the read.
		cancel()
	}()

	readErr := c.readLoop()
	wg.Wait()
	c.close()

	if readErr != nil {
		return readErr
	}
	return writeErr
}

func (c *Conn) readLoop() error {
	defer func() {
		_ = c.br.PushInbound(bridge.Message{Kind: bridge.KindStop})
		c.br.Stop()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				c.closed.Load() || c.br.Stopped() {
				return nil
			}
			return fmt.Errorf("%w: read: %v", ErrTransport, err)
		}
		msg, ok, err := Decode(data)
		if err != nil {
			c.bad.Add(1)
			c.logger().Warn("skipping malformed media stream frame", "error", err)
			continue
		}
		if !ok {
			continue
		}
		switch msg.Kind {
		case bridge.KindStart:
			sid := msg.Start.StreamSID
			c.streamSID.Store(&sid)
			c.log.Store(c.logger().With("call_id", msg.Start.CallSID, "stream_id", sid))
			c.logger().Info("media stream started", "encoding", msg.Start.MediaFormat.Encoding)
		case bridge.KindStop:
			c.logger().Info("media stream stopped")
			// Deferred push delivers the stop.
			return nil
		}
		if err := c.br.PushInbound(msg); err != nil && errors.Is(err, bridge.ErrClosed) {
			return nil
		}
		c.frames.Add(1)
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	poll := c.br.Config().PollInterval
	for {
		msg, err := c.br.NextOutbound(poll)
		switch {
		case err == nil:
		case errors.Is(err, buffer.ErrTimeout):
			if ctx.Err() != nil {
				return nil
			}
			continue
		case errors.Is(err, bridge.ErrClosed):
			return nil
		default:
			return err
		}

		sid := c.StreamSID()
		if sid == "" {
			c.logger().Debug("dropping outbound message before stream start", "kind", msg.Kind)
			continue
		}
		data, err := Encode(sid, msg)
		if err != nil {
			c.logger().Warn("skipping outbound message", "error", err)
			continue
		}
		if err := c.write(data); err != nil {
			if ctx.Err() != nil || c.br.Stopped() {
				return nil
			}
			return fmt.Errorf("%w: write: %v", ErrTransport, err)
		}
	}
}

func (c *Conn) write(data []byte) error {
	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
	})
}
