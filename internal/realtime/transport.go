package realtime

import (
	"context"
	"errors"
	"roverchat/internal/providers"
	"roverchat/internal/structures"
	"time"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 64 * 1024

// Transport pumps frames between one websocket connection and its session.
// Only the write pump writes to the connection.
type Transport struct {
	conn    *websocket.Conn
	session *Session
	conf    structures.SocketConfig
	logger  providers.Logger
}

func NewTransport(conn *websocket.Conn, session *Session, conf structures.SocketConfig, logger providers.Logger) *Transport {
	return &Transport{conn: conn, session: session, conf: conf, logger: logger}
}

// Run reads frames until the peer goes away or ctx is cancelled, passing each
// decoded envelope to handle. The connection is closed on return.
func (t *Transport) Run(ctx context.Context, handle func(Envelope)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		t.writePump(ctx)
	}()

	t.readPump(ctx, handle)
	cancel()
	<-writerDone
}

func (t *Transport) pongWait() time.Duration {
	return 2 * t.conf.PingInterval
}

func (t *Transport) readPump(ctx context.Context, handle func(Envelope)) {
	t.conn.SetReadLimit(maxFrameSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(t.pongWait()))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(t.pongWait()))
	})

	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warnf(providers.TypeSocket, "Session %s read error: %v", t.session.ID, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(t.pongWait()))

		env, err := DecodeEnvelope(raw)
		if err != nil {
			t.logger.Debugf(providers.TypeSocket, "Session %s sent %v", t.session.ID, err)
			continue
		}
		handle(env)
	}
}

func (t *Transport) writePump(ctx context.Context) {
	ticker := time.NewTicker(t.conf.PingInterval)
	defer ticker.Stop()
	// closing the connection unblocks the read pump
	defer t.conn.Close()

	for {
		select {
		case <-ctx.Done():
			t.writeClose()
			return
		case <-t.session.Done():
			t.flush()
			t.writeClose()
			return
		case <-t.session.Notify():
			if err := t.flush(); err != nil {
				t.logger.Debugf(providers.TypeSocket, "Session %s write error: %v", t.session.ID, err)
				return
			}
		case <-ticker.C:
			if err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.conf.WriteTimeout)); err != nil {
				t.logger.Debugf(providers.TypeSocket, "Session %s ping failure: %v", t.session.ID, err)
				return
			}
		}
	}
}

func (t *Transport) flush() error {
	for _, f := range t.session.Drain() {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.conf.WriteTimeout))
		if err := t.conn.WriteMessage(websocket.TextMessage, f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) writeClose() {
	err := t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(t.conf.WriteTimeout))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		t.logger.Debugf(providers.TypeSocket, "Session %s close frame: %v", t.session.ID, err)
	}
}
