package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/session"
)

// WSHandler upgrades HTTP connections and runs a chat session over them.
// Each WebSocket message is one protocol chunk.
type WSHandler struct {
	hub          session.Registry
	render       proto.Renderer
	writeTimeout time.Duration
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub session.Registry, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		render:       proto.NewRenderer(cfg.Color),
		writeTimeout: cfg.WriteTimeout,
		log:          logger,
	}
}

// ServeHTTP upgrades the request and runs the session until the peer goes
// away.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	ws := &wsConn{conn: conn, ctx: ctx, writeTimeout: h.writeTimeout}
	sess, err := session.New(h.hub, remoteAddr(r.RemoteAddr), ws, h.render, h.log)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("dropping ws connection without usable remote address")
		conn.Close(websocket.StatusPolicyViolation, "no remote address")
		return
	}
	if err := sess.Open(ctx); err != nil {
		h.log.Warn().Err(err).Str("user_id", string(sess.ID())).Msg("open session")
		sess.Close(ctx)
		return
	}
	defer sess.Close(ctx)

	err = h.readLoop(ctx, conn, sess)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return
	}
	h.log.Warn().Err(err).Str("user_id", string(sess.ID())).Msg("ws connection closed with error")
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		sess.HandleChunk(ctx, data)
	}
}

// remoteAddr parses the request's "ip:port". Anything else yields nil,
// which the session rejects.
func remoteAddr(hostport string) net.Addr {
	ap, err := netip.ParseAddrPort(hostport)
	if err != nil {
		return nil
	}
	return net.TCPAddrFromAddrPort(ap)
}

// wsConn adapts a WebSocket connection to the session's sink. Writes on a
// websocket.Conn are safe for concurrent use.
type wsConn struct {
	conn         *websocket.Conn
	ctx          context.Context
	writeTimeout time.Duration
}

func (c *wsConn) Send(text string) error {
	ctx := context.WithoutCancel(c.ctx)
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
