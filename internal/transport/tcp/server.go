// Package tcp serves the chat protocol over raw TCP connections.
package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/session"
)

// Server accepts TCP connections and runs one session per connection.
type Server struct {
	hub    session.Registry
	cfg    config.Config
	render proto.Renderer
	log    *zerolog.Logger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup

	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer builds a TCP frontend for the hub.
func NewServer(hub session.Registry, cfg config.Config, logger *zerolog.Logger) *Server {
	return &Server{
		hub:    hub,
		cfg:    cfg,
		render: proto.NewRenderer(cfg.Color),
		log:    logger,
		conns:  make(map[net.Conn]struct{}),
		ready:  make(chan struct{}),
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		s.readyOnce.Do(func() { close(s.ready) })
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes every
// open connection and waits for their sessions to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp server listening")

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				acceptErr = err
			}
			break
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConn(ctx, conn)
		}()
	}

	s.closeAll()
	s.wg.Wait()
	s.log.Info().Msg("tcp server stopped")
	return acceptErr
}

// Addr returns the listener address once Serve has started, or nil if
// listening failed.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	c := newConn(nc, s.cfg.WriteTimeout)

	sess, err := session.New(s.hub, nc.RemoteAddr(), c, s.render, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping connection without usable remote address")
		_ = nc.Close()
		return
	}
	if err := sess.Open(ctx); err != nil {
		s.log.Warn().Err(err).Str("user_id", string(sess.ID())).Msg("open session")
		sess.Close(ctx)
		return
	}
	defer sess.Close(ctx)

	buf := make([]byte, s.cfg.ReadBufferBytes)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			sess.HandleChunk(ctx, buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn().Err(err).Str("user_id", string(sess.ID())).Msg("tcp read")
			}
			return
		}
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if len(conns) > 0 {
		s.log.Info().Int("count", len(conns)).Msg("closed tcp connections")
	}
}

// conn is the sink handed to the hub. Writes from the owning session and from
// peers relaying into it are serialized so messages never interleave.
type conn struct {
	net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newConn(nc net.Conn, writeTimeout time.Duration) *conn {
	return &conn{Conn: nc, writeTimeout: writeTimeout}
}

func (c *conn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.Conn, text)
	return err
}
