// Package session turns decoded commands from one connection into registry
// operations and writes the results back to that connection and its peers.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/utils"
)

// Registry is the subset of the room hub a session drives.
type Registry interface {
	RegisterConnection(ctx context.Context, user core.User) error
	CreateRoom(ctx context.Context, roomID core.RoomID) error
	JoinRoom(ctx context.Context, userID core.UserID, roomID core.RoomID) (core.Room, error)
	ExitRoom(ctx context.Context, userID core.UserID) (core.Room, bool, error)
	Disconnect(ctx context.Context, userID core.UserID)
	RoomForUser(ctx context.Context, userID core.UserID) (core.Room, error)
}

// Conn is the transport side of a connection.
type Conn interface {
	core.Sink
	io.Closer
}

// Session is the per-connection state. It holds no room data of its own.
type Session struct {
	id      core.UserID
	traceID string
	hub     Registry
	conn    Conn
	render  proto.Renderer
	log     zerolog.Logger

	handshakeComplete bool
	closeOnce         sync.Once
}

// New derives the connection identity from its remote address. A missing
// address yields utils.ErrNoRemoteAddress and the caller should drop the
// connection.
func New(hub Registry, remote net.Addr, conn Conn, render proto.Renderer, logger *zerolog.Logger) (*Session, error) {
	id, err := utils.EndpointID(remote)
	if err != nil {
		return nil, err
	}

	traceID := utils.NewTraceID()
	return &Session{
		id:      core.UserID(id),
		traceID: traceID,
		hub:     hub,
		conn:    conn,
		render:  render,
		log:     logger.With().Str("user_id", id).Str("conn_id", traceID).Logger(),
	}, nil
}

// ID returns the connection identity.
func (s *Session) ID() core.UserID {
	return s.id
}

// Open registers the connection and writes the welcome banner.
func (s *Session) Open(ctx context.Context) error {
	if err := s.hub.RegisterConnection(ctx, core.User{ID: s.id, Sink: s.conn}); err != nil {
		return fmt.Errorf("register connection: %w", err)
	}
	s.log.Info().Msg("connection opened")
	s.handshake()
	return nil
}

func (s *Session) handshake() {
	if s.handshakeComplete {
		return
	}
	s.handshakeComplete = true
	s.send(proto.WelcomeBanner)
}

// HandleChunk decodes one transport chunk and dispatches it. Empty or
// undecodable chunks are ignored.
func (s *Session) HandleChunk(ctx context.Context, chunk []byte) {
	msg, ok := proto.Frame(chunk)
	if !ok {
		s.log.Debug().Int("bytes", len(chunk)).Msg("chunk needs more data")
		return
	}
	s.Handle(ctx, proto.Decode(msg))
}

// Handle applies one command.
func (s *Session) Handle(ctx context.Context, cmd proto.Command) {
	s.handshake()
	s.log.Debug().Stringer("command", cmd.Kind).Msg("handling command")

	switch cmd.Kind {
	case proto.CommandJoinRoom:
		s.handleJoinRoom(ctx, core.RoomID(cmd.Room))
	case proto.CommandCreateRoom:
		s.handleCreateRoom(ctx, core.RoomID(cmd.Room))
	case proto.CommandExitRoom:
		s.handleExitRoom(ctx)
	case proto.CommandBroadcast:
		s.handleBroadcast(ctx, cmd.Text)
	case proto.CommandInvalid:
		s.replyError("Invalid command " + cmd.Text)
	}
}

func (s *Session) handleJoinRoom(ctx context.Context, roomID core.RoomID) {
	room, err := s.hub.JoinRoom(ctx, s.id, roomID)
	if err != nil {
		s.fail(err)
		return
	}
	s.notify(room.Others(s.id), fmt.Sprintf("%s has joined room %s", s.id, roomID))
	s.replySuccess(fmt.Sprintf("Joined room %s", roomID))
}

func (s *Session) handleCreateRoom(ctx context.Context, roomID core.RoomID) {
	if err := s.hub.CreateRoom(ctx, roomID); err != nil {
		s.fail(err)
		return
	}
	s.replySuccess(fmt.Sprintf("Successfully created room %s", roomID))
}

func (s *Session) handleExitRoom(ctx context.Context) {
	room, exited, err := s.hub.ExitRoom(ctx, s.id)
	if err != nil {
		s.fail(err)
		return
	}
	if !exited {
		s.replyError("Currently not in any room")
		return
	}
	s.notify(room.Others(s.id), fmt.Sprintf("%s has left room %s", s.id, room.ID))
	s.replySuccess(fmt.Sprintf("Left room %s", room.ID))
}

func (s *Session) handleBroadcast(ctx context.Context, text string) {
	room, err := s.hub.RoomForUser(ctx, s.id)
	if err != nil {
		s.fail(err)
		return
	}
	line := proto.ChatLine(string(s.id), text)
	for _, peer := range room.Others(s.id) {
		if err := peer.Sink.Send(line); err != nil {
			s.log.Debug().Err(err).Str("peer", string(peer.ID)).Msg("relay to peer failed")
		}
	}
}

// Close runs the disconnect path: leave the room, tell the room, forget the
// user, close the connection. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		// Teardown must finish even when the caller's context is done.
		ctx = context.WithoutCancel(ctx)

		room, exited, err := s.hub.ExitRoom(ctx, s.id)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("exit room during disconnect")
			s.fail(err)
		case exited:
			s.notify(room.Others(s.id), fmt.Sprintf("%s has left room %s", s.id, room.ID))
		}

		s.hub.Disconnect(ctx, s.id)

		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Debug().Err(err).Msg("close connection")
		}
		s.log.Info().Msg("connection closed")
	})
}

func (s *Session) fail(err error) {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		s.log.Debug().Err(err).Msg("command rejected")
	} else {
		s.log.Warn().Err(err).Msg("registry unavailable")
	}
	s.replyError(describeError(err))
}

func (s *Session) replySuccess(text string) {
	s.send(s.render.Render(proto.NoticeSuccess, text))
}

func (s *Session) replyError(text string) {
	s.send(s.render.Render(proto.NoticeError, text))
}

func (s *Session) send(text string) {
	if err := s.conn.Send(text); err != nil {
		s.log.Debug().Err(err).Msg("write to connection failed")
	}
}

// notify writes a system notice to each user. Delivery is best-effort; a
// failing peer is cleaned up by its own session.
func (s *Session) notify(users []core.User, text string) {
	line := s.render.Render(proto.NoticeSystem, text)
	for _, u := range users {
		if err := u.Sink.Send(line); err != nil {
			s.log.Debug().Err(err).Str("peer", string(u.ID)).Msg("notify peer failed")
		}
	}
}

func describeError(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		switch coreErr.Code {
		case core.ErrCodeRoomAlreadyExists:
			return fmt.Sprintf("Room %s already exists", coreErr.Room)
		case core.ErrCodeRoomNotFound:
			return fmt.Sprintf("Room %s does not exist", coreErr.Room)
		case core.ErrCodeUserAlreadyInRoom:
			return fmt.Sprintf("User %s already in room %s", coreErr.User, coreErr.Room)
		case core.ErrCodeUserNotFound:
			return fmt.Sprintf("User %s does not exist", coreErr.User)
		case core.ErrCodeUserNotInRoom:
			return fmt.Sprintf("User %s is not in any room", coreErr.User)
		}
	}
	if errors.Is(err, core.ErrHubStopped) || errors.Is(err, context.Canceled) {
		return "Server is shutting down"
	}
	return "Internal server error"
}
