package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// Hub is the room registry. It owns every room, every registered
// connection and the user->room index, and applies all operations one at a
// time on the goroutine running Run.
type Hub struct {
	requests chan func()
	done     chan struct{}
	log      *zerolog.Logger

	// Owned by the Run goroutine.
	rooms       map[RoomID]*room
	activeUsers map[UserID]User
	userRoom    map[UserID]RoomID
}

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Rooms       int `json:"rooms"`
	ActiveUsers int `json:"active_users"`
	Memberships int `json:"memberships"`
}

// NewHub creates a new hub. Call Run before issuing operations.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		requests:    make(chan func()),
		done:        make(chan struct{}),
		log:         logger,
		rooms:       make(map[RoomID]*room),
		activeUsers: make(map[UserID]User),
		userRoom:    make(map[UserID]RoomID),
	}
}

// Run processes requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	h.log.Debug().Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("hub stopped")
			return
		case op := <-h.requests:
			op()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// do hands op to the Run goroutine and waits for it to finish. The requests
// channel is unbuffered, so once the send succeeds op is already running.
func (h *Hub) do(ctx context.Context, op func()) error {
	finished := make(chan struct{})
	run := func() {
		defer close(finished)
		op()
	}

	select {
	case h.requests <- run:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	<-finished
	return nil
}

// RegisterConnection makes a user eligible to join rooms.
func (h *Hub) RegisterConnection(ctx context.Context, user User) error {
	return h.do(ctx, func() {
		h.log.Debug().Str("user_id", string(user.ID)).Msg("registering connection")
		h.activeUsers[user.ID] = user
	})
}

// CreateRoom adds an empty room.
func (h *Hub) CreateRoom(ctx context.Context, id RoomID) error {
	var opErr error
	if err := h.do(ctx, func() {
		if _, exists := h.rooms[id]; exists {
			opErr = coreError(ErrCodeRoomAlreadyExists, id, "")
			return
		}
		h.rooms[id] = newRoom(id)
		h.log.Debug().Str("room", string(id)).Msg("room created")
	}); err != nil {
		return err
	}
	return opErr
}

// JoinRoom moves the user into the room, leaving any other room first.
// The returned snapshot includes the joining user.
func (h *Hub) JoinRoom(ctx context.Context, userID UserID, roomID RoomID) (Room, error) {
	var (
		snap  Room
		opErr error
	)
	if err := h.do(ctx, func() {
		snap, opErr = h.joinRoom(userID, roomID)
	}); err != nil {
		return Room{}, err
	}
	return snap, opErr
}

func (h *Hub) joinRoom(userID UserID, roomID RoomID) (Room, error) {
	target, ok := h.rooms[roomID]
	if !ok {
		return Room{}, coreError(ErrCodeRoomNotFound, roomID, userID)
	}
	user, ok := h.activeUsers[userID]
	if !ok {
		return Room{}, coreError(ErrCodeUserNotFound, roomID, userID)
	}
	if target.has(userID) {
		return Room{}, coreError(ErrCodeUserAlreadyInRoom, roomID, userID)
	}

	// Single room per user: leave silently before entering the new one.
	if _, _, err := h.exitRoom(userID); err != nil {
		return Room{}, err
	}

	target.add(user)
	h.userRoom[userID] = roomID
	h.log.Debug().Str("user_id", string(userID)).Str("room", string(roomID)).Msg("user joined room")
	return target.snapshot(), nil
}

// ExitRoom removes the user from their current room. The bool is false
// when the user was not in any room. The returned snapshot is the vacated
// room without the user.
func (h *Hub) ExitRoom(ctx context.Context, userID UserID) (Room, bool, error) {
	var (
		snap   Room
		exited bool
		opErr  error
	)
	if err := h.do(ctx, func() {
		snap, exited, opErr = h.exitRoom(userID)
	}); err != nil {
		return Room{}, false, err
	}
	return snap, exited, opErr
}

func (h *Hub) exitRoom(userID UserID) (Room, bool, error) {
	roomID, ok := h.userRoom[userID]
	if !ok {
		return Room{}, false, nil
	}
	delete(h.userRoom, userID)

	current, ok := h.rooms[roomID]
	if !ok {
		h.log.Error().Str("user_id", string(userID)).Str("room", string(roomID)).Msg("user indexed to missing room")
		return Room{}, false, coreError(ErrCodeRoomNotFound, roomID, userID)
	}
	current.remove(userID)
	if _, ok := h.activeUsers[userID]; !ok {
		h.log.Error().Str("user_id", string(userID)).Str("room", string(roomID)).Msg("room member is not an active user")
		return Room{}, false, coreError(ErrCodeUserNotFound, roomID, userID)
	}

	h.log.Debug().Str("user_id", string(userID)).Str("room", string(roomID)).Msg("user left room")
	return current.snapshot(), true, nil
}

// Disconnect forgets the user. It never fails: if the hub is already gone
// there is nothing left to clean up.
func (h *Hub) Disconnect(ctx context.Context, userID UserID) {
	err := h.do(ctx, func() {
		if roomID, ok := h.userRoom[userID]; ok {
			if r, exists := h.rooms[roomID]; exists {
				r.remove(userID)
			}
		}
		delete(h.userRoom, userID)
		delete(h.activeUsers, userID)
		h.log.Debug().Str("user_id", string(userID)).Msg("connection removed")
	})
	if err != nil {
		h.log.Debug().Err(err).Str("user_id", string(userID)).Msg("disconnect skipped")
	}
}

// RoomForUser resolves the room the user currently occupies.
func (h *Hub) RoomForUser(ctx context.Context, userID UserID) (Room, error) {
	var (
		snap  Room
		opErr error
	)
	if err := h.do(ctx, func() {
		roomID, ok := h.userRoom[userID]
		if !ok {
			opErr = coreError(ErrCodeUserNotInRoom, "", userID)
			return
		}
		snap, opErr = h.roomByID(roomID)
	}); err != nil {
		return Room{}, err
	}
	return snap, opErr
}

// RoomByID returns a snapshot of the room.
func (h *Hub) RoomByID(ctx context.Context, roomID RoomID) (Room, error) {
	var (
		snap  Room
		opErr error
	)
	if err := h.do(ctx, func() {
		snap, opErr = h.roomByID(roomID)
	}); err != nil {
		return Room{}, err
	}
	return snap, opErr
}

func (h *Hub) roomByID(roomID RoomID) (Room, error) {
	r, ok := h.rooms[roomID]
	if !ok {
		return Room{}, coreError(ErrCodeRoomNotFound, roomID, "")
	}
	return r.snapshot(), nil
}

// ListRooms returns snapshots of every room ordered by id.
func (h *Hub) ListRooms(ctx context.Context) ([]Room, error) {
	var out []Room
	if err := h.do(ctx, func() {
		out = make([]Room, 0, len(h.rooms))
		for _, r := range h.rooms {
			out = append(out, r.snapshot())
		}
	}); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Stats counts rooms, registered users and membership edges.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := h.do(ctx, func() {
		st = Stats{
			Rooms:       len(h.rooms),
			ActiveUsers: len(h.activeUsers),
			Memberships: len(h.userRoom),
		}
	})
	return st, err
}
