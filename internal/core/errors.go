package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeRoomAlreadyExists = "room_already_exists"
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeUserAlreadyInRoom = "user_already_in_room"
	ErrCodeUserNotFound      = "user_not_found"
	ErrCodeUserNotInRoom     = "user_not_in_room"
)

// Sentinels for use with errors.Is. Only the code is compared.
var (
	ErrRoomAlreadyExists = &Error{Code: ErrCodeRoomAlreadyExists}
	ErrRoomNotFound      = &Error{Code: ErrCodeRoomNotFound}
	ErrUserAlreadyInRoom = &Error{Code: ErrCodeUserAlreadyInRoom}
	ErrUserNotFound      = &Error{Code: ErrCodeUserNotFound}
	ErrUserNotInRoom     = &Error{Code: ErrCodeUserNotInRoom}

	// ErrHubStopped is returned when a request reaches a hub that is no longer running.
	ErrHubStopped = errors.New("hub stopped")
)

// Error is a room/user state error. It carries the offending ids; turning it
// into text for a connection is up to the caller.
type Error struct {
	Code string
	Room RoomID
	User UserID
}

func (e *Error) Error() string {
	switch {
	case e.Room != "" && e.User != "":
		return fmt.Sprintf("%s: user=%s room=%s", e.Code, e.User, e.Room)
	case e.Room != "":
		return fmt.Sprintf("%s: room=%s", e.Code, e.Room)
	case e.User != "":
		return fmt.Sprintf("%s: user=%s", e.Code, e.User)
	default:
		return e.Code
	}
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func coreError(code string, room RoomID, user UserID) *Error {
	return &Error{Code: code, Room: room, User: user}
}
