package core

import "sort"

// RoomID names a room. Case-sensitive.
type RoomID string

// UserID identifies a live connection, derived from its remote endpoint.
type UserID string

// Sink is the writable side of a connection. The hub only hands sinks out;
// it never writes to or closes them.
type Sink interface {
	Send(text string) error
}

// User is a registered connection. Identity is the ID alone.
type User struct {
	ID   UserID
	Sink Sink
}

// Room is an immutable snapshot of a room and its participants,
// ordered by user id.
type Room struct {
	ID           RoomID
	Participants []User
}

// Has reports whether the user is a participant of the snapshot.
func (r Room) Has(id UserID) bool {
	for _, u := range r.Participants {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Others returns the participants except the given user.
func (r Room) Others(id UserID) []User {
	out := make([]User, 0, len(r.Participants))
	for _, u := range r.Participants {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

// room is the hub-owned mutable form of Room.
type room struct {
	id           RoomID
	participants map[UserID]User
}

func newRoom(id RoomID) *room {
	return &room{
		id:           id,
		participants: make(map[UserID]User),
	}
}

// add inserts a user. Returns true if newly added.
func (r *room) add(u User) bool {
	if _, exists := r.participants[u.ID]; exists {
		return false
	}
	r.participants[u.ID] = u
	return true
}

// remove deletes a user. Returns true if removed.
func (r *room) remove(id UserID) bool {
	if _, exists := r.participants[id]; !exists {
		return false
	}
	delete(r.participants, id)
	return true
}

func (r *room) has(id UserID) bool {
	_, ok := r.participants[id]
	return ok
}

func (r *room) snapshot() Room {
	users := make([]User, 0, len(r.participants))
	for _, u := range r.participants {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return Room{ID: r.id, Participants: users}
}
