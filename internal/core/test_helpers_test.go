package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type nopSink struct{}

func (nopSink) Send(string) error { return nil }

func startHub(t *testing.T) (*Hub, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)
	return hub, ctx
}

func mustRegister(t *testing.T, ctx context.Context, hub *Hub, ids ...UserID) {
	t.Helper()
	for _, id := range ids {
		if err := hub.RegisterConnection(ctx, User{ID: id, Sink: nopSink{}}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
}

func mustCreate(t *testing.T, ctx context.Context, hub *Hub, ids ...RoomID) {
	t.Helper()
	for _, id := range ids {
		if err := hub.CreateRoom(ctx, id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
}

// checkInvariants verifies the user->room index against room membership on
// the hub goroutine.
func checkInvariants(t *testing.T, ctx context.Context, hub *Hub) {
	t.Helper()

	var problems []string
	err := hub.do(ctx, func() {
		for userID, roomID := range hub.userRoom {
			r, ok := hub.rooms[roomID]
			if !ok {
				problems = append(problems, string(userID)+" indexed to missing room "+string(roomID))
				continue
			}
			if !r.has(userID) {
				problems = append(problems, string(userID)+" indexed to "+string(roomID)+" but not a participant")
			}
		}
		for roomID, r := range hub.rooms {
			for userID := range r.participants {
				if hub.userRoom[userID] != roomID {
					problems = append(problems, string(userID)+" participant of "+string(roomID)+" but indexed elsewhere")
				}
				if _, ok := hub.activeUsers[userID]; !ok {
					problems = append(problems, string(userID)+" participant of "+string(roomID)+" but not active")
				}
			}
		}
	})
	if err != nil {
		t.Fatalf("invariant check: %v", err)
	}
	for _, p := range problems {
		t.Error(p)
	}
	if len(problems) > 0 {
		t.FailNow()
	}
}

// recordingSink collects everything sent to it.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return nil
}
