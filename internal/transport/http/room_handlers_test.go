package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/vovakirdan/roomrelay/internal/core"
)

type fakeSink struct{}

func (fakeSink) Send(string) error { return nil }

func TestRoomEndpoints(t *testing.T) {
	ts, hub := startTestServer(t)
	ctx := context.Background()

	for _, id := range []core.RoomID{"lobby", "attic"} {
		if err := hub.CreateRoom(ctx, id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := hub.RegisterConnection(ctx, core.User{ID: "10.0.0.1:4000", Sink: fakeSink{}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := hub.JoinRoom(ctx, "10.0.0.1:4000", "lobby"); err != nil {
		t.Fatalf("join: %v", err)
	}

	resp, err := ts.Client().Get(ts.URL + "/rooms")
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var rooms []RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "attic" || rooms[1].ID != "lobby" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
	if len(rooms[1].Participants) != 1 || rooms[1].Participants[0] != "10.0.0.1:4000" {
		t.Fatalf("unexpected participants: %+v", rooms[1].Participants)
	}

	missing, err := ts.Client().Get(ts.URL + "/rooms/ghost")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}

	one, err := ts.Client().Get(ts.URL + "/rooms/lobby")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	defer one.Body.Close()
	var room RoomResponse
	if err := json.NewDecoder(one.Body).Decode(&room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if room.ID != "lobby" || len(room.Participants) != 1 {
		t.Fatalf("unexpected room: %+v", room)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("unexpected health: %+v", health)
	}
}
