package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	listener, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer listener.Close(websocket.StatusNormalClosure, "bye")

	// The room may survive from an earlier run; either reply is fine.
	if err := send(ctx, sender, "/createRoom "+*room); err != nil {
		return err
	}
	if _, err := read(ctx, sender); err != nil {
		return err
	}

	for _, c := range []*websocket.Conn{listener, sender} {
		if err := send(ctx, c, "/joinRoom "+*room); err != nil {
			return err
		}
		if err := expect(ctx, c, "Joined room "+*room); err != nil {
			return err
		}
	}
	// Join notice for the sender arriving at the listener.
	if err := expect(ctx, listener, "has joined room "+*room); err != nil {
		return err
	}

	if err := send(ctx, sender, *text); err != nil {
		return err
	}
	if err := expect(ctx, listener, "> "+*text); err != nil {
		return err
	}

	fmt.Println("smoke test passed")
	return nil
}

func dial(ctx context.Context, addr string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if _, err := read(ctx, conn); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("read banner: %w", err)
	}
	return conn, nil
}

func send(ctx context.Context, conn *websocket.Conn, text string) error {
	if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		return fmt.Errorf("send %q: %w", text, err)
	}
	return nil
}

func read(ctx context.Context, conn *websocket.Conn) (string, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	log.Printf("recv: %s", data)
	return string(data), nil
}

func expect(ctx context.Context, conn *websocket.Conn, substr string) error {
	got, err := read(ctx, conn)
	if err != nil {
		return err
	}
	if !strings.Contains(got, substr) {
		return fmt.Errorf("got %q, want it to contain %q", got, substr)
	}
	return nil
}
