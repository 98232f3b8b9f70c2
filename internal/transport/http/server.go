package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/session"
)

// Hub is what the HTTP frontend needs from the room registry.
type Hub interface {
	session.Registry
	ListRooms(ctx context.Context) ([]core.Room, error)
	RoomByID(ctx context.Context, roomID core.RoomID) (core.Room, error)
	Stats(ctx context.Context) (core.Stats, error)
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds an HTTP server exposing the WebSocket chat endpoint and
// read-only room listings.
func NewServer(hub Hub, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler routes /ws straight to the WebSocket handler and everything
// else through gin. The upgrade needs the raw ResponseWriter: gin's wrapper
// refuses to hijack once the 101 status has been written.
func NewHandler(hub Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	rooms := NewRoomHandlers(hub, logger)
	router.GET("/health", rooms.Health)
	router.GET("/rooms", rooms.ListRooms)
	router.GET("/rooms/:id", rooms.GetRoom)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)
	return mux
}
