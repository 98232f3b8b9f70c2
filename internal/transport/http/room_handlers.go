package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/core"
)

// RoomHandlers serves read-only views of the registry.
type RoomHandlers struct {
	hub Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
}

// HealthResponse reports liveness plus registry counts.
type HealthResponse struct {
	Status string     `json:"status"`
	Stats  core.Stats `json:"stats"`
}

func toRoomResponse(room core.Room) RoomResponse {
	ids := make([]string, 0, len(room.Participants))
	for _, u := range room.Participants {
		ids = append(ids, string(u.ID))
	}
	return RoomResponse{ID: string(room.ID), Participants: ids}
}

// Health reports whether the hub is answering.
// GET /health
func (h *RoomHandlers) Health(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Stats: stats})
}

// ListRooms handles listing all rooms.
// GET /rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.hub.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, toRoomResponse(room))
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// GetRoom returns one room.
// GET /rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	room, err := h.hub.RoomByID(c.Request.Context(), core.RoomID(c.Param("id")))
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to get room")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(room))
}
