package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestLoggerMiddlewareRecordsRouteAndRoom(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	router := gin.New()
	router.Use(LoggerMiddleware(&logger))
	router.GET("/rooms/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	tests := []struct {
		path      string
		wantRoute string
		wantRoom  string
		status    int
	}{
		{path: "/rooms/lobby", wantRoute: "/rooms/:id", wantRoom: "lobby", status: http.StatusNotFound},
		{path: "/nowhere", wantRoute: "unmatched", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		buf.Reset()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("%s: decode log line %q: %v", tt.path, buf.String(), err)
		}
		if entry["route"] != tt.wantRoute {
			t.Errorf("%s: route = %v, want %s", tt.path, entry["route"], tt.wantRoute)
		}
		if int(entry["status"].(float64)) != tt.status {
			t.Errorf("%s: status = %v, want %d", tt.path, entry["status"], tt.status)
		}
		room, _ := entry["room"].(string)
		if room != tt.wantRoom {
			t.Errorf("%s: room = %q, want %q", tt.path, room, tt.wantRoom)
		}
	}
}
