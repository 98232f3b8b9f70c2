package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerMiddleware logs each read-only API request with its matched route
// and, for single-room lookups, the room asked for.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		evt := logger.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remote", c.Request.RemoteAddr)
		if room := c.Param("id"); room != "" {
			evt = evt.Str("room", room)
		}
		evt.Msg("api request")
	}
}
