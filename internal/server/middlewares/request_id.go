package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vzahanych/weather-widget/internal/server/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses an incoming X-Request-ID or mints one, echoes it
// back and stores it for the other middlewares and handlers.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(RequestIDHeader, requestID)

		c.Set(utils.RequestIDKey, requestID)

		c.Next()
	}
}
