package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultMethods = "POST, OPTIONS"
	allowedHeaders = "Content-Type, Idempotency-Key, X-Request-ID"
)

// New returns a CORS middleware that honors a list of allowed origins.
// Preflight requests are answered with 200 and an empty body.
func New(allowedOrigins []string, methods ...string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			continue
		}
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	allowMethods := defaultMethods
	if len(methods) > 0 {
		allowMethods = strings.Join(methods, ", ")
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && hasOrigin(originSet, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}

		h.Set("Access-Control-Allow-Headers", allowedHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// Preflight is a no-op terminal handler so OPTIONS routes exist for the middleware to answer.
func Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
