package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
)

// smallBodyLimit caps JSON bodies that never carry file bytes.
const smallBodyLimit = 1 << 20

const idempotencyHeader = "Idempotency-Key"

// bindJSON decodes the request body into dst, refusing bodies over limit bytes.
func bindJSON(c *gin.Context, dst interface{}, limit int64) error {
	if c.Request.Body == nil {
		return appErrors.ErrInvalidBody
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit))
		}
		return appErrors.Wrap(err, appErrors.ErrInvalidBody.Code, appErrors.ErrInvalidBody.Status, appErrors.ErrInvalidBody.Message)
	}
	return nil
}

// requestKey prefers the Idempotency-Key header over a body supplied id.
func requestKey(c *gin.Context, bodyID string) string {
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(bodyID)
}
