package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
	"github.com/noah-isme/txnt-submissions-api/pkg/storage"
)

type localObjects interface {
	Accept(token, key, contentType string, body io.Reader, limit int64) (int64, error)
	Open(key string) (*os.File, error)
	Metadata(key string) (map[string]string, error)
}

// LocalUploadHandler plays the storage provider when STORAGE_DRIVER=local.
type LocalUploadHandler struct {
	objects localObjects
	limit   int64
	logger  *zap.Logger
}

// NewLocalUploadHandler constructs the handler. limit caps each object.
func NewLocalUploadHandler(objects localObjects, limit int64, logger *zap.Logger) *LocalUploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalUploadHandler{objects: objects, limit: limit, logger: logger}
}

// Put stores the request body under the key the token was issued for.
func (h *LocalUploadHandler) Put(c *gin.Context) {
	key := objectKey(c)
	written, err := h.objects.Accept(c.Query("token"), key, c.GetHeader("Content-Type"), c.Request.Body, h.limit)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidToken):
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Upload URL is invalid or expired"))
		case errors.Is(err, storage.ErrObjectTooLarge):
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "File exceeds the upload limit"))
		default:
			h.logger.Error("local upload failed", zap.String("key", key), zap.Error(err))
			response.Error(c, err)
		}
		return
	}
	h.logger.Info("local upload stored", zap.String("key", key), zap.Int64("bytes", written))
	c.Status(http.StatusOK)
}

// Get serves a stored object as a download.
func (h *LocalUploadHandler) Get(c *gin.Context) {
	key := objectKey(c)
	file, err := h.objects.Open(key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Object not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "application/octet-stream"
	if md, err := h.objects.Metadata(key); err == nil {
		if name := md[storage.MetaOriginalName]; name != "" {
			c.Header("X-Original-Filename", name)
		}
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(key)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
