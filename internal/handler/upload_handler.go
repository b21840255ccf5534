package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
)

type uploadIssuer interface {
	Issue(ctx context.Context, req dto.PresignRequest) (*models.UploadGrant, error)
}

// UploadHandler issues presigned upload credentials.
type UploadHandler struct {
	uploads uploadIssuer
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(uploads uploadIssuer) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Presign godoc
// @Summary Issue a presigned upload URL
// @Description Returns a one hour write credential scoped to a fresh storage key. The client PUTs the file to uploadUrl with the returned headers.
// @Tags Uploads
// @Accept json
// @Produce json
// @Param payload body dto.PresignRequest true "File description"
// @Success 200 {object} dto.PresignResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /presigned-url [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	var req dto.PresignRequest
	if err := bindJSON(c, &req, smallBodyLimit); err != nil {
		response.Error(c, err)
		return
	}
	grant, err := h.uploads.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PresignResponse{
		Success:     true,
		UploadURL:   grant.UploadURL,
		S3Key:       grant.StorageKey,
		DownloadURL: grant.DownloadURL,
		ExpiresIn:   grant.ExpiresIn,
		Headers:     grant.Headers,
	})
}
