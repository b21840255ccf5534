package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
)

const (
	msgSubmissionReceived      = "Submission received successfully"
	msgLargeSubmissionReceived = "Large file submission received successfully"
)

type submissionNotifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) (*models.SubmissionResult, error)
}

// SubmissionHandler accepts competition entries on both delivery paths.
type SubmissionHandler struct {
	notifier       submissionNotifier
	inlineBodySize int64
}

// NewSubmissionHandler constructs the handler. maxAttachment is the decoded
// byte ceiling for inline files and sizes the accepted request body.
func NewSubmissionHandler(notifier submissionNotifier, maxAttachment int64) *SubmissionHandler {
	if maxAttachment <= 0 {
		maxAttachment = models.MaxAttachmentSizeBytes
	}
	// base64 expands by 4/3; leave room for the metadata fields.
	return &SubmissionHandler{notifier: notifier, inlineBodySize: maxAttachment/3*4 + 4 + smallBodyLimit}
}

// Submit godoc
// @Summary Submit a small file inline
// @Description Sends the organizer email with the base64 file attached, then a best effort confirmation to contact_email.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated request id"
// @Param payload body dto.SmallSubmissionRequest true "Submission"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req dto.SmallSubmissionRequest
	if err := bindJSON(c, &req, h.inlineBodySize); err != nil {
		response.Error(c, err)
		return
	}
	h.notify(c, models.NotificationRequest{
		Metadata:       req.SubmissionMetadata,
		Payload:        models.InlineAttachment{Base64: req.FileData},
		IdempotencyKey: requestKey(c, req.RequestID),
	}, msgSubmissionReceived)
}

// SubmitLarge godoc
// @Summary Notify organizers about an uploaded file
// @Description Sends the organizer email with a download link for an object uploaded through /presigned-url.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated request id"
// @Param payload body dto.LargeSubmissionRequest true "Submission"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /submit-large [post]
func (h *SubmissionHandler) SubmitLarge(c *gin.Context) {
	var req dto.LargeSubmissionRequest
	if err := bindJSON(c, &req, smallBodyLimit); err != nil {
		response.Error(c, err)
		return
	}
	h.notify(c, models.NotificationRequest{
		Metadata: req.SubmissionMetadata,
		Payload: models.RemoteReference{
			DownloadURL: req.S3DownloadURL,
			StorageKey:  req.S3Key,
		},
		IdempotencyKey: requestKey(c, req.RequestID),
	}, msgLargeSubmissionReceived)
}

func (h *SubmissionHandler) notify(c *gin.Context, req models.NotificationRequest, message string) {
	result, err := h.notifier.Notify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SubmissionResponse{
		Success:      true,
		Message:      message,
		SubmissionID: result.SubmissionID,
	})
}
