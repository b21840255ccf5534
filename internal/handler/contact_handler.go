package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
)

const msgEmailSent = "Email sent successfully"

type formSender interface {
	SendContact(ctx context.Context, msg models.ContactMessage) error
	SendRegistration(ctx context.Context, reg models.Registration) error
}

// ContactHandler forwards website forms.
type ContactHandler struct {
	forms formSender
}

// NewContactHandler constructs the handler.
func NewContactHandler(forms formSender) *ContactHandler {
	return &ContactHandler{forms: forms}
}

// Contact godoc
// @Summary Send a contact form message
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.ContactRequest true "Message"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /contact [post]
func (h *ContactHandler) Contact(c *gin.Context) {
	var req dto.ContactRequest
	if err := bindJSON(c, &req, smallBodyLimit); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.forms.SendContact(c.Request.Context(), req.ContactMessage); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MessageResponse{Success: true, Message: msgEmailSent})
}

// Register godoc
// @Summary Register a club for the competition
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationRequest true "Registration"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /register [post]
func (h *ContactHandler) Register(c *gin.Context) {
	var req dto.RegistrationRequest
	if err := bindJSON(c, &req, smallBodyLimit); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.forms.SendRegistration(c.Request.Context(), req.Registration); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MessageResponse{Success: true, Message: msgEmailSent})
}
