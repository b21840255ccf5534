package dto

import "github.com/noah-isme/txnt-submissions-api/internal/models"

// ContactRequest is the website contact form body.
type ContactRequest struct {
	models.ContactMessage
}

// RegistrationRequest is the competition registration form body.
type RegistrationRequest struct {
	models.Registration
}

// MessageResponse is a generic success body.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
