package models

// ContactMessage is a general enquiry from the website contact form.
type ContactMessage struct {
	Name         string `json:"name" validate:"required,notblank"`
	Email        string `json:"email" validate:"required,email"`
	Organization string `json:"organization" validate:"required,notblank"`
	Message      string `json:"message" validate:"required,notblank"`
}

// Registration is a club's registration for the competition.
type Registration struct {
	ClubName           string `json:"club_name" validate:"required,notblank"`
	University         string `json:"university" validate:"required,notblank"`
	Representative     string `json:"representative" validate:"required,notblank"`
	ContactEmail       string `json:"contact_email" validate:"required,email"`
	ProjectDescription string `json:"project_description" validate:"required,notblank"`
	Questions          string `json:"questions,omitempty"`
}
