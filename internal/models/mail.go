package models

// EmailAttachment is a file attached to an outbound email.
type EmailAttachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// EmailMessage is a provider-neutral outbound email.
type EmailMessage struct {
	From        string
	To          []string
	Subject     string
	ReplyTo     string
	HTML        string
	Text        string
	Attachments []EmailAttachment
}

// SendResult is the provider's acknowledgement of an accepted email.
type SendResult struct {
	ID string
}
