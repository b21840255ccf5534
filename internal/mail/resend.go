package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/noah-isme/txnt-submissions-api/internal/models"
)

// ResendSender delivers email through the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender builds a sender for apiKey.
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// NewResendSenderWithClient wraps a preconfigured client.
func NewResendSenderWithClient(client *resend.Client) *ResendSender {
	return &ResendSender{client: client}
}

// Send submits msg and returns the provider message id.
func (s *ResendSender) Send(ctx context.Context, msg models.EmailMessage) (models.SendResult, error) {
	if len(msg.To) == 0 {
		return models.SendResult{}, errors.New("email has no recipients")
	}

	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		ReplyTo: msg.ReplyTo,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for _, att := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Content:     att.Content,
			Filename:    att.Filename,
			ContentType: att.ContentType,
		})
	}

	resp, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return models.SendResult{}, fmt.Errorf("resend: %w", err)
	}
	return models.SendResult{ID: resp.Id}, nil
}
