package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/mail"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/middleware/requestid"
)

// ContactServiceConfig addresses website form emails.
type ContactServiceConfig struct {
	SourceEmail      string
	DestinationEmail string
}

// ContactService forwards website forms to the organizer inbox.
type ContactService struct {
	sender    mailSender
	renderer  *mail.Renderer
	validator *validator.Validate
	metrics   emailMetrics
	logger    *zap.Logger
	cfg       ContactServiceConfig
}

func NewContactService(sender mailSender, renderer *mail.Renderer, validate *validator.Validate, metrics emailMetrics, logger *zap.Logger, cfg ContactServiceConfig) *ContactService {
	if renderer == nil {
		renderer = mail.NewRenderer()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{
		sender:    sender,
		renderer:  renderer,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// SendContact delivers a contact form message with reply-to set to the sender.
func (s *ContactService) SendContact(ctx context.Context, msg models.ContactMessage) error {
	if err := validateStruct(s.validator, msg); err != nil {
		return err
	}
	rendered, err := s.renderer.Contact(msg)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render contact email")
	}
	return s.deliver(ctx, emailKindContact, msg.Email, rendered)
}

// SendRegistration delivers a competition registration.
func (s *ContactService) SendRegistration(ctx context.Context, reg models.Registration) error {
	if err := validateStruct(s.validator, reg); err != nil {
		return err
	}
	rendered, err := s.renderer.Registration(reg)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registration email")
	}
	return s.deliver(ctx, emailKindRegistration, reg.ContactEmail, rendered)
}

func (s *ContactService) deliver(ctx context.Context, kind, replyTo string, rendered mail.Rendered) error {
	res, err := sendRecorded(ctx, s.sender, s.metrics, kind, models.EmailMessage{
		From:    s.cfg.SourceEmail,
		To:      []string{s.cfg.DestinationEmail},
		Subject: rendered.Subject,
		ReplyTo: replyTo,
		HTML:    rendered.HTML,
	})
	if err != nil {
		s.logger.Error("form email failed", zap.String("kind", kind), zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
		return appErrors.WithCause(appErrors.ErrNotificationFailed, "Failed to send email", err)
	}
	s.logger.Info("form email sent", zap.String("kind", kind), zap.String("request_id", requestid.FromContext(ctx)), zap.String("email_id", res.ID))
	return nil
}
