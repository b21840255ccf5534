package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/mail"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/internal/repository"
	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/export"
	"github.com/noah-isme/txnt-submissions-api/pkg/middleware/requestid"
)

const receiptFilename = "submission-receipt.pdf"

// IdempotencyStore reserves request keys so a retried submission is not mailed twice.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Lookup(ctx context.Context, key string) (string, bool, error)
	Complete(ctx context.Context, key, submissionID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type confirmationDispatcher interface {
	Dispatch(ctx context.Context, msg models.EmailMessage) error
}

type receiptRenderer interface {
	Render(receipt export.Receipt) ([]byte, error)
}

type submissionMetrics interface {
	emailMetrics
	RecordSubmission(path, outcome string)
}

// NotificationServiceConfig holds addresses and limits for submissions.
type NotificationServiceConfig struct {
	SourceEmail       string
	CompetitionEmail  string
	MaxAttachmentSize int64
	IdempotencyTTL    time.Duration
}

// NotificationOption configures optional collaborators.
type NotificationOption func(*NotificationService)

// WithConfirmations replaces the default inline confirmation dispatcher.
func WithConfirmations(d confirmationDispatcher) NotificationOption {
	return func(s *NotificationService) { s.confirmations = d }
}

// WithIdempotency enables duplicate suppression for requests carrying a key.
func WithIdempotency(store IdempotencyStore) NotificationOption {
	return func(s *NotificationService) { s.idempotency = store }
}

// WithReceipts attaches a PDF receipt to confirmation emails.
func WithReceipts(r receiptRenderer) NotificationOption {
	return func(s *NotificationService) { s.receipts = r }
}

// NotificationService turns a submission into the organizer email (authoritative)
// and the submitter confirmation (best effort).
type NotificationService struct {
	sender        mailSender
	renderer      *mail.Renderer
	confirmations confirmationDispatcher
	idempotency   IdempotencyStore
	receipts      receiptRenderer
	validator     *validator.Validate
	metrics       submissionMetrics
	logger        *zap.Logger
	cfg           NotificationServiceConfig
	now           func() time.Time
}

// NewNotificationService wires the submission notifier.
func NewNotificationService(sender mailSender, renderer *mail.Renderer, validate *validator.Validate, metrics submissionMetrics, logger *zap.Logger, cfg NotificationServiceConfig, opts ...NotificationOption) *NotificationService {
	if renderer == nil {
		renderer = mail.NewRenderer()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttachmentSize <= 0 {
		cfg.MaxAttachmentSize = models.MaxAttachmentSizeBytes
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	s := &NotificationService{
		sender:    sender,
		renderer:  renderer,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.confirmations == nil {
		s.confirmations = NewInlineConfirmations(sender, metrics)
	}
	return s
}

// Notify validates req, sends the organizer email and then the confirmation.
// Nothing is sent when validation fails. A confirmation failure is logged and
// does not fail the submission.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) (*models.SubmissionResult, error) {
	path := payloadLabel(req.Payload)
	meta := req.Metadata

	if err := s.validate(req); err != nil {
		s.recordSubmission(path, OutcomeRejected)
		return nil, err
	}

	var attachments []models.EmailAttachment
	view := mail.SubmissionView{OrganizerAddress: s.cfg.CompetitionEmail}

	switch p := req.Payload.(type) {
	case models.InlineAttachment:
		data, err := s.decodeInline(meta, p)
		if err != nil {
			s.recordSubmission(path, OutcomeRejected)
			return nil, err
		}
		meta.FileSize = int64(len(data))
		attachments = append(attachments, models.EmailAttachment{
			Filename:    meta.FileName,
			Content:     data,
			ContentType: detectContentType(data, meta.ContentType),
		})
		view.Attached = true
	case models.RemoteReference:
		view.DownloadURL = p.DownloadURL
		view.StorageKey = p.StorageKey
	}

	idemKey, err := s.reserve(ctx, meta.ContactEmail, req.IdempotencyKey)
	if err != nil {
		s.recordSubmission(path, OutcomeDuplicate)
		return nil, err
	}

	view.Metadata = meta
	view.ReceivedAt = s.now()

	rendered, err := s.renderer.Organizer(view)
	if err != nil {
		s.release(ctx, idemKey)
		s.recordSubmission(path, OutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render submission email")
	}

	res, err := sendRecorded(ctx, s.sender, s.metrics, emailKindOrganizer, models.EmailMessage{
		From:        s.cfg.SourceEmail,
		To:          []string{s.cfg.CompetitionEmail},
		Subject:     rendered.Subject,
		ReplyTo:     meta.ContactEmail,
		HTML:        rendered.HTML,
		Attachments: attachments,
	})
	if err != nil {
		s.release(ctx, idemKey)
		s.recordSubmission(path, OutcomeFailure)
		s.logger.Error("organizer email failed",
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.String("team", meta.TeamName),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, appErrors.WithCause(appErrors.ErrNotificationFailed, "Failed to send submission email", err)
	}

	view.SubmissionID = res.ID
	if view.SubmissionID == "" {
		view.SubmissionID = uuid.NewString()
	}
	s.logger.Info("submission received",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("submission_id", view.SubmissionID),
		zap.String("team", meta.TeamName),
		zap.String("path", path),
		zap.Int64("file_size", meta.FileSize),
	)

	s.confirm(ctx, view)
	s.complete(ctx, idemKey, view.SubmissionID)
	s.recordSubmission(path, OutcomeSuccess)

	return &models.SubmissionResult{Success: true, SubmissionID: view.SubmissionID}, nil
}

func (s *NotificationService) validate(req models.NotificationRequest) error {
	var problems fieldProblems
	if err := problems.collect(s.validator.Struct(req.Metadata)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	switch p := req.Payload.(type) {
	case models.InlineAttachment:
		if strings.TrimSpace(p.Base64) == "" {
			problems.addMissing("file_data")
		}
	case models.RemoteReference:
		if strings.TrimSpace(p.DownloadURL) == "" {
			problems.addMissing("s3_download_url")
		} else if s.validator.Var(p.DownloadURL, "url") != nil {
			problems.addInvalid("s3_download_url")
		}
		if req.Metadata.FileSize == 0 {
			problems.addMissing("file_size")
		}
	default:
		problems.addMissing("file_data")
	}
	return problems.err()
}

// decodeInline enforces the attachment ceiling before and after decoding.
func (s *NotificationService) decodeInline(meta models.SubmissionMetadata, p models.InlineAttachment) ([]byte, error) {
	limit := s.cfg.MaxAttachmentSize
	tooLarge := appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("File size exceeds %s limit", models.FormatLimit(limit)))
	if meta.FileSize > limit {
		return nil, tooLarge
	}

	encoded := stripDataURL(p.Base64)
	// DecodedLen overestimates by at most two bytes of padding.
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > limit+2 {
		return nil, tooLarge
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "Invalid fields: file_data must be base64 encoded file content", []string{"file_data"})
	}
	if int64(len(data)) > limit {
		return nil, tooLarge
	}
	return data, nil
}

func (s *NotificationService) reserve(ctx context.Context, contactEmail, requestID string) (string, error) {
	if s.idempotency == nil {
		return "", nil
	}
	key := DeriveIdempotencyKey(contactEmail, requestID)
	if key == "" {
		return "", nil
	}

	reserved, err := s.idempotency.Reserve(ctx, key, s.cfg.IdempotencyTTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, continuing without it", zap.Error(err))
		return "", nil
	}
	if reserved {
		return key, nil
	}

	existing, _, err := s.idempotency.Lookup(ctx, key)
	if err != nil || existing == repository.IdempotencyPending {
		return "", appErrors.Clone(appErrors.ErrDuplicate, "This submission is already being processed")
	}
	dup := appErrors.Clone(appErrors.ErrDuplicate, "This submission was already received")
	dup.Details = "submissionId: " + existing
	return "", dup
}

func (s *NotificationService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("release idempotency key failed", zap.Error(err))
	}
}

func (s *NotificationService) complete(ctx context.Context, key, submissionID string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Complete(ctx, key, submissionID, s.cfg.IdempotencyTTL); err != nil {
		s.logger.Warn("complete idempotency key failed", zap.Error(err))
	}
}

// confirm sends the submitter acknowledgement. Failures are only logged.
func (s *NotificationService) confirm(ctx context.Context, view mail.SubmissionView) {
	rendered, err := s.renderer.Confirmation(view)
	if err != nil {
		s.logger.Warn("render confirmation email failed", zap.Error(err))
		return
	}

	msg := models.EmailMessage{
		From:    s.cfg.SourceEmail,
		To:      []string{view.Metadata.ContactEmail},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
	}
	if s.receipts != nil {
		pdf, err := s.receipts.Render(buildReceipt(view))
		if err != nil {
			s.logger.Warn("render receipt failed", zap.String("submission_id", view.SubmissionID), zap.Error(err))
		} else {
			msg.Attachments = append(msg.Attachments, models.EmailAttachment{
				Filename:    receiptFilename,
				Content:     pdf,
				ContentType: "application/pdf",
			})
		}
	}

	if err := s.confirmations.Dispatch(ctx, msg); err != nil {
		s.logger.Warn("confirmation email failed",
			zap.String("submission_id", view.SubmissionID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) recordSubmission(path, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(path, outcome)
	}
}

func buildReceipt(view mail.SubmissionView) export.Receipt {
	meta := view.Metadata
	fields := []export.Field{
		{Label: "Reference", Value: view.SubmissionID},
		{Label: "Team Name", Value: meta.TeamName},
		{Label: "University", Value: meta.University},
		{Label: "Team Leader", Value: meta.TeamLeader},
		{Label: "Project Title", Value: meta.ProjectTitle},
		{Label: "File", Value: meta.FileName},
		{Label: "File Size", Value: mail.FormatMB(meta.FileSize) + " MB"},
	}
	delivery := "Attached to organizer email"
	if view.Remote() {
		delivery = "Uploaded to competition storage"
	}
	fields = append(fields, export.Field{Label: "Delivery", Value: delivery})

	return export.Receipt{
		Title:    "Submission Receipt",
		Subtitle: "Texas Neurotech Competition",
		IssuedAt: view.ReceivedAt,
		Fields:   fields,
		Footer:   "Keep this receipt for your records. Reply to the confirmation email with any questions.",
	}
}

func payloadLabel(p models.FilePayload) string {
	if p == nil {
		return "unknown"
	}
	return string(p.Kind())
}

// stripDataURL removes a "data:<type>;base64," prefix if present.
func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

// detectContentType sniffs data, preferring a declared type when sniffing
// finds nothing specific.
func detectContentType(data []byte, declared string) string {
	detected := mimetype.Detect(data).String()
	if detected == models.DefaultContentType && declared != "" {
		return declared
	}
	return detected
}
