package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/jobs"
)

const (
	emailKindOrganizer    = "organizer"
	emailKindConfirmation = "confirmation"
	emailKindContact      = "contact"
	emailKindRegistration = "registration"

	confirmationJobKind = "confirmation_email"
	confirmationTimeout = 30 * time.Second
)

type mailSender interface {
	Send(ctx context.Context, msg models.EmailMessage) (models.SendResult, error)
}

type emailMetrics interface {
	RecordEmail(kind, outcome string, duration time.Duration)
}

// sendRecorded calls sender and records the outcome under kind.
func sendRecorded(ctx context.Context, sender mailSender, metrics emailMetrics, kind string, msg models.EmailMessage) (models.SendResult, error) {
	start := time.Now()
	res, err := sender.Send(ctx, msg)
	if metrics != nil {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		metrics.RecordEmail(kind, outcome, time.Since(start))
	}
	return res, err
}

// InlineConfirmations sends confirmation emails within the request.
type InlineConfirmations struct {
	sender  mailSender
	metrics emailMetrics
}

// NewInlineConfirmations builds a synchronous dispatcher.
func NewInlineConfirmations(sender mailSender, metrics emailMetrics) *InlineConfirmations {
	return &InlineConfirmations{sender: sender, metrics: metrics}
}

// Dispatch sends msg and returns the provider error, if any.
func (d *InlineConfirmations) Dispatch(ctx context.Context, msg models.EmailMessage) error {
	_, err := sendRecorded(ctx, d.sender, d.metrics, emailKindConfirmation, msg)
	return err
}

// QueuedConfirmations hands confirmation emails to a background queue with
// bounded retries. When the queue cannot take a job the email is sent inline.
type QueuedConfirmations struct {
	queue    *jobs.Queue
	fallback *InlineConfirmations
	logger   *zap.Logger
}

// NewQueuedConfirmations builds a queue backed dispatcher. Call Start before use.
func NewQueuedConfirmations(sender mailSender, metrics emailMetrics, logger *zap.Logger, cfg jobs.QueueConfig) *QueuedConfirmations {
	if logger == nil {
		logger = zap.NewNop()
	}
	inline := NewInlineConfirmations(sender, metrics)
	cfg.Logger = logger
	if cfg.OnGiveUp == nil {
		cfg.OnGiveUp = func(job jobs.Job, err error) {
			logger.Warn("confirmation email dropped", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(models.EmailMessage)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		sendCtx, cancel := context.WithTimeout(ctx, confirmationTimeout)
		defer cancel()
		return inline.Dispatch(sendCtx, msg)
	}

	return &QueuedConfirmations{
		queue:    jobs.NewQueue("confirmations", handler, cfg),
		fallback: inline,
		logger:   logger,
	}
}

// Start launches the queue workers.
func (d *QueuedConfirmations) Start(ctx context.Context) { d.queue.Start(ctx) }

// Stop drains pending confirmations.
func (d *QueuedConfirmations) Stop(ctx context.Context) error { return d.queue.Stop(ctx) }

// Dispatch enqueues msg, falling back to an inline send.
func (d *QueuedConfirmations) Dispatch(ctx context.Context, msg models.EmailMessage) error {
	err := d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Kind: confirmationJobKind, Payload: msg})
	if err == nil {
		return nil
	}
	if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
		d.logger.Warn("confirmation queue unavailable, sending inline", zap.Error(err))
		return d.fallback.Dispatch(ctx, msg)
	}
	return err
}
