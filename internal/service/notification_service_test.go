package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/internal/repository"
	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/jobs"
)

const (
	organizerAddr = "competition@txnt.example"
	submitterAddr = "lead@uni.example"
)

func testMetadata() models.SubmissionMetadata {
	return models.SubmissionMetadata{
		TeamName:           "Neuro Knights",
		University:         "UT Austin",
		TeamLeader:         "Sam Rivera",
		ContactEmail:       submitterAddr,
		TeamMembers:        "Sam Rivera\nAlex Chen",
		ProjectTitle:       "EEG Speller",
		ProjectDescription: "A P300 speller.",
		FileName:           "project.zip",
		FileSize:           4,
	}
}

func newNotifier(sender *stubSender, opts ...NotificationOption) *NotificationService {
	svc := NewNotificationService(sender, nil, nil, nil, nil, NotificationServiceConfig{
		SourceEmail:      "noreply@txnt.example",
		CompetitionEmail: organizerAddr,
	}, opts...)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc
}

func inline(data []byte) models.InlineAttachment {
	return models.InlineAttachment{Base64: base64.StdEncoding.EncodeToString(data)}
}

func TestNotifyInlineSendsOrganizerThenConfirmation(t *testing.T) {
	sender := &stubSender{nextID: "email-1"}
	svc := newNotifier(sender)

	res, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: testMetadata(),
		Payload:  inline([]byte("PK\x03\x04")),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "email-1", res.SubmissionID)

	sent := sender.sent()
	require.Len(t, sent, 2)

	organizer := sent[0]
	assert.Equal(t, []string{organizerAddr}, organizer.To)
	assert.Equal(t, submitterAddr, organizer.ReplyTo)
	assert.Equal(t, "🧠 TxNT Competition Submission: Neuro Knights (UT Austin)", organizer.Subject)
	require.Len(t, organizer.Attachments, 1)
	assert.Equal(t, "project.zip", organizer.Attachments[0].Filename)
	assert.Equal(t, []byte("PK\x03\x04"), organizer.Attachments[0].Content)
	assert.Equal(t, "application/zip", organizer.Attachments[0].ContentType)

	confirmation := sent[1]
	assert.Equal(t, []string{submitterAddr}, confirmation.To)
	assert.Equal(t, "✅ Competition Submission Received - Neuro Knights", confirmation.Subject)
	assert.Contains(t, confirmation.HTML, "email-1")
	assert.Empty(t, confirmation.Attachments)
}

func TestNotifyRemoteIncludesDownloadLink(t *testing.T) {
	sender := &stubSender{nextID: "email-2"}
	svc := newNotifier(sender)

	meta := testMetadata()
	meta.FileSize = 120 << 20
	res, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: meta,
		Payload: models.RemoteReference{
			DownloadURL: "https://bucket.s3.amazonaws.com/competition-submissions/2025-03-14/Neuro_Knights/abc_project.zip",
			StorageKey:  "competition-submissions/2025-03-14/Neuro_Knights/abc_project.zip",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "email-2", res.SubmissionID)

	organizer := sender.sentTo(organizerAddr)
	require.Len(t, organizer, 1)
	assert.True(t, strings.HasSuffix(organizer[0].Subject, " - Large File"))
	assert.Contains(t, organizer[0].HTML, "abc_project.zip")
	assert.Contains(t, organizer[0].HTML, "120.00 MB")
	assert.Empty(t, organizer[0].Attachments)
}

func TestNotifyOrganizerFailureSkipsConfirmation(t *testing.T) {
	sender := &stubSender{failFor: map[string]error{organizerAddr: errors.New("domain not verified")}}
	metrics := &recordingMetrics{}
	svc := NewNotificationService(sender, nil, nil, metrics, nil, NotificationServiceConfig{CompetitionEmail: organizerAddr})

	_, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: testMetadata(),
		Payload:  inline([]byte("data")),
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Failed to send submission email", appErr.Message)
	assert.Equal(t, "domain not verified", appErr.Details)

	assert.Empty(t, sender.sentTo(submitterAddr))
	assert.Equal(t, []string{"inline:" + OutcomeFailure}, metrics.submissions)
	assert.Equal(t, []string{"organizer:" + OutcomeFailure}, metrics.emails)
}

func TestNotifyConfirmationFailureStillSucceeds(t *testing.T) {
	sender := &stubSender{
		nextID:  "email-3",
		failFor: map[string]error{submitterAddr: errors.New("mailbox unavailable")},
	}
	svc := newNotifier(sender)

	res, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: testMetadata(),
		Payload:  inline([]byte("data")),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, sender.sent(), 2)
}

func TestNotifyMissingContactEmailSendsNothing(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender)

	meta := testMetadata()
	meta.ContactEmail = ""
	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: meta, Payload: inline([]byte("x"))})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, []string{"contact_email"}, appErr.Fields)
	assert.Empty(t, sender.sent())
}

func TestNotifyReportsMissingPayloadFields(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender)

	meta := testMetadata()
	meta.FileSize = 0
	_, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: meta,
		Payload:  models.RemoteReference{DownloadURL: "not a url"},
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, []string{"file_size", "s3_download_url"}, appErr.Fields)
	assert.Contains(t, appErr.Message, "Missing required fields: file_size")
	assert.Contains(t, appErr.Message, "Invalid fields: s3_download_url")
	assert.Empty(t, sender.sent())

	_, err = svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: models.InlineAttachment{}})
	require.Error(t, err)
	assert.Equal(t, []string{"file_data"}, appErrors.FromError(err).Fields)
}

func TestNotifyRejectsOversizeAttachment(t *testing.T) {
	sender := &stubSender{}
	svc := NewNotificationService(sender, nil, nil, nil, nil, NotificationServiceConfig{
		CompetitionEmail:  organizerAddr,
		MaxAttachmentSize: 8,
	})

	_, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: testMetadata(),
		Payload:  inline([]byte("123456789")),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "File size exceeds")

	meta := testMetadata()
	meta.FileSize = 9
	_, err = svc.Notify(context.Background(), models.NotificationRequest{Metadata: meta, Payload: inline([]byte("1"))})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)

	assert.Empty(t, sender.sent())
}

func TestNotifyDefaultLimitMessage(t *testing.T) {
	svc := newNotifier(&stubSender{})
	meta := testMetadata()
	meta.FileSize = models.MaxAttachmentSizeBytes + 1

	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: meta, Payload: inline([]byte("x"))})
	require.Error(t, err)
	assert.Equal(t, "File size exceeds 50MB limit", appErrors.FromError(err).Message)
}

func TestNotifyRejectsMalformedBase64(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender)

	_, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata: testMetadata(),
		Payload:  models.InlineAttachment{Base64: "!!not-base64!!"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"file_data"}, appErrors.FromError(err).Fields)
	assert.Empty(t, sender.sent())
}

func TestNotifyAcceptsDataURL(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender)

	payload := models.InlineAttachment{Base64: "data:application/zip;base64," + base64.StdEncoding.EncodeToString([]byte("zipdata"))}
	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: payload})
	require.NoError(t, err)

	organizer := sender.sentTo(organizerAddr)
	require.Len(t, organizer, 1)
	assert.Equal(t, []byte("zipdata"), organizer[0].Attachments[0].Content)
}

func TestNotifySuppressesDuplicates(t *testing.T) {
	sender := &stubSender{nextID: "email-4"}
	store := repository.NewMemoryIdempotencyStore()
	svc := newNotifier(sender, WithIdempotency(store))

	req := models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data")), IdempotencyKey: "req-1"}
	first, err := svc.Notify(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Notify(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Details, first.SubmissionID)

	assert.Len(t, sender.sentTo(organizerAddr), 1)
}

func TestNotifyReleasesKeyAfterOrganizerFailure(t *testing.T) {
	sender := &stubSender{failFor: map[string]error{organizerAddr: errors.New("throttled")}}
	store := repository.NewMemoryIdempotencyStore()
	svc := newNotifier(sender, WithIdempotency(store))

	req := models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data")), IdempotencyKey: "req-2"}
	_, err := svc.Notify(context.Background(), req)
	require.Error(t, err)

	delete(sender.failFor, organizerAddr)
	_, err = svc.Notify(context.Background(), req)
	assert.NoError(t, err)
}

func TestNotifyIgnoresUnavailableIdempotencyStore(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender, WithIdempotency(failingIdempotency{}))

	_, err := svc.Notify(context.Background(), models.NotificationRequest{
		Metadata:       testMetadata(),
		Payload:        inline([]byte("data")),
		IdempotencyKey: "req-3",
	})
	assert.NoError(t, err)
}

func TestNotifyAttachesReceipt(t *testing.T) {
	sender := &stubSender{nextID: "email-5"}
	receipts := &stubReceipts{}
	svc := newNotifier(sender, WithReceipts(receipts))

	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data"))})
	require.NoError(t, err)

	confirmation := sender.sentTo(submitterAddr)
	require.Len(t, confirmation, 1)
	require.Len(t, confirmation[0].Attachments, 1)
	assert.Equal(t, "submission-receipt.pdf", confirmation[0].Attachments[0].Filename)
	assert.Equal(t, 1, receipts.calls)
}

func TestNotifyReceiptFailureStillConfirms(t *testing.T) {
	sender := &stubSender{}
	svc := newNotifier(sender, WithReceipts(&stubReceipts{err: errors.New("font missing")}))

	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data"))})
	require.NoError(t, err)

	confirmation := sender.sentTo(submitterAddr)
	require.Len(t, confirmation, 1)
	assert.Empty(t, confirmation[0].Attachments)
}

func TestNotifyWithQueuedConfirmations(t *testing.T) {
	sender := &stubSender{nextID: "email-6"}
	queued := NewQueuedConfirmations(sender, nil, nil, jobs.QueueConfig{Workers: 1, BufferSize: 4, RetryDelay: time.Millisecond})
	queued.Start(context.Background())
	svc := newNotifier(sender, WithConfirmations(queued))

	_, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data"))})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, queued.Stop(ctx))

	assert.Len(t, sender.sentTo(submitterAddr), 1)
}

func TestNotifyFallsBackToGeneratedSubmissionID(t *testing.T) {
	svc := newNotifier(&stubSender{})
	res, err := svc.Notify(context.Background(), models.NotificationRequest{Metadata: testMetadata(), Payload: inline([]byte("data"))})
	require.NoError(t, err)
	assert.Len(t, res.SubmissionID, 36)
}

func TestDeriveIdempotencyKey(t *testing.T) {
	a := DeriveIdempotencyKey("Lead@Uni.example", "req-1")
	b := DeriveIdempotencyKey("lead@uni.example ", "req-1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, DeriveIdempotencyKey("other@uni.example", "req-1"))
	assert.Empty(t, DeriveIdempotencyKey("lead@uni.example", "  "))
}
