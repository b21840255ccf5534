package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/config"
)

type memorySender struct {
	mu   sync.Mutex
	sent []models.EmailMessage
}

func (s *memorySender) Send(_ context.Context, msg models.EmailMessage) (models.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return models.SendResult{ID: "re_" + time.Now().Format("150405.000000")}, nil
}

type contextCheckingSender struct {
	memorySender
	failed int
}

func (s *contextCheckingSender) Send(ctx context.Context, msg models.EmailMessage) (models.SendResult, error) {
	if err := ctx.Err(); err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		return models.SendResult{}, err
	}
	return s.memorySender.Send(ctx, msg)
}

func (s *memorySender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env: config.EnvDevelopment,
		Mail: config.MailConfig{
			APIKey:           "re_test",
			SourceEmail:      "noreply@txnt.example",
			CompetitionEmail: "org@txnt.example",
			DestinationEmail: "org@txnt.example",
		},
		Storage: config.StorageConfig{
			Driver:             config.StorageLocal,
			LocalDir:           t.TempDir(),
			LocalSigningSecret: "secret",
			PublicBaseURL:      "http://localhost:8080",
			UploadURLTTL:       time.Hour,
		},
		Limits: config.LimitsConfig{
			MaxUploadSize:      500 << 20,
			MaxAttachmentSize:  50 << 20,
			LargeFileThreshold: 5 << 20,
		},
		Redis:       config.RedisConfig{Host: "127.0.0.1", Port: 1},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
	}
}

func post(t *testing.T, h http.Handler, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mail.SourceEmail = ""
	_, err := New(context.Background(), cfg, nil, Options{Sender: &memorySender{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_EMAIL")
}

func TestAppLargeFileFlowWithLocalStorage(t *testing.T) {
	sender := &memorySender{}
	a, err := New(context.Background(), testConfig(t), nil, Options{Sender: sender})
	require.NoError(t, err)
	defer a.Shutdown(context.Background()) //nolint:errcheck

	w := post(t, a.Router, "/presigned-url", dto.PresignRequest{
		FileName: "project.zip", FileSize: 9, ContentType: "application/zip", TeamName: "Neuro Knights",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var grant dto.PresignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grant))
	assert.True(t, strings.HasPrefix(grant.S3Key, "competition-submissions/"))

	u, err := url.Parse(grant.UploadURL)
	require.NoError(t, err)
	put := httptest.NewRequest(http.MethodPut, u.RequestURI(), strings.NewReader("zip-bytes"))
	for k, v := range grant.Headers {
		put.Header.Set(k, v)
	}
	pw := httptest.NewRecorder()
	a.Router.ServeHTTP(pw, put)
	require.Equal(t, http.StatusOK, pw.Code)

	w = post(t, a.Router, "/submit-large", map[string]interface{}{
		"team_name": "Neuro Knights", "university": "UT", "team_leader": "Sam", "contact_email": "sam@ut.example",
		"project_title": "Speller", "project_description": "P300", "file_name": "project.zip", "file_size": 9,
		"s3_download_url": grant.DownloadURL, "s3_key": grant.S3Key,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, sender.count())
}

func TestAppSuppressesDuplicateWithoutRedis(t *testing.T) {
	sender := &memorySender{}
	a, err := New(context.Background(), testConfig(t), nil, Options{Sender: sender})
	require.NoError(t, err)

	body := map[string]interface{}{
		"team_name": "T", "university": "U", "team_leader": "L", "contact_email": "l@u.example",
		"project_title": "P", "project_description": "D", "file_name": "a.zip",
		"file_data": base64.StdEncoding.EncodeToString([]byte("PK\x03\x04")),
	}
	headers := map[string]string{"Idempotency-Key": "click-1"}

	require.Equal(t, http.StatusOK, post(t, a.Router, "/submit", body, headers).Code)
	require.Equal(t, http.StatusConflict, post(t, a.Router, "/submit", body, headers).Code)
	assert.Equal(t, 2, sender.count())
}

func TestAppQueuedConfirmationsDrainOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mail.AsyncConfirmations = true
	cfg.Mail.ConfirmationRetries = 1
	cfg.Idempotency.Enabled = false

	sender := &memorySender{}
	a, err := New(context.Background(), cfg, nil, Options{Sender: sender, Background: true})
	require.NoError(t, err)
	a.Start(context.Background())

	w := post(t, a.Router, "/contact", dto.ContactRequest{ContactMessage: models.ContactMessage{
		Name: "Jo", Email: "jo@example.com", Organization: "Club", Message: "Hi",
	}}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = post(t, a.Router, "/submit", map[string]interface{}{
		"team_name": "T", "university": "U", "team_leader": "L", "contact_email": "l@u.example",
		"project_title": "P", "project_description": "D", "file_name": "a.zip",
		"file_data": base64.StdEncoding.EncodeToString([]byte("data")),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.Equal(t, 3, sender.count())
}

func TestAppQueuedConfirmationsSurviveCancelledStartContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mail.AsyncConfirmations = true
	cfg.Mail.ConfirmationRetries = 1
	cfg.Idempotency.Enabled = false

	sender := &contextCheckingSender{}
	a, err := New(context.Background(), cfg, nil, Options{Sender: sender, Background: true})
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(context.Background())
	a.Start(runCtx)
	stop()

	w := post(t, a.Router, "/submit", map[string]interface{}{
		"team_name": "T", "university": "U", "team_leader": "L", "contact_email": "l@u.example",
		"project_title": "P", "project_description": "D", "file_name": "a.zip",
		"file_data": base64.StdEncoding.EncodeToString([]byte("data")),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.Equal(t, 2, sender.count())
	assert.Zero(t, sender.failed)
}
