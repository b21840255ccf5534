package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/export"
	"github.com/noah-isme/txnt-submissions-api/pkg/storage"
)

type sendCall struct {
	msg models.EmailMessage
}

// stubSender records every message and fails those whose first recipient
// appears in failFor.
type stubSender struct {
	mu      sync.Mutex
	calls   []sendCall
	failFor map[string]error
	nextID  string
}

func (s *stubSender) Send(_ context.Context, msg models.EmailMessage) (models.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sendCall{msg: msg})
	if len(msg.To) > 0 {
		if err, ok := s.failFor[msg.To[0]]; ok {
			return models.SendResult{}, err
		}
	}
	return models.SendResult{ID: s.nextID}, nil
}

func (s *stubSender) sent() []models.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EmailMessage, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.msg)
	}
	return out
}

func (s *stubSender) sentTo(addr string) []models.EmailMessage {
	var out []models.EmailMessage
	for _, m := range s.sent() {
		if len(m.To) > 0 && m.To[0] == addr {
			out = append(out, m)
		}
	}
	return out
}

type stubPresigner struct {
	requests []storage.PutRequest
	err      error
}

func (s *stubPresigner) PresignPut(_ context.Context, req storage.PutRequest) (storage.PresignedPut, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return storage.PresignedPut{}, s.err
	}
	return storage.PresignedPut{
		URL:       "https://uploads.example.com/" + req.Key + "?sig=abc",
		Headers:   map[string]string{"Content-Type": req.ContentType},
		ExpiresAt: time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubPresigner) PublicURL(key string) string {
	return "https://bucket.example.com/" + key
}

type stubReceipts struct {
	err   error
	calls int
}

func (s *stubReceipts) Render(export.Receipt) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.3 stub"), nil
}

type failingIdempotency struct{}

var errStoreDown = errors.New("store down")

func (failingIdempotency) Reserve(context.Context, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (failingIdempotency) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}
func (failingIdempotency) Complete(context.Context, string, string, time.Duration) error {
	return errStoreDown
}
func (failingIdempotency) Release(context.Context, string) error { return errStoreDown }

type recordingMetrics struct {
	mu          sync.Mutex
	grants      []string
	submissions []string
	emails      []string
}

func (m *recordingMetrics) RecordGrant(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, outcome)
}

func (m *recordingMetrics) RecordSubmission(path, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, path+":"+outcome)
}

func (m *recordingMetrics) RecordEmail(kind, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, kind+":"+outcome)
}
