// Package client drives a competition submission from the submitter's side:
// it picks the delivery path, uploads large files straight to storage and
// reports a failure the user can act on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
)

// FailureKind separates what the user can fix from what they cannot.
type FailureKind string

const (
	FailureNetwork    FailureKind = "network"
	FailureValidation FailureKind = "validation"
	FailureServer     FailureKind = "server"
)

// Failure is an API call that did not succeed.
type Failure struct {
	Kind     FailureKind
	Op       string
	Status   int
	Code     string
	Message  string
	Details  string
	Fields   []string
	Duration time.Duration
	Err      error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s error", f.Op, f.Kind)
	if f.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", f.Status)
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	} else if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	if f.Details != "" {
		b.WriteString(" - ")
		b.WriteString(f.Details)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// APIClient calls the submission endpoints.
type APIClient struct {
	baseURL      string
	http         *http.Client
	smallTimeout time.Duration
}

// NewAPIClient targets baseURL, e.g. https://api.example.com/prod.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         httpClient,
		smallTimeout: models.SmallPathTimeoutSeconds * time.Second,
	}
}

// RequestUpload asks for a presigned upload URL.
func (c *APIClient) RequestUpload(ctx context.Context, req dto.PresignRequest) (*dto.PresignResponse, error) {
	var out dto.PresignResponse
	if err := c.post(ctx, "presign", "/presigned-url", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitSmall sends an inline submission, bounded by the small path timeout.
func (c *APIClient) SubmitSmall(ctx context.Context, req dto.SmallSubmissionRequest) (*dto.SubmissionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.smallTimeout)
	defer cancel()

	var out dto.SubmissionResponse
	if err := c.post(ctx, "submit", "/submit", req.RequestID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitLarge notifies organizers about an uploaded object.
func (c *APIClient) SubmitLarge(ctx context.Context, req dto.LargeSubmissionRequest) (*dto.SubmissionResponse, error) {
	var out dto.SubmissionResponse
	if err := c.post(ctx, "notify", "/submit-large", req.RequestID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) post(ctx context.Context, op, path, idempotencyKey string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		failure := &Failure{Kind: FailureNetwork, Op: op, Duration: time.Since(start), Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			failure.Message = fmt.Sprintf("request timed out after %s", failure.Duration.Round(time.Second))
		}
		return failure
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Failure{Kind: FailureNetwork, Op: op, Status: resp.StatusCode, Duration: time.Since(start), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(op, resp.StatusCode, body, time.Since(start))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Failure{Kind: FailureServer, Op: op, Status: resp.StatusCode, Message: "unreadable response", Duration: time.Since(start), Err: err}
	}
	return nil
}

func decodeFailure(op string, status int, body []byte, took time.Duration) *Failure {
	failure := &Failure{Op: op, Status: status, Duration: took, Kind: FailureServer}
	if status >= 400 && status < 500 {
		failure.Kind = FailureValidation
	}

	var errBody response.ErrorBody
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
		failure.Message = errBody.Error
		failure.Code = errBody.Code
		failure.Details = errBody.Details
		failure.Fields = errBody.Fields
		return failure
	}
	failure.Message = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	return failure
}
