package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
)

type apiStub struct {
	mu     sync.Mutex
	calls  []string
	upload *dto.PresignResponse
	err    map[string]error

	small dto.SmallSubmissionRequest
	large dto.LargeSubmissionRequest
}

func (s *apiStub) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.err[name]
}

func (s *apiStub) RequestUpload(_ context.Context, req dto.PresignRequest) (*dto.PresignResponse, error) {
	if err := s.record("presign"); err != nil {
		return nil, err
	}
	return s.upload, nil
}

func (s *apiStub) SubmitSmall(_ context.Context, req dto.SmallSubmissionRequest) (*dto.SubmissionResponse, error) {
	s.small = req
	if err := s.record("submit"); err != nil {
		return nil, err
	}
	return &dto.SubmissionResponse{Success: true, SubmissionID: "re_small", Message: "Submission received successfully"}, nil
}

func (s *apiStub) SubmitLarge(_ context.Context, req dto.LargeSubmissionRequest) (*dto.SubmissionResponse, error) {
	s.large = req
	if err := s.record("notify"); err != nil {
		return nil, err
	}
	return &dto.SubmissionResponse{Success: true, SubmissionID: "re_large"}, nil
}

type uploaderStub struct {
	api     *apiStub
	err     error
	headers map[string]string
	bytes   int
}

func (u *uploaderStub) Put(_ context.Context, _ string, headers map[string]string, body io.Reader, _ int64, progress ProgressFunc) error {
	u.api.record("upload") //nolint:errcheck
	u.headers = headers
	data, _ := io.ReadAll(body)
	u.bytes = len(data)
	if progress != nil {
		progress(1)
	}
	return u.err
}

func writeFile(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("PK\x03\x04")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

func testForm() Form {
	return Form{
		TeamName: "Neuro Knights", University: "UT", TeamLeader: "Sam", ContactEmail: "sam@ut.example",
		ProjectTitle: "Speller", ProjectDescription: "P300",
	}
}

func newTestOrchestrator(api *apiStub, up *uploaderStub, threshold int64) (*Orchestrator, *[]State) {
	var states []State
	o := NewOrchestrator(api, up, OrchestratorConfig{
		LargeFileThreshold: threshold,
		OnTransition:       func(_, to State) { states = append(states, to) },
	})
	return o, &states
}

func TestOrchestratorSmallPath(t *testing.T) {
	api := &apiStub{}
	o, states := newTestOrchestrator(api, &uploaderStub{api: api}, 1024)

	_, err := o.Select(writeFile(t, "project.zip", 100))
	require.NoError(t, err)

	res, err := o.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, "re_small", res.SubmissionID)
	assert.Equal(t, []string{"submit"}, api.calls)
	assert.Equal(t, int64(100), api.small.FileSize)
	assert.Equal(t, "project.zip", api.small.FileName)
	assert.NotEmpty(t, api.small.RequestID)
	assert.Equal(t, []State{StateFileSelected, StateValidating, StateSmallPathSubmitting, StateSucceeded}, *states)

	require.NoError(t, o.Reset())
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestratorLargePathOrder(t *testing.T) {
	api := &apiStub{upload: &dto.PresignResponse{
		Success: true, UploadURL: "https://u", S3Key: "k", DownloadURL: "https://d/k",
		Headers: map[string]string{"Content-Type": "application/zip"},
	}}
	up := &uploaderStub{api: api}
	o, states := newTestOrchestrator(api, up, 1024)

	_, err := o.Select(writeFile(t, "project.zip", 1024))
	require.NoError(t, err)

	res, err := o.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.True(t, res.Large)
	assert.Equal(t, []string{"presign", "upload", "notify"}, api.calls)
	assert.Equal(t, "https://d/k", api.large.S3DownloadURL)
	assert.Equal(t, "k", api.large.S3Key)
	assert.Equal(t, 1024, up.bytes)
	assert.Equal(t, "application/zip", up.headers["Content-Type"])
	assert.Equal(t, []State{
		StateFileSelected, StateValidating, StateLargePathIssuing,
		StateLargePathUploading, StateLargePathNotifying, StateSucceeded,
	}, *states)
}

func TestOrchestratorRejectsOversizeBeforeAnyCall(t *testing.T) {
	api := &apiStub{}
	o, states := newTestOrchestrator(api, &uploaderStub{api: api}, 0)

	_, err := o.Select(writeFile(t, "huge.zip", 501<<20))
	require.Error(t, err)

	var selErr *SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Contains(t, selErr.Reason, "500MB")
	assert.Equal(t, StateIdle, o.State())
	assert.Empty(t, *states)
	assert.Empty(t, api.calls)
}

func TestOrchestratorRejectsUnsupportedExtension(t *testing.T) {
	api := &apiStub{}
	o, _ := newTestOrchestrator(api, &uploaderStub{api: api}, 0)

	_, err := o.Select(writeFile(t, "report.pdf", 10))
	require.Error(t, err)
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestratorRevalidatesSizeAtSubmit(t *testing.T) {
	api := &apiStub{upload: &dto.PresignResponse{UploadURL: "https://u", S3Key: "k", DownloadURL: "https://d/k"}}
	o, _ := newTestOrchestrator(api, &uploaderStub{api: api}, 1024)

	path := writeFile(t, "project.zip", 10)
	sel, err := o.Select(path)
	require.NoError(t, err)
	assert.False(t, sel.Large)

	require.NoError(t, os.Truncate(path, 4096))

	_, err = o.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, []string{"presign", "upload", "notify"}, api.calls)
}

func TestOrchestratorFailureThenResubmit(t *testing.T) {
	api := &apiStub{err: map[string]error{"submit": &Failure{Kind: FailureServer, Op: "submit", Status: 500, Message: "Failed to send submission email"}}}
	o, _ := newTestOrchestrator(api, &uploaderStub{api: api}, 1024)

	_, err := o.Select(writeFile(t, "project.zip", 10))
	require.NoError(t, err)

	_, err = o.Submit(context.Background(), testForm())
	require.Error(t, err)
	assert.Equal(t, StateFailed, o.State())
	assert.Contains(t, err.Error(), "Failed to send submission email")
	assert.ErrorIs(t, o.Reset(), ErrInvalidTransition)

	firstID := api.small.RequestID
	delete(api.err, "submit")
	_, err = o.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, o.State())
	assert.Equal(t, firstID, api.small.RequestID)
}

func TestOrchestratorUploadFailureSkipsNotify(t *testing.T) {
	api := &apiStub{upload: &dto.PresignResponse{UploadURL: "https://u", S3Key: "k", DownloadURL: "https://d/k"}}
	up := &uploaderStub{api: api, err: &TransportError{Status: http.StatusForbidden, Err: errors.New("SignatureDoesNotMatch")}}
	o, _ := newTestOrchestrator(api, up, 1)

	_, err := o.Select(writeFile(t, "project.zip", 10))
	require.NoError(t, err)

	_, err = o.Submit(context.Background(), testForm())
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusForbidden, tErr.Status)
	assert.Equal(t, []string{"presign", "upload"}, api.calls)
}

func TestOrchestratorSubmitWithoutSelection(t *testing.T) {
	o, _ := newTestOrchestrator(&apiStub{}, nil, 0)
	_, err := o.Submit(context.Background(), testForm())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUploaderReportsMonotonicProgress(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/zip", r.Header.Get("Content-Type"))
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := strings.Repeat("x", 64*1024)
	var fractions []float64
	err := NewUploader(srv.Client()).Put(context.Background(), srv.URL+"/k", map[string]string{"Content-Type": "application/zip"},
		strings.NewReader(payload), int64(len(payload)), func(f float64) { fractions = append(fractions, f) })
	require.NoError(t, err)

	assert.Equal(t, payload, string(got))
	require.NotEmpty(t, fractions)
	for i, f := range fractions {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, f, fractions[i-1])
		}
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestUploaderSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<Error><Code>AccessDenied</Code></Error>"))
	}))
	defer srv.Close()

	err := NewUploader(nil).Put(context.Background(), srv.URL, nil, strings.NewReader("abc"), 3, nil)
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusForbidden, tErr.Status)
	assert.Contains(t, tErr.Error(), "AccessDenied")
}

func TestAPIClientClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prod/presigned-url":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"Missing required fields: teamName","code":"VALIDATION_ERROR","fields":["teamName"]}`))
		case "/prod/submit":
			assert.Equal(t, "rid-1", r.Header.Get("Idempotency-Key"))
			w.WriteHeader(http.StatusBadGateway)
		default:
			var req dto.LargeSubmissionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(dto.SubmissionResponse{Success: true, SubmissionID: "re_" + req.TeamName})
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/prod/", srv.Client())

	_, err := c.RequestUpload(context.Background(), dto.PresignRequest{FileName: "a.zip", FileSize: 1})
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, FailureValidation, f.Kind)
	assert.Equal(t, []string{"teamName"}, f.Fields)
	assert.Contains(t, f.Error(), "HTTP 400")

	_, err = c.SubmitSmall(context.Background(), dto.SmallSubmissionRequest{RequestID: "rid-1"})
	require.True(t, errors.As(err, &f))
	assert.Equal(t, FailureServer, f.Kind)
	assert.Equal(t, http.StatusBadGateway, f.Status)

	resp, err := c.SubmitLarge(context.Background(), dto.LargeSubmissionRequest{SubmissionMetadata: models.SubmissionMetadata{TeamName: "T"}})
	require.NoError(t, err)
	assert.Equal(t, "re_T", resp.SubmissionID)
}

func TestAPIClientNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewAPIClient(srv.URL, nil).RequestUpload(context.Background(), dto.PresignRequest{})
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, FailureNetwork, f.Kind)
}
