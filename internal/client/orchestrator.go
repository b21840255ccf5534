package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
)

// State is a step of a submission attempt.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateValidating
	StateSmallPathSubmitting
	StateLargePathIssuing
	StateLargePathUploading
	StateLargePathNotifying
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateFileSelected:        "file_selected",
	StateValidating:          "validating",
	StateSmallPathSubmitting: "small_path_submitting",
	StateLargePathIssuing:    "large_path_issuing",
	StateLargePathUploading:  "large_path_uploading",
	StateLargePathNotifying:  "large_path_notifying",
	StateSucceeded:           "succeeded",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists every legal move. Anything else is a programming error.
var transitions = map[State][]State{
	StateIdle:                {StateFileSelected},
	StateFileSelected:        {StateFileSelected, StateValidating},
	StateValidating:          {StateSmallPathSubmitting, StateLargePathIssuing, StateFailed},
	StateSmallPathSubmitting: {StateSucceeded, StateFailed},
	StateLargePathIssuing:    {StateLargePathUploading, StateFailed},
	StateLargePathUploading:  {StateLargePathNotifying, StateFailed},
	StateLargePathNotifying:  {StateSucceeded, StateFailed},
	StateSucceeded:           {StateIdle},
	StateFailed:              {StateFileSelected},
}

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// SelectionError explains why a file was refused.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string { return e.Reason }

// Form is the submitter supplied metadata.
type Form struct {
	TeamName           string
	University         string
	TeamLeader         string
	ContactEmail       string
	TeamMembers        string
	ProjectTitle       string
	ProjectDescription string
}

// Selection is the file chosen for submission.
type Selection struct {
	Path      string
	Name      string
	Size      int64
	Large     bool
	RequestID string
}

// Result is a received submission.
type Result struct {
	SubmissionID string
	Message      string
	Large        bool
	DownloadURL  string
}

type submissionAPI interface {
	RequestUpload(ctx context.Context, req dto.PresignRequest) (*dto.PresignResponse, error)
	SubmitSmall(ctx context.Context, req dto.SmallSubmissionRequest) (*dto.SubmissionResponse, error)
	SubmitLarge(ctx context.Context, req dto.LargeSubmissionRequest) (*dto.SubmissionResponse, error)
}

type objectUploader interface {
	Put(ctx context.Context, url string, headers map[string]string, body io.Reader, size int64, progress ProgressFunc) error
}

// OrchestratorConfig tunes size rules and observers.
type OrchestratorConfig struct {
	MaxFileSize        int64
	LargeFileThreshold int64
	OnTransition       func(from, to State)
	OnProgress         ProgressFunc
}

// Orchestrator runs one submission at a time through the state machine.
type Orchestrator struct {
	api      submissionAPI
	uploader objectUploader
	cfg      OrchestratorConfig

	mu        sync.Mutex
	state     State
	selection *Selection
	lastErr   error
}

// NewOrchestrator builds an orchestrator in StateIdle.
func NewOrchestrator(api submissionAPI, uploader objectUploader, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = models.MaxUploadSizeBytes
	}
	if cfg.LargeFileThreshold <= 0 {
		cfg.LargeFileThreshold = models.LargeFileThresholdBytes
	}
	return &Orchestrator{api: api, uploader: uploader, cfg: cfg, state: StateIdle}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the failure that moved the orchestrator to StateFailed.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Select picks a file. An oversize file or one with an unsupported extension
// is refused and the state does not change.
func (o *Orchestrator) Select(path string) (*Selection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.can(StateFileSelected) {
		return nil, fmt.Errorf("%w: select from %s", ErrInvalidTransition, o.state)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &SelectionError{Reason: fmt.Sprintf("cannot read file: %v", err)}
	}
	if err := o.checkFile(filepath.Base(path), info); err != nil {
		return nil, err
	}

	o.selection = &Selection{
		Path:      path,
		Name:      filepath.Base(path),
		Size:      info.Size(),
		Large:     info.Size() >= o.cfg.LargeFileThreshold,
		RequestID: uuid.NewString(),
	}
	o.moveLocked(StateFileSelected)
	sel := *o.selection
	return &sel, nil
}

// Submit runs the chosen path to completion. The file is re-examined first so
// a file swapped after selection is judged by its current size.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (*Result, error) {
	sel, err := o.begin()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(sel.Path)
	if err != nil {
		return nil, o.fail(&SelectionError{Reason: fmt.Sprintf("cannot read file: %v", err)})
	}
	if err := o.checkFile(sel.Name, info); err != nil {
		return nil, o.fail(err)
	}
	sel.Size = info.Size()
	sel.Large = sel.Size >= o.cfg.LargeFileThreshold

	contentType := models.DefaultContentType
	if mt, err := mimetype.DetectFile(sel.Path); err == nil {
		contentType = mt.String()
	}
	meta := form.metadata(sel, contentType)

	if sel.Large {
		return o.submitLarge(ctx, sel, meta)
	}
	return o.submitSmall(ctx, sel, meta)
}

// Reset returns to StateIdle after a success.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateSucceeded {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, o.state)
	}
	o.selection = nil
	o.lastErr = nil
	o.moveLocked(StateIdle)
	return nil
}

func (o *Orchestrator) submitSmall(ctx context.Context, sel Selection, meta models.SubmissionMetadata) (*Result, error) {
	if err := o.move(StateSmallPathSubmitting); err != nil {
		return nil, err
	}
	data, err := readAll(sel.Path, o.cfg.LargeFileThreshold)
	if err != nil {
		return nil, o.fail(err)
	}
	meta.FileSize = int64(len(data))

	resp, err := o.api.SubmitSmall(ctx, dto.SmallSubmissionRequest{
		SubmissionMetadata: meta,
		FileData:           base64.StdEncoding.EncodeToString(data),
		RequestID:          sel.RequestID,
	})
	if err != nil {
		return nil, o.fail(err)
	}
	if err := o.move(StateSucceeded); err != nil {
		return nil, err
	}
	return &Result{SubmissionID: resp.SubmissionID, Message: resp.Message}, nil
}

func (o *Orchestrator) submitLarge(ctx context.Context, sel Selection, meta models.SubmissionMetadata) (*Result, error) {
	if err := o.move(StateLargePathIssuing); err != nil {
		return nil, err
	}
	grant, err := o.api.RequestUpload(ctx, dto.PresignRequest{
		FileName:    sel.Name,
		FileSize:    sel.Size,
		ContentType: meta.ContentType,
		TeamName:    meta.TeamName,
	})
	if err != nil {
		return nil, o.fail(err)
	}

	if err := o.move(StateLargePathUploading); err != nil {
		return nil, err
	}
	file, err := os.Open(sel.Path)
	if err != nil {
		return nil, o.fail(err)
	}
	headers := grant.Headers
	if len(headers) == 0 {
		headers = map[string]string{"Content-Type": meta.ContentType}
	}
	err = o.uploader.Put(ctx, grant.UploadURL, headers, file, sel.Size, o.cfg.OnProgress)
	file.Close() //nolint:errcheck
	if err != nil {
		return nil, o.fail(err)
	}

	if err := o.move(StateLargePathNotifying); err != nil {
		return nil, err
	}
	resp, err := o.api.SubmitLarge(ctx, dto.LargeSubmissionRequest{
		SubmissionMetadata: meta,
		S3DownloadURL:      grant.DownloadURL,
		S3Key:              grant.S3Key,
		RequestID:          sel.RequestID,
	})
	if err != nil {
		return nil, o.fail(err)
	}
	if err := o.move(StateSucceeded); err != nil {
		return nil, err
	}
	return &Result{SubmissionID: resp.SubmissionID, Message: resp.Message, Large: true, DownloadURL: grant.DownloadURL}, nil
}

// begin enters StateValidating, re-entering StateFileSelected after a failure.
func (o *Orchestrator) begin() (Selection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.selection == nil {
		return Selection{}, fmt.Errorf("%w: no file selected", ErrInvalidTransition)
	}
	if o.state == StateFailed {
		o.lastErr = nil
		o.moveLocked(StateFileSelected)
	}
	if !o.can(StateValidating) {
		return Selection{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, o.state)
	}
	o.moveLocked(StateValidating)
	return *o.selection, nil
}

func (o *Orchestrator) checkFile(name string, info os.FileInfo) error {
	if info.IsDir() {
		return &SelectionError{Reason: fmt.Sprintf("%s is a directory", name)}
	}
	if info.Size() == 0 {
		return &SelectionError{Reason: fmt.Sprintf("%s is empty", name)}
	}
	if info.Size() > o.cfg.MaxFileSize {
		return &SelectionError{Reason: fmt.Sprintf("File size exceeds maximum limit of %s", models.FormatLimit(o.cfg.MaxFileSize))}
	}
	if !models.IsAllowedArchive(name) {
		return &SelectionError{Reason: fmt.Sprintf("Unsupported file type; allowed: %v", models.AllowedArchiveExtensions)}
	}
	return nil
}

func (o *Orchestrator) move(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.can(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.state, to)
	}
	o.moveLocked(to)
	return nil
}

func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = err
	if o.can(StateFailed) {
		o.moveLocked(StateFailed)
	}
	return err
}

func (o *Orchestrator) can(to State) bool {
	for _, allowed := range transitions[o.state] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (o *Orchestrator) moveLocked(to State) {
	from := o.state
	o.state = to
	if o.cfg.OnTransition != nil {
		o.cfg.OnTransition(from, to)
	}
}

func (f Form) metadata(sel Selection, contentType string) models.SubmissionMetadata {
	return models.SubmissionMetadata{
		TeamName:           f.TeamName,
		University:         f.University,
		TeamLeader:         f.TeamLeader,
		ContactEmail:       f.ContactEmail,
		TeamMembers:        f.TeamMembers,
		ProjectTitle:       f.ProjectTitle,
		ProjectDescription: f.ProjectDescription,
		FileName:           sel.Name,
		FileSize:           sel.Size,
		ContentType:        contentType,
	}
}

// readAll reads path, refusing to buffer more than limit bytes.
func readAll(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &SelectionError{Reason: "file grew past the inline limit while reading; submit again"}
	}
	return data, nil
}
