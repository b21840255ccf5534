package models

// SubmissionMetadata describes a competition entry and the file it carries.
type SubmissionMetadata struct {
	TeamName           string `json:"team_name" validate:"required,notblank"`
	University         string `json:"university" validate:"required,notblank"`
	TeamLeader         string `json:"team_leader" validate:"required,notblank"`
	ContactEmail       string `json:"contact_email" validate:"required,email"`
	TeamMembers        string `json:"team_members,omitempty"`
	ProjectTitle       string `json:"project_title" validate:"required,notblank"`
	ProjectDescription string `json:"project_description" validate:"required,notblank"`
	FileName           string `json:"file_name" validate:"required,notblank"`
	FileSize           int64  `json:"file_size" validate:"gte=0"`
	ContentType        string `json:"content_type,omitempty"`
}

// PayloadKind tags the variant held by a FilePayload.
type PayloadKind string

const (
	PayloadInline PayloadKind = "inline"
	PayloadRemote PayloadKind = "remote"
)

// FilePayload is either an InlineAttachment or a RemoteReference.
type FilePayload interface {
	Kind() PayloadKind
}

// InlineAttachment carries base64 file bytes for the small-file path.
type InlineAttachment struct {
	Base64 string
}

func (InlineAttachment) Kind() PayloadKind { return PayloadInline }

// RemoteReference points at an object already uploaded to storage.
type RemoteReference struct {
	DownloadURL string
	StorageKey  string
}

func (RemoteReference) Kind() PayloadKind { return PayloadRemote }

// NotificationRequest is consumed once to produce the organizer and
// confirmation emails for a submission.
type NotificationRequest struct {
	Metadata       SubmissionMetadata
	Payload        FilePayload
	IdempotencyKey string
}

// UploadGrant is a time-limited write credential for a single object.
type UploadGrant struct {
	UploadURL   string
	StorageKey  string
	DownloadURL string
	ExpiresIn   int
	Headers     map[string]string
}

// SubmissionResult reports the outcome of a submission.
type SubmissionResult struct {
	Success      bool
	SubmissionID string
	Error        string
}
