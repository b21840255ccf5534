package dto

import "github.com/noah-isme/txnt-submissions-api/internal/models"

// SmallSubmissionRequest is a submission with the file inlined as base64.
type SmallSubmissionRequest struct {
	models.SubmissionMetadata
	FileData  string `json:"file_data" validate:"required"`
	RequestID string `json:"request_id,omitempty"`
}

// LargeSubmissionRequest notifies organizers about an uploaded object.
type LargeSubmissionRequest struct {
	models.SubmissionMetadata
	S3DownloadURL string `json:"s3_download_url" validate:"required,url"`
	S3Key         string `json:"s3_key,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// SubmissionResponse acknowledges a received submission.
type SubmissionResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
}
