package dto

// PresignRequest asks for a write credential for one file.
type PresignRequest struct {
	FileName    string `json:"fileName" validate:"required,notblank"`
	FileSize    int64  `json:"fileSize" validate:"required,gt=0"`
	ContentType string `json:"contentType"`
	TeamName    string `json:"teamName" validate:"required,notblank"`
}

// PresignResponse carries the credential and the eventual read location.
type PresignResponse struct {
	Success     bool              `json:"success"`
	UploadURL   string            `json:"uploadUrl"`
	S3Key       string            `json:"s3Key"`
	DownloadURL string            `json:"downloadUrl"`
	ExpiresIn   int               `json:"expiresIn"`
	Headers     map[string]string `json:"headers,omitempty"`
}
