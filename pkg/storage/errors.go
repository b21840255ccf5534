package storage

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

// ErrInvalidToken is returned when a local upload token fails verification.
var ErrInvalidToken = errors.New("storage: invalid upload token")

// ErrObjectTooLarge is returned when a local upload exceeds its byte limit.
var ErrObjectTooLarge = errors.New("storage: object exceeds size limit")

// Error describes a failed storage provider call with bucket and key context.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func newObjectError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("storage.%s %s/%s: %s", e.Op, e.Bucket, e.Key, e.ProviderMessage())
	}
	return fmt.Sprintf("storage.%s: %s", e.Op, e.ProviderMessage())
}

func (e *Error) Unwrap() error { return e.Err }

// ProviderMessage returns the provider's error code and message when the
// underlying error carries them, falling back to the raw error text.
func (e *Error) ProviderMessage() string {
	if e.Err == nil {
		return "unknown error"
	}

	var apiErr smithy.APIError
	if errors.As(e.Err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}

	if resp := minio.ToErrorResponse(e.Err); resp.Code != "" {
		return fmt.Sprintf("%s: %s", resp.Code, resp.Message)
	}

	return e.Err.Error()
}

// StatusCode returns the provider HTTP status when known, otherwise 0.
func (e *Error) StatusCode() int {
	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(e.Err, &withStatus) {
		return withStatus.HTTPStatusCode()
	}
	if resp := minio.ToErrorResponse(e.Err); resp.StatusCode != 0 {
		return resp.StatusCode
	}
	return 0
}
