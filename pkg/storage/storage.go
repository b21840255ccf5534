// Package storage mints time-limited write credentials for object storage
// backends and exposes the public read location of stored objects.
package storage

import (
	"net/http"
	"time"
)

// Metadata keys embedded on every uploaded object.
const (
	MetaTeamName        = "team-name"
	MetaOriginalName    = "original-filename"
	MetaUploadTimestamp = "upload-timestamp"
)

// DefaultUploadTTL is the expiry applied when a request does not set one.
const DefaultUploadTTL = time.Hour

// PutRequest scopes a write credential to a single key and content type.
type PutRequest struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Expires     time.Duration
}

func (r PutRequest) ttl() time.Duration {
	if r.Expires <= 0 {
		return DefaultUploadTTL
	}
	return r.Expires
}

// PresignedPut is a signed PUT location. Headers lists every header the
// uploader has to send verbatim for the signature to hold.
type PresignedPut struct {
	URL       string
	Headers   map[string]string
	ExpiresAt time.Time
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 || http.CanonicalHeaderKey(name) == "Host" {
			continue
		}
		out[http.CanonicalHeaderKey(name)] = values[0]
	}
	return out
}
