package models

import (
	"fmt"
	"strings"
)

// Domain constants shared across handler, service, and client packages.
const (
	DefaultContentType      = "application/octet-stream"
	UploadURLTTLSeconds     = 3600             // 1 hour
	MaxUploadSizeBytes      = int64(500 << 20) // 500 MiB
	MaxAttachmentSizeBytes  = int64(50 << 20)  // 50 MiB
	LargeFileThresholdBytes = int64(5 << 20)   // 5 MiB
	SmallPathTimeoutSeconds = 45
)

// AllowedArchiveExtensions lists the file types the submission form accepts.
var AllowedArchiveExtensions = []string{".zip", ".rar", ".7z", ".tar", ".gz"}

// IsAllowedArchive reports whether fileName ends in an accepted extension,
// ignoring case.
func IsAllowedArchive(fileName string) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range AllowedArchiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FormatLimit renders a byte ceiling the way users see it, e.g. "500MB".
func FormatLimit(limit int64) string {
	const mib = 1024 * 1024
	if limit%mib == 0 {
		return fmt.Sprintf("%dMB", limit/mib)
	}
	return fmt.Sprintf("%.2fMB", float64(limit)/mib)
}
