package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeriveIdempotencyKey scopes a client supplied request id to the submitter
// so two teams reusing the same id never collide. The result is a fixed
// length hex SHA-256.
func DeriveIdempotencyKey(contactEmail, requestID string) string {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ""
	}
	composite := strings.ToLower(strings.TrimSpace(contactEmail)) + "|" + requestID
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}
