// Package storagekey derives object keys for competition submissions.
//
// Keys have the shape
//
//	competition-submissions/{YYYY-MM-DD}/{team}/{id}_{base}.{ext}
//
// where team and base are sanitized to [A-Za-z0-9-_] and id is a random
// identifier supplied by the caller. Uniqueness comes from id alone.
package storagekey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the top-level partition for every submission object.
const Prefix = "competition-submissions"

// ErrInvalidInput is returned when a key cannot be derived from the inputs.
// The errors below wrap it and name the input at fault.
var (
	ErrInvalidInput    = errors.New("storagekey: invalid input")
	ErrBlankTeamName   = fmt.Errorf("%w: team name is required", ErrInvalidInput)
	ErrBlankFileName   = fmt.Errorf("%w: file name is required", ErrInvalidInput)
	ErrUnsafeExtension = fmt.Errorf("%w: unsupported file extension", ErrInvalidInput)
	errInvalidRandomID = fmt.Errorf("%w: random id must be non-empty and url safe", ErrInvalidInput)
)

// Generate builds a key from explicit inputs. It is a pure function.
//
// The extension is the text after the last '.' of fileName and is kept
// verbatim (case included). It is not a content-type signal. Extensions
// containing characters outside [A-Za-z0-9-_] are rejected so the key stays
// within [A-Za-z0-9-_./]. A name without '.' yields a key without extension,
// {id}_{name}.
func Generate(teamName, fileName string, now time.Time, randomID string) (string, error) {
	if strings.TrimSpace(teamName) == "" {
		return "", ErrBlankTeamName
	}
	if strings.TrimSpace(fileName) == "" {
		return "", ErrBlankFileName
	}
	if randomID == "" || Sanitize(randomID) != randomID {
		return "", errInvalidRandomID
	}

	base, ext := splitExt(fileName)
	if ext != "" && Sanitize(ext) != ext {
		return "", fmt.Errorf("%w %q", ErrUnsafeExtension, ext)
	}

	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteByte('/')
	b.WriteString(now.UTC().Format("2006-01-02"))
	b.WriteByte('/')
	b.WriteString(Sanitize(teamName))
	b.WriteByte('/')
	b.WriteString(randomID)
	b.WriteByte('_')
	b.WriteString(Sanitize(base))
	if ext != "" {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String(), nil
}

// Sanitize replaces every character outside [A-Za-z0-9-_] with '_'.
// Multi-byte runes become a single '_'.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Extension returns the verbatim extension of fileName, or "" if none.
func Extension(fileName string) string {
	_, ext := splitExt(fileName)
	return ext
}

func splitExt(fileName string) (base, ext string) {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 {
		return fileName, ""
	}
	return fileName[:idx], fileName[idx+1:]
}

func isSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_'
}

// Generator produces keys using a clock and a random id source.
type Generator struct {
	Now   func() time.Time
	NewID func() string
}

// NewGenerator returns a Generator backed by the wall clock and UUIDv4 ids.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now, NewID: uuid.NewString}
}

// Next derives a fresh key for the given team and file.
func (g *Generator) Next(teamName, fileName string) (string, time.Time, error) {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	newID := uuid.NewString
	if g != nil && g.NewID != nil {
		newID = g.NewID
	}
	issuedAt := now()
	key, err := Generate(teamName, fileName, issuedAt, newID())
	return key, issuedAt, err
}
