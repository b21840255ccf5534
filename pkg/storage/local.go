package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// LocalRoute is the path prefix under which local objects are served.
const LocalRoute = "/local-uploads"

const metadataSuffix = ".meta.json"

// LocalPresigner stands in for object storage during development. Upload
// URLs point back at this service and carry an HMAC token scoped to one key.
type LocalPresigner struct {
	store   *LocalStorage
	signer  *SignedURLSigner
	baseURL string
}

// NewLocalPresigner builds a presigner writing under store.
func NewLocalPresigner(store *LocalStorage, secret, baseURL string) *LocalPresigner {
	return &LocalPresigner{
		store:   store,
		signer:  NewSignedURLSigner(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PresignPut issues a token bound to the key, content type and metadata.
func (p *LocalPresigner) PresignPut(_ context.Context, req PutRequest) (PresignedPut, error) {
	token, expiresAt, err := p.signer.Generate(UploadClaims{
		Key:         req.Key,
		Method:      http.MethodPut,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}, req.ttl())
	if err != nil {
		return PresignedPut{}, newObjectError("presign", "local", req.Key, err)
	}

	headers := map[string]string{}
	if req.ContentType != "" {
		headers["Content-Type"] = req.ContentType
	}
	return PresignedPut{
		URL:       p.PublicURL(req.Key) + "?token=" + url.QueryEscape(token),
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

// PublicURL returns the read URL served by the local uploads handler.
func (p *LocalPresigner) PublicURL(key string) string {
	return p.baseURL + LocalRoute + "/" + key
}

// Accept verifies token against key and contentType, then stores body.
func (p *LocalPresigner) Accept(token, key, contentType string, body io.Reader, limit int64) (int64, error) {
	claims, err := p.signer.Parse(token)
	if err != nil {
		return 0, err
	}
	if claims.Method != http.MethodPut || claims.Key != key {
		return 0, fmt.Errorf("%w: scope mismatch", ErrInvalidToken)
	}
	if claims.ContentType != "" && !sameMediaType(claims.ContentType, contentType) {
		return 0, fmt.Errorf("%w: content type mismatch", ErrInvalidToken)
	}

	written, err := p.store.SaveStream(key, body, limit)
	if err != nil {
		return written, err
	}
	if len(claims.Metadata) == 0 {
		// An overwrite must not inherit the previous upload's metadata.
		return written, p.store.Delete(key + metadataSuffix)
	}
	raw, err := json.Marshal(claims.Metadata)
	if err != nil {
		_ = p.store.Delete(key)
		return written, fmt.Errorf("encode metadata: %w", err)
	}
	if err := p.store.Save(key+metadataSuffix, raw); err != nil {
		_ = p.store.Delete(key)
		return written, err
	}
	return written, nil
}

// Open returns the stored object for key.
func (p *LocalPresigner) Open(key string) (*os.File, error) {
	if strings.HasSuffix(key, metadataSuffix) {
		return nil, os.ErrNotExist
	}
	return p.store.Open(key)
}

// Metadata returns the metadata recorded alongside key, if any.
func (p *LocalPresigner) Metadata(key string) (map[string]string, error) {
	file, err := p.store.Open(key + metadataSuffix)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	var md map[string]string
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

func sameMediaType(a, b string) bool {
	trim := func(s string) string {
		if i := strings.IndexByte(s, ';'); i >= 0 {
			s = s[:i]
		}
		return strings.ToLower(strings.TrimSpace(s))
	}
	return trim(a) == trim(b)
}
