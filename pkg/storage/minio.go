package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioPresignAPI interface {
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
}

// MinioOptions configures a MinIO presigner.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// PublicBaseURL overrides the read URL host, e.g. behind a CDN.
	PublicBaseURL string
}

// MinioPresigner issues presigned PUT URLs against a MinIO deployment.
type MinioPresigner struct {
	api      minioPresignAPI
	bucket   string
	readBase string
	now      func() time.Time
}

// NewMinioPresigner connects to the configured MinIO endpoint.
func NewMinioPresigner(opts MinioOptions) (*MinioPresigner, error) {
	if opts.Bucket == "" || opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, newObjectError("init", opts.Bucket, "", err)
	}

	readBase := strings.TrimRight(opts.PublicBaseURL, "/")
	if readBase == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		readBase = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}
	return newMinioPresigner(client, opts.Bucket, readBase), nil
}

func newMinioPresigner(api minioPresignAPI, bucket, readBase string) *MinioPresigner {
	return &MinioPresigner{api: api, bucket: bucket, readBase: readBase, now: time.Now}
}

// PresignPut signs the content type and x-amz-meta-* headers into the URL.
func (p *MinioPresigner) PresignPut(ctx context.Context, req PutRequest) (PresignedPut, error) {
	ttl := req.ttl()
	headers := http.Header{}
	if req.ContentType != "" {
		headers.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Metadata {
		headers.Set("X-Amz-Meta-"+k, v)
	}

	u, err := p.api.PresignHeader(ctx, http.MethodPut, p.bucket, req.Key, ttl, url.Values{}, headers)
	if err != nil {
		return PresignedPut{}, newObjectError("presign", p.bucket, req.Key, err)
	}

	return PresignedPut{
		URL:       u.String(),
		Headers:   flattenHeaders(headers),
		ExpiresAt: p.now().Add(ttl),
	}, nil
}

// PublicURL returns the path-style read URL for key.
func (p *MinioPresigner) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", p.readBase, p.bucket, key)
}
