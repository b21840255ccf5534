package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures an S3 presigner.
type S3Options struct {
	Bucket         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

// S3Presigner issues presigned PUT URLs against an S3 compatible bucket.
type S3Presigner struct {
	api      s3PresignAPI
	bucket   string
	endpoint string
	now      func() time.Time
}

// NewS3Presigner loads the default AWS credential chain and builds a presigner.
func NewS3Presigner(ctx context.Context, opts S3Options) (*S3Presigner, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, newObjectError("init", opts.Bucket, "", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return newS3Presigner(s3.NewPresignClient(client), opts.Bucket, opts.Endpoint), nil
}

func newS3Presigner(api s3PresignAPI, bucket, endpoint string) *S3Presigner {
	return &S3Presigner{
		api:      api,
		bucket:   bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		now:      time.Now,
	}
}

// PresignPut signs a PUT for exactly req.Key with req.ContentType. Object
// metadata travels with the signature so the stored object describes itself.
func (p *S3Presigner) PresignPut(ctx context.Context, req PutRequest) (PresignedPut, error) {
	ttl := req.ttl()
	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(req.Key),
		ContentType: aws.String(req.ContentType),
		Metadata:    req.Metadata,
	}

	out, err := p.api.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return PresignedPut{}, newObjectError("presign", p.bucket, req.Key, err)
	}

	headers := flattenHeaders(out.SignedHeader)
	if _, ok := headers["Content-Type"]; !ok && req.ContentType != "" {
		headers["Content-Type"] = req.ContentType
	}

	return PresignedPut{
		URL:       out.URL,
		Headers:   headers,
		ExpiresAt: p.now().Add(ttl),
	}, nil
}

// PublicURL returns the virtual-hosted read URL for key, or the path-style
// URL under the custom endpoint when one is configured.
func (p *S3Presigner) PublicURL(key string) string {
	if p.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", p.bucket, key)
}
