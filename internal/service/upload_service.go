package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/dto"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/internal/storagekey"
	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/storage"
)

type uploadPresigner interface {
	PresignPut(ctx context.Context, req storage.PutRequest) (storage.PresignedPut, error)
	PublicURL(key string) string
}

type grantMetrics interface {
	RecordGrant(outcome string)
}

// UploadServiceConfig bounds the grants the service will issue.
type UploadServiceConfig struct {
	MaxUploadSize int64
	URLTTL        time.Duration
}

// UploadService mints presigned write credentials. It never handles file bytes.
type UploadService struct {
	presigner uploadPresigner
	keys      *storagekey.Generator
	validator *validator.Validate
	metrics   grantMetrics
	logger    *zap.Logger
	cfg       UploadServiceConfig
}

// NewUploadService wires the upload grant issuer.
func NewUploadService(presigner uploadPresigner, keys *storagekey.Generator, validate *validator.Validate, metrics grantMetrics, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if keys == nil {
		keys = storagekey.NewGenerator()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = models.MaxUploadSizeBytes
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = models.UploadURLTTLSeconds * time.Second
	}
	return &UploadService{
		presigner: presigner,
		keys:      keys,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Issue validates the request and returns a grant scoped to a fresh key.
func (s *UploadService) Issue(ctx context.Context, req dto.PresignRequest) (*models.UploadGrant, error) {
	if err := validateStruct(s.validator, req); err != nil {
		s.record(OutcomeRejected)
		return nil, err
	}
	if req.FileSize > s.cfg.MaxUploadSize {
		s.record(OutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("File size exceeds maximum limit of %s", models.FormatLimit(s.cfg.MaxUploadSize)))
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = models.DefaultContentType
	}

	key, issuedAt, err := s.keys.Next(req.TeamName, req.FileName)
	if err != nil {
		s.record(OutcomeRejected)
		if appErr := keyInputError(req, err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive storage key")
	}

	put, err := s.presigner.PresignPut(ctx, storage.PutRequest{
		Key:         key,
		ContentType: contentType,
		Metadata:    objectMetadata(req, issuedAt),
		Expires:     s.cfg.URLTTL,
	})
	if err != nil {
		s.record(OutcomeFailure)
		s.logger.Error("presign upload failed", zap.String("key", key), zap.Error(err))
		return nil, appErrors.WithCause(appErrors.ErrUpstreamUnavailable, "Failed to generate upload URL", err)
	}

	s.record(OutcomeSuccess)
	s.logger.Info("upload grant issued",
		zap.String("key", key),
		zap.Int64("file_size", req.FileSize),
		zap.String("content_type", contentType),
	)

	return &models.UploadGrant{
		UploadURL:   put.URL,
		StorageKey:  key,
		DownloadURL: s.presigner.PublicURL(key),
		ExpiresIn:   int(s.cfg.URLTTL / time.Second),
		Headers:     put.Headers,
	}, nil
}

// keyInputError maps a key derivation failure to the request field at fault.
func keyInputError(req dto.PresignRequest, err error) error {
	switch {
	case errors.Is(err, storagekey.ErrBlankTeamName):
		return appErrors.WithFields(appErrors.ErrValidation, "Missing required fields: teamName", []string{"teamName"})
	case errors.Is(err, storagekey.ErrBlankFileName):
		return appErrors.WithFields(appErrors.ErrValidation, "Missing required fields: fileName", []string{"fileName"})
	case errors.Is(err, storagekey.ErrUnsafeExtension):
		return appErrors.WithFields(appErrors.ErrValidation,
			fmt.Sprintf("Unsupported file extension %q", storagekey.Extension(req.FileName)), []string{"fileName"})
	case errors.Is(err, storagekey.ErrInvalidInput):
		return appErrors.WithFields(appErrors.ErrValidation, "Invalid file name", []string{"fileName"})
	}
	return nil
}

func (s *UploadService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordGrant(outcome)
	}
}

// objectMetadata describes the object so it stays self-describing in storage.
// Header values must be ASCII, so non-ASCII names are RFC 2047 encoded.
func objectMetadata(req dto.PresignRequest, issuedAt time.Time) map[string]string {
	return map[string]string{
		storage.MetaTeamName:        storagekey.Sanitize(req.TeamName),
		storage.MetaOriginalName:    mime.QEncoding.Encode("utf-8", req.FileName),
		storage.MetaUploadTimestamp: issuedAt.UTC().Format(time.RFC3339),
	}
}
