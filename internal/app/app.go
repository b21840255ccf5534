// Package app assembles the service from configuration. Both the HTTP server
// and the Lambda entry point build their router here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/txnt-submissions-api/api/swagger"
	"github.com/noah-isme/txnt-submissions-api/internal/handler"
	"github.com/noah-isme/txnt-submissions-api/internal/mail"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
	"github.com/noah-isme/txnt-submissions-api/internal/repository"
	"github.com/noah-isme/txnt-submissions-api/internal/service"
	"github.com/noah-isme/txnt-submissions-api/internal/storagekey"
	"github.com/noah-isme/txnt-submissions-api/pkg/cache"
	"github.com/noah-isme/txnt-submissions-api/pkg/config"
	"github.com/noah-isme/txnt-submissions-api/pkg/export"
	"github.com/noah-isme/txnt-submissions-api/pkg/jobs"
	"github.com/noah-isme/txnt-submissions-api/pkg/secrets"
	"github.com/noah-isme/txnt-submissions-api/pkg/storage"
)

// apiKeySecretField is read when the Resend key secret is a JSON document.
const apiKeySecretField = "RESEND_API_KEY"

type presigner interface {
	PresignPut(ctx context.Context, req storage.PutRequest) (storage.PresignedPut, error)
	PublicURL(key string) string
}

type emailSender interface {
	Send(ctx context.Context, msg models.EmailMessage) (models.SendResult, error)
}

// Options tune the assembly for the runtime hosting it.
type Options struct {
	// Background allows goroutines that outlive a request, such as the
	// confirmation queue. Lambda freezes between invocations so it leaves this off.
	Background bool

	// Sender and Presigner replace the configured providers when set.
	Sender    emailSender
	Presigner presigner
}

// App is a fully wired service.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Router  *gin.Engine
	Metrics *service.MetricsService

	queue   *service.QueuedConfirmations
	redis   *redis.Client
	started bool
}

// New validates cfg and builds every collaborator.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Metrics: service.NewMetricsService()}

	sender := opts.Sender
	if sender == nil {
		apiKey, err := resolveAPIKey(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sender = mail.NewResendSender(apiKey)
	}

	var local *storage.LocalPresigner
	objects := opts.Presigner
	if objects == nil {
		built, lp, err := buildPresigner(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		objects, local = built, lp
	}

	validate := service.NewValidator()
	renderer := mail.NewRenderer()
	checks := map[string]handler.ReadinessCheck{}

	uploads := service.NewUploadService(objects, storagekey.NewGenerator(), validate, a.Metrics, logger.Named("uploads"), service.UploadServiceConfig{
		MaxUploadSize: cfg.Limits.MaxUploadSize,
		URLTTL:        cfg.Storage.UploadURLTTL,
	})

	var notifyOpts []service.NotificationOption
	if cfg.Idempotency.Enabled {
		store, check := a.buildIdempotencyStore(ctx, cfg.Redis)
		notifyOpts = append(notifyOpts, service.WithIdempotency(store))
		if check != nil {
			checks["redis"] = check
		}
	}
	if cfg.Mail.AttachReceipt {
		notifyOpts = append(notifyOpts, service.WithReceipts(export.NewReceiptRenderer()))
	}
	if cfg.Mail.AsyncConfirmations && opts.Background {
		a.queue = service.NewQueuedConfirmations(sender, a.Metrics, logger.Named("confirmations"), jobs.QueueConfig{
			Workers:    2,
			BufferSize: 64,
			MaxRetries: cfg.Mail.ConfirmationRetries,
			RetryDelay: 2 * time.Second,
		})
		notifyOpts = append(notifyOpts, service.WithConfirmations(a.queue))
	}

	notifier := service.NewNotificationService(sender, renderer, validate, a.Metrics, logger.Named("submissions"), service.NotificationServiceConfig{
		SourceEmail:       cfg.Mail.SourceEmail,
		CompetitionEmail:  cfg.Mail.CompetitionEmail,
		MaxAttachmentSize: cfg.Limits.MaxAttachmentSize,
		IdempotencyTTL:    cfg.Idempotency.TTL,
	}, notifyOpts...)

	forms := service.NewContactService(sender, renderer, validate, a.Metrics, logger.Named("forms"), service.ContactServiceConfig{
		SourceEmail:      cfg.Mail.SourceEmail,
		DestinationEmail: cfg.Mail.DestinationEmail,
	})

	routerCfg := handler.RouterConfig{
		Uploads:        handler.NewUploadHandler(uploads),
		Submissions:    handler.NewSubmissionHandler(notifier, cfg.Limits.MaxAttachmentSize),
		Forms:          handler.NewContactHandler(forms),
		Ops:            handler.NewMetricsHandler(a.Metrics, checks),
		Metrics:        a.Metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logger,
	}
	if local != nil {
		routerCfg.LocalUploads = handler.NewLocalUploadHandler(local, cfg.Limits.MaxUploadSize, logger.Named("local-uploads"))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Router = handler.NewRouter(routerCfg)

	logger.Info("service assembled",
		zap.String("env", cfg.Env),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("idempotency", cfg.Idempotency.Enabled),
		zap.Bool("async_confirmations", a.queue != nil),
		zap.Bool("receipts", cfg.Mail.AttachReceipt),
	)
	return a, nil
}

// Start launches background workers. It is a no-op without Options.Background.
// Cancelling ctx does not stop them; Shutdown drains and stops them.
func (a *App) Start(ctx context.Context) {
	if a.queue != nil && !a.started {
		a.queue.Start(ctx)
		a.started = true
	}
}

// Shutdown drains queued confirmations and closes connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.queue != nil && a.started {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain confirmations: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildIdempotencyStore prefers Redis and falls back to process memory,
// which only deduplicates requests reaching the same instance.
func (a *App) buildIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (service.IdempotencyStore, handler.ReadinessCheck) {
	client, err := cache.NewRedis(ctx, cfg)
	if err != nil {
		a.Logger.Warn("redis unavailable, idempotency limited to this instance", zap.String("addr", cache.Addr(cfg)), zap.Error(err))
		return repository.NewMemoryIdempotencyStore(), nil
	}
	a.redis = client
	check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return repository.NewIdempotencyRepository(client, a.Logger.Named("idempotency")), check
}

func resolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Mail.APIKey != "" {
		return cfg.Mail.APIKey, nil
	}
	resolver, err := secrets.NewResolver(ctx, cfg.Storage.Region)
	if err != nil {
		return "", err
	}
	key, err := resolver.Resolve(ctx, cfg.Mail.APIKeySecretID, apiKeySecretField)
	if err != nil {
		return "", fmt.Errorf("resolve email api key: %w", err)
	}
	return key, nil
}

func buildPresigner(ctx context.Context, cfg config.StorageConfig) (presigner, *storage.LocalPresigner, error) {
	switch cfg.Driver {
	case config.StorageMinio:
		p, err := storage.NewMinioPresigner(storage.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			UseSSL:        cfg.MinioUseSSL,
			Region:        cfg.Region,
			Bucket:        cfg.Bucket,
			PublicBaseURL: cfg.Endpoint,
		})
		return p, nil, err
	case config.StorageLocal:
		store, err := storage.NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		p := storage.NewLocalPresigner(store, cfg.LocalSigningSecret, cfg.PublicBaseURL)
		return p, p, nil
	default:
		p, err := storage.NewS3Presigner(ctx, storage.S3Options{
			Bucket:         cfg.Bucket,
			Region:         cfg.Region,
			Endpoint:       cfg.Endpoint,
			ForcePathStyle: cfg.ForcePathStyle,
		})
		return p, nil, err
	}
}
