package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StorageS3, cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Storage.UploadURLTTL)
	assert.Equal(t, int64(500*mib), cfg.Limits.MaxUploadSize)
	assert.Equal(t, int64(50*mib), cfg.Limits.MaxAttachmentSize)
	assert.Equal(t, int64(5*mib), cfg.Limits.LargeFileThreshold)
	assert.Equal(t, "neurotechscholars@gmail.com", cfg.Mail.CompetitionEmail)
	assert.Equal(t, cfg.Mail.CompetitionEmail, cfg.Mail.DestinationEmail)
	assert.True(t, cfg.Mail.AttachReceipt)
}

func TestFromViperOverrides(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"ALLOWED_ORIGINS":   "https://a.org, https://b.org ,",
		"DESTINATION_EMAIL": "contact@lhneurotech.org",
		"UPLOAD_URL_TTL":    "bogus",
		"MAX_UPLOAD_SIZE":   -1,
		"STORAGE_DRIVER":    "LOCAL",
		"PUBLIC_BASE_URL":   "http://localhost:9000/",
	}))

	assert.Equal(t, []string{"https://a.org", "https://b.org"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "contact@lhneurotech.org", cfg.Mail.DestinationEmail)
	assert.Equal(t, time.Hour, cfg.Storage.UploadURLTTL)
	assert.Equal(t, int64(500*mib), cfg.Limits.MaxUploadSize)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.PublicBaseURL)
}

func TestValidateReportsMissingValues(t *testing.T) {
	cfg := fromViper(newTestViper(nil))
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
	assert.Contains(t, err.Error(), "SOURCE_EMAIL")
	assert.Contains(t, err.Error(), "S3_BUCKET_NAME")
}

func TestValidateAcceptsSecretReference(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"RESEND_API_KEY_SECRET_ID": "prod/resend",
		"SOURCE_EMAIL":             "TxNT <noreply@lhneurotech.org>",
		"S3_BUCKET_NAME":           "txnt-submissions",
	}))
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"RESEND_API_KEY": "re_test",
		"SOURCE_EMAIL":   "noreply@lhneurotech.org",
		"STORAGE_DRIVER": "gcs",
	}))
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported STORAGE_DRIVER "gcs"`)
}
