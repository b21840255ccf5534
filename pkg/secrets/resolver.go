// Package secrets resolves credentials stored in AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrSecretEmpty    = errors.New("secret value is empty")
	ErrAccessDenied   = errors.New("access denied to secret")
)

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver reads secret values. Never log what it returns.
type Resolver struct {
	api ManagerAPI
}

// NewResolver builds a resolver from the default AWS credential chain.
func NewResolver(ctx context.Context, region string) (*Resolver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewResolverWithAPI(secretsmanager.NewFromConfig(cfg)), nil
}

// NewResolverWithAPI wraps an existing client.
func NewResolverWithAPI(api ManagerAPI) *Resolver {
	return &Resolver{api: api}
}

// Resolve returns the secret value for secretID. When the value is a JSON
// object, field selects the entry to return; a plain string is returned as is.
func (r *Resolver) Resolve(ctx context.Context, secretID, field string) (string, error) {
	if secretID == "" {
		return "", fmt.Errorf("secret id cannot be empty")
	}

	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ResourceNotFoundException":
				return "", ErrSecretNotFound
			case "AccessDeniedException":
				return "", ErrAccessDenied
			}
			return "", fmt.Errorf("get secret: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return "", fmt.Errorf("get secret: %w", err)
	}

	var value string
	switch {
	case out.SecretString != nil:
		value = *out.SecretString
	case out.SecretBinary != nil:
		value = string(out.SecretBinary)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrSecretEmpty
	}

	if field == "" || !strings.HasPrefix(value, "{") {
		return value, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", fmt.Errorf("decode secret json: %w", err)
	}
	v, ok := fields[field]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: field %q", ErrSecretEmpty, field)
	}
	return v, nil
}
