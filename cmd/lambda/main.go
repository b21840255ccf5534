package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/app"
	"github.com/noah-isme/txnt-submissions-api/internal/lambdaproxy"
	"github.com/noah-isme/txnt-submissions-api/pkg/config"
	"github.com/noah-isme/txnt-submissions-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	// Built once per cold start and reused across invocations.
	application, err := app.New(context.Background(), cfg, logr, app.Options{})
	if err != nil {
		logr.Fatal("failed to build app", zap.Error(err))
	}

	lambda.Start(lambdaproxy.New(application.Router, logr.Named("lambda")).Handle)
}
