// Package app wires configuration and AWS clients into a Handler.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/eunmann/athena-summary/internal/handler"
	"github.com/eunmann/athena-summary/pkg/athenaquery"
	"github.com/eunmann/athena-summary/pkg/config"
	"github.com/eunmann/athena-summary/pkg/s3store"
)

// New loads the default AWS configuration and builds a Handler.
func New(ctx context.Context, cfg config.Config) (*handler.Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewWithAWSConfig(cfg, awsCfg), nil
}

// NewWithAWSConfig builds a Handler from an explicit AWS configuration.
func NewWithAWSConfig(cfg config.Config, awsCfg aws.Config) *handler.Handler {
	runner := athenaquery.NewRunnerFromConfig(awsCfg, RunnerOptions(cfg))
	return handler.New(cfg, runner, s3store.NewClientWithConfig(awsCfg))
}

// RunnerOptions maps the stage configuration onto query runner options.
func RunnerOptions(cfg config.Config) athenaquery.Options {
	return athenaquery.Options{
		Database:       cfg.Database,
		OutputLocation: cfg.OutputLocation,
		PollInterval:   cfg.PollInterval,
		MaxWait:        cfg.MaxWait,
		MinRemaining:   athenaquery.DefaultMinRemaining,
	}
}
