// Command athena-summary runs as an S3-triggered Lambda function, or as a
// local CLI when started outside the Lambda runtime.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/eunmann/athena-summary/internal/app"
	"github.com/eunmann/athena-summary/internal/cli"
	"github.com/eunmann/athena-summary/pkg/config"
	"github.com/eunmann/athena-summary/pkg/logging"
)

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		startLambda()
		return
	}

	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// startLambda builds the handler once per cold start.
func startLambda() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.L().Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Debug, cfg.HumanLogs)

	h, err := app.New(context.Background(), cfg)
	if err != nil {
		logging.L().Fatal().Err(err).Msg("initialize handler")
	}

	log := logging.WithStage("init")
	log.Info().
		Str("database", cfg.Database).
		Str("table", cfg.Table).
		Str("output_location", cfg.OutputLocation).
		Str("result_bucket", cfg.ResultBucket).
		Str("result_prefix", cfg.ResultPrefix).
		Dur("max_wait", cfg.MaxWait).
		Dur("poll_interval", cfg.PollInterval).
		Bool("result_parquet", cfg.ResultParquet).
		Msg("cold start")

	lambda.Start(h.Handle)
}
