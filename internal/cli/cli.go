// Package cli implements the command-line interface for athena-summary.
//
// The same binary serves as the Lambda function; the CLI exists to run the
// handler locally against real AWS resources and to inspect the query.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spf13/cobra"

	"github.com/eunmann/athena-summary/internal/app"
	"github.com/eunmann/athena-summary/internal/logctx"
	"github.com/eunmann/athena-summary/pkg/athenaquery"
	"github.com/eunmann/athena-summary/pkg/config"
	"github.com/eunmann/athena-summary/pkg/logging"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if args == nil {
		args = []string{}
	}
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "athena-summary",
		Short:         "Summarize accredited facilities with Athena when new objects land in S3",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errors.New("usage: athena-summary <command> [options]\ncommands: invoke, query")
		},
	}
	root.AddCommand(newInvokeCmd(), newQueryCmd())
	return root
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Print the SQL submitted for each JSON object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), athenaquery.BuildQuery(cfg.Table))
			return err
		},
	}
}

func newInvokeCmd() *cobra.Command {
	var (
		bucket  string
		key     string
		timeout time.Duration
		jsonLog bool
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run the handler locally for one S3 object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeout <= 0 {
				return errors.New("--timeout must be positive")
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.Init(cfg.Debug, !jsonLog || cfg.HumanLogs)

			// The timeout stands in for the Lambda function timeout.
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx = logctx.WithLogger(ctx, logging.WithStage("local"))

			h, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}

			resp, err := h.Handle(ctx, singleRecordEvent(bucket, key))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "source bucket name")
	cmd.Flags().StringVar(&key, "key", "", "source object key")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "invocation budget, like the Lambda timeout")
	cmd.Flags().BoolVar(&jsonLog, "json-logs", false, "emit JSON logs instead of console output")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// singleRecordEvent builds the notification S3 would send for bucket/key.
func singleRecordEvent(bucket, key string) events.S3Event {
	var rec events.S3EventRecord
	rec.EventSource = "aws:s3"
	rec.EventName = "ObjectCreated:Put"
	rec.EventTime = time.Now().UTC()
	rec.S3.Bucket.Name = bucket
	rec.S3.Object.Key = key
	return events.S3Event{Records: []events.S3EventRecord{rec}}
}
