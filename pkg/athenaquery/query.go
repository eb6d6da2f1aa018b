// Package athenaquery submits the accredited facility query to Athena,
// waits for it to finish and reads back its result set.
package athenaquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/eunmann/athena-summary/internal/logctx"
)

// CountColumn is coerced to an integer when results are read.
const CountColumn = "accredited_facility_count"

// API is the subset of the Athena client used by Runner.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Options configures a Runner.
type Options struct {
	// Database is the query execution context database.
	Database string
	// OutputLocation is the S3 URI Athena stages its result files in.
	OutputLocation string
	// PollInterval is the sleep between status checks (default: 3s).
	PollInterval time.Duration
	// MaxWait bounds the total time spent waiting (default: 150s).
	MaxWait time.Duration
	// MinRemaining is the invocation budget below which waiting gives up (default: 10s).
	MinRemaining time.Duration
}

// Defaults for Options.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxWait      = 150 * time.Second
	DefaultMinRemaining = 10 * time.Second
)

// ErrEmptyExecutionID is returned when Athena accepts a query without an id.
var ErrEmptyExecutionID = errors.New("athena returned an empty query execution id")

// Runner drives a single query through submit, wait and fetch.
// Every call blocks; a Runner holds no per-query state.
type Runner struct {
	api  API
	opts Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner backed by api.
func NewRunner(api API, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.MinRemaining <= 0 {
		opts.MinRemaining = DefaultMinRemaining
	}
	return &Runner{
		api:   api,
		opts:  opts,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// NewRunnerFromConfig creates a Runner with a fresh Athena client.
func NewRunnerFromConfig(cfg aws.Config, opts Options) *Runner {
	return NewRunner(athena.NewFromConfig(cfg), opts)
}

// BuildQuery renders the accredited facility aggregation for table.
// table must already be validated as an identifier.
func BuildQuery(table string) string {
	return fmt.Sprintf(`SELECT
  location.state AS state,
  COUNT(DISTINCT facility_id) AS %s
FROM %s
WHERE cardinality(accreditations) > 0
GROUP BY location.state
ORDER BY state;`, CountColumn, table)
}

// Submit starts query and returns its execution id.
func (r *Runner) Submit(ctx context.Context, query string) (string, error) {
	out, err := r.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(r.opts.Database),
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(r.opts.OutputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("start query execution: %w", err)
	}

	id := aws.ToString(out.QueryExecutionId)
	if id == "" {
		return "", ErrEmptyExecutionID
	}

	log := logctx.FromContext(ctx)
	log.Info().
		Str("query_execution_id", id).
		Str("database", r.opts.Database).
		Msg("athena query submitted")
	return id, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
