// Package handler implements the S3-triggered Lambda entry point: for each
// new JSON object it runs the accredited facility query and writes a
// summary document back to S3.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/smithy-go"

	"github.com/eunmann/athena-summary/internal/logctx"
	"github.com/eunmann/athena-summary/pkg/athenaquery"
	"github.com/eunmann/athena-summary/pkg/config"
	"github.com/eunmann/athena-summary/pkg/s3store"
	"github.com/eunmann/athena-summary/pkg/summary"
)

// StatusOK is the only status a successful invocation returns.
const StatusOK = "OK"

// ErrMalformedRecord indicates a notification without a bucket or key.
var ErrMalformedRecord = errors.New("malformed S3 event record")

// Response is returned to the Lambda runtime after the whole batch.
type Response struct {
	Status string `json:"status"`
}

// QueryRunner runs a query through its lifecycle. Implemented by
// *athenaquery.Runner.
type QueryRunner interface {
	Submit(ctx context.Context, query string) (string, error)
	AwaitTerminal(ctx context.Context, executionID string) (athenaquery.State, error)
	FetchAll(ctx context.Context, executionID string) ([]athenaquery.Row, error)
}

// ObjectWriter stores output objects. Implemented by *s3store.Client.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Handler processes S3 notification batches. It is safe to reuse across
// invocations; it holds no per-invocation state.
type Handler struct {
	cfg     config.Config
	query   string
	queries QueryRunner
	store   ObjectWriter
	now     func() time.Time
}

// New creates a Handler. cfg must already be validated.
func New(cfg config.Config, queries QueryRunner, store ObjectWriter) *Handler {
	return &Handler{
		cfg:     cfg,
		query:   athenaquery.BuildQuery(cfg.Table),
		queries: queries,
		store:   store,
		now:     time.Now,
	}
}

// Handle processes every record in order. The first failure aborts the
// batch and is returned; later records are not looked at.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	ctx = logctx.WithInvocation(ctx)
	log := logctx.FromContext(ctx)
	log.Debug().Interface("event", event).Msg("received event")
	log.Info().Int("records_count", len(event.Records)).Msg("processing batch")

	for i, record := range event.Records {
		if err := h.handleRecord(logctx.WithInt(ctx, "record_index", i), i, record); err != nil {
			logFailure(ctx, err)
			return Response{}, err
		}
	}

	return Response{Status: StatusOK}, nil
}

func (h *Handler) handleRecord(ctx context.Context, index int, record events.S3EventRecord) error {
	bucket := record.S3.Bucket.Name
	key := record.S3.Object.Key
	if bucket == "" || key == "" {
		return fmt.Errorf("record %d (bucket %q, key %q): %w", index, bucket, key, ErrMalformedRecord)
	}

	ctx = logctx.WithStr(ctx, "bucket", bucket)
	ctx = logctx.WithStr(ctx, "key", key)
	log := logctx.FromContext(ctx)

	if !IsJSONKey(key) {
		log.Info().Msg("object is not JSON, skipping")
		return nil
	}

	source := s3store.FormatS3URI(bucket, key)
	if err := h.summarize(ctx, source); err != nil {
		return fmt.Errorf("summarize %s: %w", source, err)
	}
	return nil
}

// summarize runs the query for one source object and writes its summary.
func (h *Handler) summarize(ctx context.Context, source string) error {
	executionID, err := h.queries.Submit(ctx, h.query)
	if err != nil {
		return err
	}
	ctx = logctx.WithStr(ctx, "query_execution_id", executionID)
	log := logctx.FromContext(ctx)

	waitStart := h.now()
	state, err := h.queries.AwaitTerminal(ctx, executionID)
	if err != nil {
		return err
	}
	if state != athenaquery.StateSucceeded {
		return &athenaquery.QueryFailedError{ExecutionID: executionID, State: state}
	}
	log.Info().Dur("wait", h.now().Sub(waitStart)).Msg("athena query succeeded")

	rows, err := h.queries.FetchAll(ctx, executionID)
	if err != nil {
		return err
	}

	doc := summary.New(source, executionID, rows)
	ts := h.now()

	body, err := doc.EncodeJSON()
	if err != nil {
		return err
	}
	if err := h.write(ctx, summary.ObjectKey(h.cfg.ResultPrefix, ts, ".json"), body, summary.ContentTypeJSON); err != nil {
		return err
	}

	if h.cfg.ResultParquet {
		pq, err := doc.EncodeParquet()
		if err != nil {
			return err
		}
		if err := h.write(ctx, summary.ObjectKey(h.cfg.ResultPrefix, ts, ".parquet"), pq, summary.ContentTypeParquet); err != nil {
			return err
		}
	}

	log.Info().Int("rows_count", len(rows)).Msg("summary complete")
	return nil
}

func (h *Handler) write(ctx context.Context, key string, body []byte, contentType string) error {
	if err := h.store.WriteObject(ctx, h.cfg.ResultBucket, key, body, contentType); err != nil {
		return err
	}
	log := logctx.FromContext(ctx)
	log.Info().
		Str("output", s3store.FormatS3URI(h.cfg.ResultBucket, key)).
		Int("bytes", len(body)).
		Msg("wrote summary")
	return nil
}

// IsJSONKey reports whether key ends in .json, ignoring case.
func IsJSONKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".json")
}

func logFailure(ctx context.Context, err error) {
	log := logctx.FromContext(ctx)
	ev := log.Error().Err(err)
	var ae smithy.APIError
	if errors.As(err, &ae) {
		ev = ev.Str("error_code", ae.ErrorCode()).Str("error_fault", ae.ErrorFault().String())
	}
	var qf *athenaquery.QueryFailedError
	if errors.As(err, &qf) {
		ev = ev.Str("final_state", qf.State.String())
	}
	ev.Msg("invocation failed")
}
