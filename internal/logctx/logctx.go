// Package logctx carries a zerolog logger through context.Context.
//
// The Lambda handler attaches a logger enriched with the invocation's
// request id, and every layer below retrieves it with FromContext:
//
//	ctx = logctx.WithInvocation(ctx)
//	ctx = logctx.WithStr(ctx, "key", key)
//	log := logctx.FromContext(ctx)
//	log.Info().Msg("processing object")
package logctx

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
type loggerKey struct{}

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once
)

func initDefaultLogger() {
	defaultLoggerOnce.Do(func() {
		defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	})
}

// DefaultLogger returns the logger used when the context carries none.
// It writes JSON to stderr, which Lambda forwards to CloudWatch.
func DefaultLogger() zerolog.Logger {
	initDefaultLogger()
	return defaultLogger
}

// SetDefaultLogger overrides the default logger. Call it during
// initialization only; it is not safe concurrently with FromContext.
func SetDefaultLogger(l zerolog.Logger) {
	initDefaultLogger()
	defaultLogger = l
}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context, falling back to
// DefaultLogger. It never returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a new context with a logger that has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context with a logger that has the int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}

// RequestID returns the Lambda request id carried by ctx, or a random
// UUID when running outside Lambda.
func RequestID(ctx context.Context) string {
	if ctx != nil {
		if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
			return lc.AwsRequestID
		}
	}
	return uuid.NewString()
}

// WithInvocation tags the context logger with request_id and, when a
// deadline is set, the invocation budget.
func WithInvocation(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := FromContext(ctx).With().Str("request_id", RequestID(ctx))
	if deadline, ok := ctx.Deadline(); ok {
		fields = fields.Dur("budget_ms", time.Until(deadline))
	}
	return WithLogger(ctx, fields.Logger())
}
