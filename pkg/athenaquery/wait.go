package athenaquery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"

	"github.com/eunmann/athena-summary/internal/logctx"
)

// AwaitTerminal polls the execution until it reaches a terminal state.
//
// SUCCEEDED, FAILED and CANCELLED are returned as reported. StateTimedOut is
// returned when the remaining invocation budget (the ctx deadline) drops
// below MinRemaining, or when MaxWait has elapsed since the first poll.
// Timing out does not cancel the remote execution.
func (r *Runner) AwaitTerminal(ctx context.Context, executionID string) (State, error) {
	log := logctx.FromContext(ctx)
	start := r.now()
	deadline, hasDeadline := ctx.Deadline()

	for polls := 1; ; polls++ {
		out, err := r.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return "", fmt.Errorf("get query execution %s: %w", executionID, err)
		}

		var state State
		var reason string
		if out.QueryExecution != nil && out.QueryExecution.Status != nil {
			state = State(out.QueryExecution.Status.State)
			reason = aws.ToString(out.QueryExecution.Status.StateChangeReason)
		}

		ev := log.Info().Str("state", state.String()).Int("poll", polls)
		if reason != "" {
			ev = ev.Str("reason", reason)
		}
		ev.Msg("athena query status")

		if state == StateSucceeded || state == StateFailed || state == StateCancelled {
			return state, nil
		}

		now := r.now()
		if hasDeadline {
			if remaining := deadline.Sub(now); remaining < r.opts.MinRemaining {
				log.Warn().
					Dur("remaining", remaining).
					Msg("invocation budget nearly exhausted, giving up on query")
				return StateTimedOut, nil
			}
		}
		if elapsed := now.Sub(start); elapsed > r.opts.MaxWait {
			log.Warn().
				Dur("elapsed", elapsed).
				Dur("max_wait", r.opts.MaxWait).
				Msg("max wait exceeded, giving up on query")
			return StateTimedOut, nil
		}

		if err := r.sleep(ctx, r.opts.PollInterval); err != nil {
			return "", fmt.Errorf("wait for query %s: %w", executionID, err)
		}
	}
}
