package athenaquery

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// State is a query execution state as seen by this process.
type State string

// Engine states plus the locally synthesized StateTimedOut.
const (
	StateQueued    = State(types.QueryExecutionStateQueued)
	StateRunning   = State(types.QueryExecutionStateRunning)
	StateSucceeded = State(types.QueryExecutionStateSucceeded)
	StateFailed    = State(types.QueryExecutionStateFailed)
	StateCancelled = State(types.QueryExecutionStateCancelled)

	// StateTimedOut is never reported by Athena. It means the local wait
	// gave up while the remote execution may still be running.
	StateTimedOut State = "TIMED_OUT"
)

// Terminal reports whether the engine will make no further progress.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled, StateTimedOut:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

// ErrQueryNotSucceeded is matched by every QueryFailedError.
var ErrQueryNotSucceeded = errors.New("athena query did not succeed")

// QueryFailedError reports a terminal state other than StateSucceeded.
type QueryFailedError struct {
	ExecutionID string
	State       State
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("athena query %s did not succeed. Final state: %s", e.ExecutionID, e.State)
}

// Is lets errors.Is match ErrQueryNotSucceeded.
func (e *QueryFailedError) Is(target error) bool {
	return target == ErrQueryNotSucceeded
}
