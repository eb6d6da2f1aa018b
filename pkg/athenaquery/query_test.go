package athenaquery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(&fakeAPI{}, Options{})
	if r.opts.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %s", r.opts.PollInterval)
	}
	if r.opts.MaxWait != DefaultMaxWait {
		t.Errorf("MaxWait = %s", r.opts.MaxWait)
	}
	if r.opts.MinRemaining != DefaultMinRemaining {
		t.Errorf("MinRemaining = %s", r.opts.MinRemaining)
	}
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery("facilities_raw")

	for _, want := range []string{
		"location.state AS state",
		"COUNT(DISTINCT facility_id) AS accredited_facility_count",
		"FROM facilities_raw",
		"WHERE cardinality(accreditations) > 0",
		"GROUP BY location.state",
		"ORDER BY state",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestSubmit(t *testing.T) {
	api := &fakeAPI{executionID: "qid-1"}
	r := NewRunner(api, Options{Database: "db", OutputLocation: "s3://stage/results/"})

	id, err := r.Submit(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "qid-1" {
		t.Errorf("id = %q, want qid-1", id)
	}

	if len(api.starts) != 1 {
		t.Fatalf("StartQueryExecution calls = %d, want 1", len(api.starts))
	}
	in := api.starts[0]
	if aws.ToString(in.QueryString) != "SELECT 1" {
		t.Errorf("QueryString = %q", aws.ToString(in.QueryString))
	}
	if aws.ToString(in.QueryExecutionContext.Database) != "db" {
		t.Errorf("Database = %q", aws.ToString(in.QueryExecutionContext.Database))
	}
	if aws.ToString(in.ResultConfiguration.OutputLocation) != "s3://stage/results/" {
		t.Errorf("OutputLocation = %q", aws.ToString(in.ResultConfiguration.OutputLocation))
	}
}

func TestSubmit_Errors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		boom := errors.New("throttled")
		r := NewRunner(&fakeAPI{startErr: boom}, Options{})
		if _, err := r.Submit(context.Background(), "q"); !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		r := NewRunner(&fakeAPI{}, Options{})
		if _, err := r.Submit(context.Background(), "q"); !errors.Is(err, ErrEmptyExecutionID) {
			t.Errorf("expected ErrEmptyExecutionID, got %v", err)
		}
	})
}

func TestState(t *testing.T) {
	terminal := []State{StateSucceeded, StateFailed, StateCancelled, StateTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateQueued, StateRunning, ""} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
	if StateSucceeded != "SUCCEEDED" || StateTimedOut != "TIMED_OUT" {
		t.Errorf("unexpected state names %s, %s", StateSucceeded, StateTimedOut)
	}
}

func TestQueryFailedError(t *testing.T) {
	err := error(&QueryFailedError{ExecutionID: "q1", State: StateCancelled})
	if !errors.Is(err, ErrQueryNotSucceeded) {
		t.Error("QueryFailedError should match ErrQueryNotSucceeded")
	}
	if !strings.Contains(err.Error(), "Final state: CANCELLED") {
		t.Errorf("unexpected message %q", err)
	}

	var qf *QueryFailedError
	if !errors.As(err, &qf) || qf.State != StateCancelled {
		t.Errorf("errors.As failed: %v", err)
	}
}
