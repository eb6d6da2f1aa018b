package athenaquery

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// fakeAPI scripts Athena responses. States are returned one per poll and
// the last state repeats once the script runs out.
type fakeAPI struct {
	executionID string
	startErr    error
	starts      []*athena.StartQueryExecutionInput

	states  []types.QueryExecutionState
	reasons map[int]string
	pollErr error
	polls   int

	pages        []*athena.GetQueryResultsOutput
	resultsErr   error
	resultInputs []*athena.GetQueryResultsInput
}

func (f *fakeAPI) StartQueryExecution(_ context.Context, params *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.starts = append(f.starts, params)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String(f.executionID)}, nil
}

func (f *fakeAPI) GetQueryExecution(_ context.Context, _ *athena.GetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	idx := f.polls - 1
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	status := &types.QueryExecutionStatus{State: f.states[idx]}
	if reason, ok := f.reasons[f.polls]; ok {
		status.StateChangeReason = aws.String(reason)
	}
	return &athena.GetQueryExecutionOutput{
		QueryExecution: &types.QueryExecution{Status: status},
	}, nil
}

func (f *fakeAPI) GetQueryResults(_ context.Context, params *athena.GetQueryResultsInput, _ ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error) {
	f.resultInputs = append(f.resultInputs, params)
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	idx := len(f.resultInputs) - 1
	if idx >= len(f.pages) {
		return &athena.GetQueryResultsOutput{ResultSet: &types.ResultSet{}}, nil
	}
	return f.pages[idx], nil
}

// fakeClock advances only when the runner sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestRunner(api API, opts Options) (*Runner, *fakeClock) {
	clock := &fakeClock{now: time.Now()}
	r := NewRunner(api, opts)
	r.now = clock.Now
	r.sleep = clock.Sleep
	return r, clock
}

func page(token string, rows ...[]*string) *athena.GetQueryResultsOutput {
	rs := &types.ResultSet{}
	for _, cells := range rows {
		row := types.Row{}
		for _, c := range cells {
			row.Data = append(row.Data, types.Datum{VarCharValue: c})
		}
		rs.Rows = append(rs.Rows, row)
	}
	out := &athena.GetQueryResultsOutput{ResultSet: rs}
	if token != "" {
		out.NextToken = aws.String(token)
	}
	return out
}

func cells(vals ...string) []*string {
	out := make([]*string, len(vals))
	for i, v := range vals {
		out[i] = aws.String(v)
	}
	return out
}
