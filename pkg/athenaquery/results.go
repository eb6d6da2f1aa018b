package athenaquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/eunmann/athena-summary/internal/logctx"
)

var (
	// ErrMissingHeader indicates the first result page had no header row.
	ErrMissingHeader = errors.New("result set has no header row")
	// ErrInvalidCount indicates a non-numeric accredited facility count.
	ErrInvalidCount = errors.New("invalid accredited facility count")
)

// CellError describes a cell that could not be coerced.
type CellError struct {
	Column string
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("column %s: value %q: %v", e.Column, e.Value, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// Row is one result row. Columns keep result set order, which is also the
// order they are encoded in. Values are string, int64 or nil.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	r := Row{}
	for i := 0; i < len(columns) && i < len(values); i++ {
		r.Set(columns[i], values[i])
	}
	return r
}

// Set assigns v to column, replacing an earlier value for the same name.
func (r *Row) Set(column string, v any) {
	for i, c := range r.columns {
		if c == column {
			r.values[i] = v
			return
		}
	}
	r.columns = append(r.columns, column)
	r.values = append(r.values, v)
}

// Get returns the value for column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("encode column %s: %w", c, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FetchAll reads every result page for executionID.
//
// The first row of the first page is the header and is not returned.
// Pages are read until Athena stops returning a NextToken; there is no page
// limit and no timeout beyond ctx.
func (r *Runner) FetchAll(ctx context.Context, executionID string) ([]Row, error) {
	log := logctx.FromContext(ctx)

	var (
		columns []string
		rows    []Row
		token   *string
		page    int
	)

	for {
		page++
		out, err := r.api.GetQueryResults(ctx, &athena.GetQueryResultsInput{
			QueryExecutionId: aws.String(executionID),
			NextToken:        token,
		})
		if err != nil {
			return nil, fmt.Errorf("get query results %s page %d: %w", executionID, page, err)
		}

		var data []types.Row
		if out.ResultSet != nil {
			data = out.ResultSet.Rows
		}

		if page == 1 {
			if len(data) == 0 {
				return nil, fmt.Errorf("query %s: %w", executionID, ErrMissingHeader)
			}
			columns = headerColumns(data[0])
			data = data[1:]
		}

		for _, d := range data {
			row, err := convertRow(columns, d)
			if err != nil {
				return nil, fmt.Errorf("query %s page %d: %w", executionID, page, err)
			}
			rows = append(rows, row)
		}

		log.Debug().
			Int("page", page).
			Int("rows_count", len(data)).
			Msg("read result page")

		if aws.ToString(out.NextToken) == "" {
			break
		}
		token = out.NextToken
	}

	return rows, nil
}

func headerColumns(header types.Row) []string {
	cols := make([]string, len(header.Data))
	for i, d := range header.Data {
		cols[i] = aws.ToString(d.VarCharValue)
	}
	return cols
}

// convertRow pairs columns with cell values, truncating to the shorter of
// the two, and coerces CountColumn.
func convertRow(columns []string, d types.Row) (Row, error) {
	values := make([]any, len(d.Data))
	for i, cell := range d.Data {
		if cell.VarCharValue != nil {
			values[i] = *cell.VarCharValue
		}
	}
	row := NewRow(columns, values)

	if v, ok := row.Get(CountColumn); ok {
		if s, isStr := v.(string); isStr {
			n, err := parseCount(s)
			if err != nil {
				return Row{}, err
			}
			row.Set(CountColumn, n)
		}
	}
	return row, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &CellError{Column: CountColumn, Value: s, Err: ErrInvalidCount}
	}
	return n, nil
}
