// Package summary builds and encodes the accredited facility summary
// written back to S3 for every processed source object.
package summary

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/eunmann/athena-summary/pkg/athenaquery"
)

// Content types of the encoded artifacts.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeParquet = "application/vnd.apache.parquet"
)

const keyStem = "accredited_facilities_"

// Document is the JSON summary for one source object.
type Document struct {
	SourceFile       string            `json:"source_file"`
	QueryExecutionID string            `json:"athena_query_execution_id"`
	Results          []athenaquery.Row `json:"results"`
}

// New builds a Document. A nil result set encodes as an empty array.
func New(sourceFile, executionID string, rows []athenaquery.Row) Document {
	if rows == nil {
		rows = []athenaquery.Row{}
	}
	return Document{
		SourceFile:       sourceFile,
		QueryExecutionID: executionID,
		Results:          rows,
	}
}

// EncodeJSON returns the compact JSON body.
func (d Document) EncodeJSON() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return b, nil
}

// ObjectKey returns {prefix}accredited_facilities_{unix seconds}{ext}.
// Two summaries written within the same second share a key.
func ObjectKey(prefix string, t time.Time, ext string) string {
	return prefix + keyStem + strconv.FormatInt(t.Unix(), 10) + ext
}
