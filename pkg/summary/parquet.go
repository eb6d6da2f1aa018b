package summary

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/athena-summary/pkg/athenaquery"
)

// FacilityCount is the Parquet row layout of a summary result.
type FacilityCount struct {
	State                   *string `parquet:"state,optional"`
	AccreditedFacilityCount *int64  `parquet:"accredited_facility_count,optional"`
}

// EncodeParquet writes the result rows as a single Parquet file.
// Columns other than state and the count are not exported.
func (d Document) EncodeParquet() ([]byte, error) {
	records := make([]FacilityCount, 0, len(d.Results))
	for _, row := range d.Results {
		var rec FacilityCount
		if v, ok := row.Get("state"); ok {
			if s, isStr := v.(string); isStr {
				rec.State = &s
			}
		}
		if v, ok := row.Get(athenaquery.CountColumn); ok {
			if n, isInt := v.(int64); isInt {
				rec.AccreditedFacilityCount = &n
			}
		}
		records = append(records, rec)
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[FacilityCount](&buf)
	if _, err := w.Write(records); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
