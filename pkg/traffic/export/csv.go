package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"ucraft/trafficlogger/pkg/traffic"
)

// CSVExporter exports dumps as CSV, one row per dump.
type CSVExporter struct {
	// IncludeHeader includes a header row with the dump keys.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Columns returns the CSV columns in order: every request key, user_id, then
// every response key.
func Columns() []string {
	cols := make([]string, 0, len(traffic.RequestKeys)+len(traffic.ResponseKeys)+1)
	cols = append(cols, traffic.KeyUUID, traffic.KeyUserID)
	for _, key := range traffic.RequestKeys {
		if key != traffic.KeyUUID {
			cols = append(cols, key)
		}
	}
	return append(cols, traffic.ResponseKeys...)
}

// Format implements Exporter.
func (e *CSVExporter) Format() string { return FormatCSV }

// Export writes dumps to w in CSV format. JSON-encoded string fields are
// written verbatim.
func (e *CSVExporter) Export(ctx context.Context, dumps []traffic.Dump, w io.Writer) error {
	ch := make(chan traffic.Dump, len(dumps))
	for _, d := range dumps {
		ch <- d
	}
	close(ch)
	return e.ExportStream(ctx, ch, w)
}

// ExportStream writes dumps from a channel in CSV format until the channel
// is closed. The writer is flushed every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, dumps <-chan traffic.Dump, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	cols := Columns()
	if e.IncludeHeader {
		if err := writer.Write(cols); err != nil {
			return traffic.NewExportError(FormatCSV, 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return traffic.NewExportError(FormatCSV, count, ctx.Err())

		case dump, ok := <-dumps:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return traffic.NewExportError(FormatCSV, count, err)
				}
				return nil
			}

			if err := writer.Write(row(cols, dump)); err != nil {
				return traffic.NewExportError(FormatCSV, count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return traffic.NewExportError(FormatCSV, count, err)
				}
			}
		}
	}
}

func row(cols []string, dump traffic.Dump) []string {
	out := make([]string, len(cols))
	for i, key := range cols {
		out[i] = cell(dump[key])
	}
	return out
}

// cell renders one dump value. Absent keys and JSON null are empty.
func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}
