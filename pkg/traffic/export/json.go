package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"ucraft/trafficlogger/pkg/traffic"
)

// JSONExporter exports dumps as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Format implements Exporter.
func (e *JSONExporter) Format() string { return FormatJSON }

// Export writes dumps to w as a JSON array. An empty slice produces "[]".
func (e *JSONExporter) Export(ctx context.Context, dumps []traffic.Dump, w io.Writer) error {
	ch := make(chan traffic.Dump, len(dumps))
	for _, d := range dumps {
		ch <- d
	}
	close(ch)
	return e.ExportStream(ctx, ch, w)
}

// ExportStream writes dumps from a channel as a JSON array, one element at a
// time, until the channel is closed.
func (e *JSONExporter) ExportStream(ctx context.Context, dumps <-chan traffic.Dump, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return traffic.NewExportError(FormatJSON, 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return traffic.NewExportError(FormatJSON, count, ctx.Err())

		case dump, ok := <-dumps:
			if !ok {
				closing := "]"
				if e.Pretty && count > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing); err != nil {
					return traffic.NewExportError(FormatJSON, count, err)
				}
				return nil
			}

			sep := ""
			if count > 0 {
				sep = ","
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return traffic.NewExportError(FormatJSON, count, err)
			}

			data, err := e.encode(dump)
			if err != nil {
				return traffic.NewExportError(FormatJSON, count, err)
			}
			if _, err := w.Write(data); err != nil {
				return traffic.NewExportError(FormatJSON, count, err)
			}
			count++
		}
	}
}

// encode serializes one dump without HTML escaping, the same way sinks
// persist it.
func (e *JSONExporter) encode(dump traffic.Dump) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if e.Pretty {
		enc.SetIndent("  ", "  ")
	}
	if err := enc.Encode(dump); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
