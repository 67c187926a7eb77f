// Package export reads stored traffic dumps back and writes them as JSON or
// CSV.
//
// # Sources
//
// FileSource walks the dumps of a file sink; SQLiteSource pages through a
// sqlite sink. Both yield raw payloads which Stream decodes into dumps.
//
// # Formats
//
//   - JSON: an array of dumps, optionally pretty-printed. Keys and values are
//     exactly what the sink stored.
//   - CSV: one row per dump with the columns returned by Columns. Fields that
//     hold JSON-encoded strings (query, req_headers, ...) are written verbatim.
//
// # Usage
//
//	fileSink, _ := sink.NewOSFileSink(root, "http-traffic")
//	exporter, _ := export.New(export.FormatCSV, false)
//	err := export.Run(ctx, exporter, export.FileSource{Sink: fileSink}, os.Stdout)
//
// Exporters return a *traffic.ExportError carrying the number of dumps
// written before the failure.
package export
