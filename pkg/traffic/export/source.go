package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"ucraft/trafficlogger/pkg/traffic"
	"ucraft/trafficlogger/pkg/traffic/sink"
)

// Formats supported by New.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Exporter writes dumps in one output format.
type Exporter interface {
	Format() string
	Export(ctx context.Context, dumps []traffic.Dump, w io.Writer) error
	ExportStream(ctx context.Context, dumps <-chan traffic.Dump, w io.Writer) error
}

// New returns the exporter for format. pretty only affects JSON.
func New(format string, pretty bool) (Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (valid: json, csv)", format)
	}
}

// Source yields stored payloads one at a time.
type Source interface {
	Each(ctx context.Context, fn func(payload []byte) error) error
}

// Decode parses a stored payload. Numbers are kept as json.Number so status
// and duration round-trip exactly.
func Decode(payload []byte) (traffic.Dump, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var dump traffic.Dump
	if err := dec.Decode(&dump); err != nil {
		return nil, err
	}
	if dump == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return dump, nil
}

// Stream decodes every payload of src onto the returned channel. The error
// channel receives at most one error and is closed with the dump channel.
func Stream(ctx context.Context, src Source) (<-chan traffic.Dump, <-chan error) {
	dumps := make(chan traffic.Dump)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(dumps)

		err := src.Each(ctx, func(payload []byte) error {
			dump, err := Decode(payload)
			if err != nil {
				return err
			}
			select {
			case dumps <- dump:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errc <- err
		}
	}()

	return dumps, errc
}

// Run streams src through exp into w.
func Run(ctx context.Context, exp Exporter, src Source, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dumps, errc := Stream(ctx, src)
	if err := exp.ExportStream(ctx, dumps, w); err != nil {
		return err
	}
	return <-errc
}

// FileSource reads dumps written by a file sink, ordered by record id.
type FileSource struct {
	Sink *sink.FileSink
}

// Each implements Source.
func (s FileSource) Each(ctx context.Context, fn func([]byte) error) error {
	ids, err := s.Sink.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := s.Sink.Read(id)
		if err != nil {
			return err
		}
		if err := fn(payload); err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
	}
	return nil
}

// SQLiteSource reads rows of a sqlite sink created at or after Since and,
// when Until is set, before Until. Rows come oldest first, in pages of
// PageSize.
type SQLiteSource struct {
	Sink     *sink.SQLiteSink
	Since    time.Time
	Until    time.Time
	PageSize int
}

// Each implements Source.
func (s SQLiteSource) Each(ctx context.Context, fn func([]byte) error) error {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	at, afterID := s.Since, ""
	for {
		page, err := s.Sink.ListAfter(ctx, at, afterID, pageSize)
		if err != nil {
			return err
		}

		for _, rec := range page {
			if !s.Until.IsZero() && !rec.CreatedAt.Before(s.Until) {
				return nil
			}
			if err := fn(rec.Payload); err != nil {
				return fmt.Errorf("record %s: %w", rec.ID, err)
			}
			at, afterID = rec.CreatedAt, rec.ID
		}

		if len(page) < pageSize {
			return nil
		}
	}
}

// Counter is implemented by sources that can report how many payloads Each
// will yield. Zero means unknown.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Count implements Counter.
func (s FileSource) Count(ctx context.Context) (int64, error) {
	ids, err := s.Sink.List()
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Count implements Counter. The total is unknown when the range is bounded.
func (s SQLiteSource) Count(ctx context.Context) (int64, error) {
	if !s.Since.IsZero() || !s.Until.IsZero() {
		return 0, nil
	}
	return s.Sink.Count(ctx)
}

// Observe wraps src so onPayload runs after every payload fn accepts.
func Observe(src Source, onPayload func()) Source {
	return observedSource{src: src, onPayload: onPayload}
}

type observedSource struct {
	src       Source
	onPayload func()
}

func (s observedSource) Each(ctx context.Context, fn func([]byte) error) error {
	return s.src.Each(ctx, func(payload []byte) error {
		if err := fn(payload); err != nil {
			return err
		}
		s.onPayload()
		return nil
	})
}
