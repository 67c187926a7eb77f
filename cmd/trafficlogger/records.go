package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ucraft/trafficlogger/pkg/cli"
	"ucraft/trafficlogger/pkg/traffic/export"
	"ucraft/trafficlogger/pkg/traffic/sink"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Work with stored traffic records",
}

// exportOptions are the flags of records export.
type exportOptions struct {
	backend  string
	root     string
	dir      string
	dbPath   string
	format   string
	pretty   bool
	since    string
	until    string
	output   string
	progress bool
}

var exportFlags exportOptions

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored traffic records as JSON or CSV",
	Long: `Read the dumps written by the file or sqlite sink and write them as a JSON
array or as CSV with one row per exchange.

Examples:
  # All file-sink records as pretty JSON
  trafficlogger records export --root ./storage --dir http-traffic --pretty

  # SQLite records from the last day as CSV
  trafficlogger records export --backend sqlite --db data/traffic.db \
    --since 2024-05-01T00:00:00Z --format csv --output traffic.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := cli.SetupSignalHandler(cmd.Context())
		defer stop()
		return runExport(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), exportFlags)
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsExportCmd)

	f := recordsExportCmd.Flags()
	f.StringVar(&exportFlags.backend, "backend", "file", "sink to read (file, sqlite)")
	f.StringVar(&exportFlags.root, "root", "./storage", "file sink root directory")
	f.StringVar(&exportFlags.dir, "dir", "http-traffic", "file sink log directory, relative to --root")
	f.StringVar(&exportFlags.dbPath, "db", "data/traffic.db", "sqlite sink database path")
	f.StringVarP(&exportFlags.format, "format", "f", export.FormatJSON, "export format (json, csv)")
	f.BoolVar(&exportFlags.pretty, "pretty", false, "indent JSON output")
	f.StringVar(&exportFlags.since, "since", "", "only records created at or after this RFC 3339 time (sqlite)")
	f.StringVar(&exportFlags.until, "until", "", "only records created before this RFC 3339 time (sqlite)")
	f.StringVarP(&exportFlags.output, "output", "o", "", "output file (stdout when empty)")
	f.BoolVar(&exportFlags.progress, "progress", false, "show a progress bar on stderr")
}

func runExport(ctx context.Context, stdout, stderr io.Writer, opts exportOptions) (err error) {
	exp, err := export.New(opts.format, opts.pretty)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	src, closeSrc, err := openExportSource(opts)
	if err != nil {
		return err
	}
	defer closeSrc()

	w := stdout
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = file
	}

	if opts.progress {
		var total int64
		if counter, ok := src.(export.Counter); ok {
			total, err = counter.Count(ctx)
			if err != nil {
				return fmt.Errorf("failed to count records: %w", err)
			}
		}
		progress := cli.NewProgressReporter(stderr, "records")
		progress.Start(total)
		defer progress.Finish()
		src = export.Observe(src, progress.Increment)
	}

	return export.Run(ctx, exp, src, w)
}

func openExportSource(opts exportOptions) (export.Source, func(), error) {
	switch opts.backend {
	case "file":
		fileSink, err := sink.NewOSFileSink(opts.root, opts.dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file sink: %w", err)
		}
		return export.FileSource{Sink: fileSink}, func() { fileSink.Close() }, nil

	case "sqlite":
		since, err := parseTimeFlag("since", opts.since)
		if err != nil {
			return nil, nil, err
		}
		until, err := parseTimeFlag("until", opts.until)
		if err != nil {
			return nil, nil, err
		}
		if _, err := os.Stat(opts.dbPath); err != nil {
			return nil, nil, fmt.Errorf("sqlite database: %w", err)
		}
		cfg := sink.DefaultSQLiteConfig()
		cfg.Path = opts.dbPath
		sqliteSink, err := sink.NewSQLiteSink(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite sink: %w", err)
		}
		return export.SQLiteSource{Sink: sqliteSink, Since: since, Until: until}, func() { sqliteSink.Close() }, nil

	default:
		return nil, nil, cli.NewConfigError("backend", fmt.Sprintf("cannot export from %q (valid: file, sqlite)", opts.backend))
	}
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, cli.NewConfigError(name, fmt.Sprintf("not an RFC 3339 time: %q", value))
	}
	return t, nil
}
