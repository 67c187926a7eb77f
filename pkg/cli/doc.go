/*
Package cli provides command-line helpers used by the trafficlogger command.

Errors and exit codes:

Commands return ConfigError for unusable configuration and CommandError for
runtime failures. ExitCode maps them to the process exit status (2 for
configuration problems, 1 otherwise).

Output Formatting:

Result-printing commands take --output text|json|yaml:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Progress Reporting:

Long exports draw a progress bar on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "records")
	progress.Start(total)
	for ... {
		progress.Increment()
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
