// Package logging builds the service's slog logger.
//
// New returns a *slog.Logger configured for level, format and optional PII
// redaction. Components log through slog.Default() with a "component"
// attribute, so the logger is installed once at startup:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
// # Context fields
//
// Records logged with a context (InfoContext, ErrorContext, ...) carry the
// request_id and record_id stored by WithRequestID and WithRecordID, plus
// trace_id and span_id of the active span.
//
// # PII Redaction
//
// With RedactPII enabled, attributes whose key names a secret (password,
// token, authorization, cookie, ...) are masked to a four character hint,
// and string values are scanned for:
//
//   - bearer tokens: Bearer abc.def → Bearer ***
//   - API keys: sk-abc123xyz → sk-***
//   - emails: user@example.com → u***@example.com
//   - card numbers: 4111 1111 1111 1111 → ****-****-****-****
//   - inline passwords: password=hunter2 → password=***
package logging
