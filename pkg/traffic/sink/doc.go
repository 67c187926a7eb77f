// Package sink provides storage backends for serialized traffic dumps.
//
// # Backends
//
// Every backend implements traffic.Sink and is selected once at startup by
// the sink.backend configuration key:
//
//   - file: one JSON file per record under {log_dir}/{id}.json on a go-billy filesystem
//   - redis: one hash field per record under a shared top-level key
//   - gcs: one object per record named {date}/{id}.json in a bucket
//   - sqlite: one row per record, driver selectable (modernc "sqlite" or cgo "sqlite3")
//   - memory: in-process map, intended for tests and local runs
//   - none: nothing is stored; the publisher embeds the dump in the message
//
// # Location Tokens
//
// Store returns a token the consumer of the published message uses to find
// the dump again:
//
//	file    http-traffic/5f0c....json
//	redis   http-traffic:5f0c...
//	gcs     2024-05-01/5f0c....json
//	sqlite  5f0c...
//	memory  5f0c...
//	none    "" (empty)
//
// # Basic Usage
//
//	s, err := sink.New(ctx, &cfg.Sink)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	locator, err := s.Store(ctx, traffic.Entry{ID: id, CreatedAt: at, Payload: payload})
//
// # Thread Safety
//
// All backends are safe for concurrent use. Record identifiers are unique per
// request, so concurrent writes never target the same location.
package sink
