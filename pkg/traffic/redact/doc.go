// Package redact scrubs sensitive data from captured HTTP traffic.
//
// Three kinds of redaction are applied before anything is persisted:
//
//   - Body tokens: for each configured quoted key (for example `"password"`),
//     the string value that follows its first occurrence is emptied, leaving
//     the key and the surrounding bytes untouched.
//   - Headers: header names are lowercased, hidden headers (minimally
//     authorization) are dropped, and the cookie and set-cookie values are
//     filtered segment by segment.
//   - Cookies: parsed cookies whose name contains a hidden fragment are
//     dropped.
//
// Header name matching is case-insensitive. Cookie fragment matching is a
// case-sensitive substring test.
//
// Redaction is best effort. Malformed input never fails; it is returned with
// whatever could not be matched left as-is.
package redact
