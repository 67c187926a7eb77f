package redact

import (
	"strings"
)

// Defaults applied when a Config leaves a set empty.
var (
	DefaultHiddenHeaders   = []string{"authorization"}
	DefaultHiddenCookies   = []string{":access-token"}
	DefaultSensitiveTokens = []string{`"password"`, `"oldPassword"`, `"passwordConfirmation"`}
)

// Config configures a Redactor.
type Config struct {
	// HiddenHeaders are header names dropped from header collections.
	// Matching is case-insensitive.
	HiddenHeaders []string

	// HiddenCookies are cookie name fragments. Any cookie whose name (or raw
	// name=value segment) contains one of them is dropped. Case-sensitive.
	HiddenCookies []string

	// SensitiveTokens are quoted JSON keys whose string values are blanked
	// in request bodies, e.g. `"password"`.
	SensitiveTokens []string
}

// DefaultConfig returns the default redaction sets.
func DefaultConfig() Config {
	return Config{
		HiddenHeaders:   append([]string(nil), DefaultHiddenHeaders...),
		HiddenCookies:   append([]string(nil), DefaultHiddenCookies...),
		SensitiveTokens: append([]string(nil), DefaultSensitiveTokens...),
	}
}

// Redactor scrubs sensitive values from captured traffic. It holds no mutable
// state after construction and is safe for concurrent use.
type Redactor struct {
	hiddenHeaders   map[string]struct{}
	hiddenCookies   []string
	sensitiveTokens []string
}

// New creates a Redactor. Empty cookie fragments and tokens are ignored, since
// an empty substring would match everything.
func New(cfg Config) *Redactor {
	r := &Redactor{
		hiddenHeaders: make(map[string]struct{}, len(cfg.HiddenHeaders)),
	}
	for _, h := range cfg.HiddenHeaders {
		if h = strings.TrimSpace(h); h != "" {
			r.hiddenHeaders[strings.ToLower(h)] = struct{}{}
		}
	}
	for _, c := range cfg.HiddenCookies {
		if c != "" {
			r.hiddenCookies = append(r.hiddenCookies, c)
		}
	}
	for _, t := range cfg.SensitiveTokens {
		if t != "" {
			r.sensitiveTokens = append(r.sensitiveTokens, t)
		}
	}
	return r
}

// Body blanks the value of each sensitive token in content. Tokens are
// applied in order, each against the output of the previous one.
//
// Only the first occurrence of each token is scrubbed. Payloads repeating a
// sensitive key (nested objects, arrays of credentials) keep the later values.
func (r *Redactor) Body(content string) string {
	for _, token := range r.sensitiveTokens {
		content = clearToken(content, token, false)
	}
	return content
}

// TruncatedBody is Body for content cut short by a capture limit. A value
// whose closing quote is missing runs to the end of content and is blanked
// up to there.
func (r *Redactor) TruncatedBody(content string) string {
	for _, token := range r.sensitiveTokens {
		content = clearToken(content, token, true)
	}
	return content
}

// clearToken empties the quoted value following the first occurrence of
// token. The opening quote is searched starting one byte past the end of the
// token so the token's own closing quote and the separator are skipped. If
// any quote is missing the content is returned unchanged, except that with
// openEnded a missing closing quote clears everything after the opening one.
func clearToken(content, token string, openEnded bool) string {
	pos := strings.Index(content, token)
	if pos < 0 {
		return content
	}

	from := pos + len(token) + 1
	if from >= len(content) {
		return content
	}
	startQuote := strings.IndexByte(content[from:], '"')
	if startQuote < 0 {
		return content
	}
	startQuote += from

	endQuote := strings.IndexByte(content[startQuote+1:], '"')
	if endQuote < 0 {
		if openEnded {
			return content[:startQuote+1]
		}
		return content
	}
	endQuote += startQuote + 1

	return content[:startQuote+1] + content[endQuote:]
}

// Headers returns a redacted copy of headers keyed by lowercased name. The
// cookie and set-cookie values are filtered with CookieHeader, then hidden
// headers are dropped. The input is not modified.
func (r *Redactor) Headers(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for name, values := range headers {
		key := strings.ToLower(name)
		if _, hidden := r.hiddenHeaders[key]; hidden {
			continue
		}

		copied := make([]string, 0, len(values))
		for _, v := range values {
			if key == "cookie" || key == "set-cookie" {
				v = r.CookieHeader(v)
			}
			copied = append(copied, v)
		}
		out[key] = append(out[key], copied...)
	}
	return out
}

// CookieHeader removes every ;-separated segment of a raw cookie header value
// that contains a hidden cookie fragment. Surviving segments keep their order
// and original text, and are rejoined with ";".
func (r *Redactor) CookieHeader(value string) string {
	segments := strings.Split(value, ";")
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		if !r.hiddenCookie(segment) {
			kept = append(kept, segment)
		}
	}
	return strings.Join(kept, ";")
}

// Cookies returns a copy of parsed cookies without entries whose name
// contains a hidden cookie fragment.
func (r *Redactor) Cookies(cookies map[string]string) map[string]string {
	out := make(map[string]string, len(cookies))
	for name, value := range cookies {
		if !r.hiddenCookie(name) {
			out[name] = value
		}
	}
	return out
}

// HeaderHidden reports whether the named header is dropped by Headers.
func (r *Redactor) HeaderHidden(name string) bool {
	_, hidden := r.hiddenHeaders[strings.ToLower(name)]
	return hidden
}

func (r *Redactor) hiddenCookie(s string) bool {
	for _, fragment := range r.hiddenCookies {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
