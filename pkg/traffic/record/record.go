package record

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ucraft/trafficlogger/pkg/traffic"
	"ucraft/trafficlogger/pkg/traffic/redact"
)

// DefaultMaxBodyBytes caps how much of a request or response body is captured.
const DefaultMaxBodyBytes int64 = 1 << 20

var defaultRedactor = redact.New(redact.DefaultConfig())

// Config controls how a Record captures an exchange.
type Config struct {
	// Redactor scrubs headers, cookies and bodies. Defaults to redact.DefaultConfig.
	Redactor *redact.Redactor

	// MaxBodyBytes caps the captured request body. The handler still receives
	// the complete body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// TrustForwardedProto uses X-Forwarded-Proto when rebuilding the URL scheme.
	TrustForwardedProto bool

	// UserResolver extracts the authenticated user. Defaults to
	// traffic.ContextUserResolver.
	UserResolver traffic.UserResolver
}

func (c Config) withDefaults() Config {
	if c.Redactor == nil {
		c.Redactor = defaultRedactor
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.UserResolver == nil {
		c.UserResolver = traffic.ContextUserResolver
	}
	return c
}

// Response is the response facet handed to CaptureResponse.
type Response struct {
	StatusCode int
	Header     http.Header

	// Body holds the captured response bytes.
	Body []byte

	// BodyCaptured is false when the body could not be observed (hijacked
	// connection, streamed past the capture limit). res_body is then null.
	BodyCaptured bool
}

// Record captures one request/response exchange. A Record is owned by a single
// request and is not safe for concurrent use.
type Record struct {
	cfg       Config
	id        string
	createdAt time.Time

	requestCaptured  bool
	responseCaptured bool

	// request facet
	userID        string
	hasUser       bool
	url           string
	method        string
	query         Query
	reqHeaders    map[string][]string
	reqCookies    map[string]string
	reqBody       string
	uploadedFiles []traffic.UploadedFile

	// response facet
	resHeaders map[string][]string
	resBody    *string
	status     int
	duration   float64
}

// New creates a Record with a fresh version 4 identifier. createdAt should
// come from time.Now so the duration is measured on the monotonic clock.
func New(createdAt time.Time, cfg Config) *Record {
	return &Record{
		cfg:       cfg.withDefaults(),
		id:        uuid.New().String(),
		createdAt: createdAt,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// CreatedAt returns the creation timestamp.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// Method returns the captured request method.
func (r *Record) Method() string { return r.method }

// Status returns the captured response status code.
func (r *Record) Status() int { return r.status }

// Duration returns the elapsed milliseconds computed by CaptureResponse.
func (r *Record) Duration() float64 { return r.duration }

// RequestCaptured reports whether CaptureRequest ran.
func (r *Record) RequestCaptured() bool { return r.requestCaptured }

// ResponseCaptured reports whether CaptureResponse ran.
func (r *Record) ResponseCaptured() bool { return r.responseCaptured }

// CaptureRequest extracts the request facet from req. The body is read up to
// the configured limit and then restored, so the handler sees the complete,
// unread body. Calling it twice overwrites the previous capture.
func (r *Record) CaptureRequest(req *http.Request) {
	body, truncated := r.peekBody(req)

	r.url = requestURL(req, r.cfg.TrustForwardedProto)
	r.method = req.Method
	r.query = ParseQuery(req.URL.RawQuery)
	r.reqHeaders = r.cfg.Redactor.Headers(requestHeaders(req))
	r.reqCookies = r.cfg.Redactor.Cookies(parseCookies(req.Header.Values("Cookie")))
	if truncated {
		r.reqBody = r.cfg.Redactor.TruncatedBody(string(body))
	} else {
		r.reqBody = r.cfg.Redactor.Body(string(body))
	}
	r.uploadedFiles = uploadedFiles(req.Header.Get("Content-Type"), body, r.createdAt)
	r.userID, r.hasUser = r.cfg.UserResolver(req)

	r.requestCaptured = true
}

// CaptureResponse records the response facet and the elapsed duration since
// creation. Calling it twice overwrites the previous capture.
func (r *Record) CaptureResponse(resp Response) {
	r.duration = elapsedMillis(r.createdAt, time.Now())
	r.resHeaders = r.cfg.Redactor.Headers(resp.Header)
	r.status = resp.StatusCode
	r.resBody = nil
	if resp.BodyCaptured {
		body := string(resp.Body)
		r.resBody = &body
	}

	r.responseCaptured = true
}

// Dump returns the flat snapshot of every facet captured so far. Before any
// capture the result is empty.
func (r *Record) Dump() traffic.Dump {
	d := traffic.Dump{}

	if r.requestCaptured {
		d[traffic.KeyUUID] = r.id
		if r.hasUser {
			d[traffic.KeyUserID] = r.userID
		}
		d[traffic.KeyURL] = r.url
		d[traffic.KeyMethod] = r.method
		d[traffic.KeyQuery] = encodeJSON(r.query)
		d[traffic.KeyReqHeaders] = encodeJSON(r.reqHeaders)
		d[traffic.KeyReqCookies] = encodeJSON(r.reqCookies)
		d[traffic.KeyReqBody] = r.reqBody
		d[traffic.KeyUploadedFiles] = encodeJSON(r.uploadedFiles)
		d[traffic.KeyCreatedAt] = r.createdAt.UTC().Format(traffic.CreatedAtLayout)
	}

	if r.responseCaptured {
		d[traffic.KeyResHeaders] = encodeJSON(r.resHeaders)
		if r.resBody != nil {
			d[traffic.KeyResBody] = *r.resBody
		} else {
			d[traffic.KeyResBody] = nil
		}
		d[traffic.KeyStatus] = r.status
		d[traffic.KeyDuration] = r.duration
	}

	return d
}

// MarshalJSON encodes the dump.
func (r *Record) MarshalJSON() ([]byte, error) {
	return Marshal(r.Dump())
}

// Marshal encodes a dump as JSON without HTML escaping.
func Marshal(d traffic.Dump) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// peekBody reads up to MaxBodyBytes of the request body and puts the bytes
// back in front of the unread remainder. truncated reports that the body
// continues past the limit. A read error ends the capture early; the handler
// then observes the same error on its own read.
func (r *Record) peekBody(req *http.Request) (body []byte, truncated bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, false
	}

	limit := r.cfg.MaxBodyBytes
	buf, _ := io.ReadAll(io.LimitReader(req.Body, limit+1))
	req.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(buf), req.Body),
		closer: req.Body,
	}
	if int64(len(buf)) > limit {
		return buf[:limit], true
	}
	return buf, false
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}

// requestURL rebuilds scheme://host/path without the query string. A trailing
// slash is trimmed.
func requestURL(req *http.Request, trustForwarded bool) string {
	scheme := req.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if req.TLS != nil {
			scheme = "https"
		}
		if trustForwarded {
			if proto := req.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
				scheme = proto
			}
		}
	}

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	return strings.TrimRight(scheme+"://"+host+req.URL.EscapedPath(), "/")
}

// requestHeaders returns the request headers including Host, which net/http
// moves out of the header map.
func requestHeaders(req *http.Request) map[string][]string {
	headers := make(map[string][]string, len(req.Header)+1)
	for name, values := range req.Header {
		headers[name] = values
	}
	if req.Host != "" {
		headers["Host"] = []string{req.Host}
	}
	return headers
}

// parseCookies parses raw Cookie header values. Names net/http would reject
// (for example "example.com:access-token") are kept so they can be redacted
// by name. The first value of a repeated name wins.
func parseCookies(lines []string) map[string]string {
	cookies := make(map[string]string)
	for _, line := range lines {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, seen := cookies[name]; seen {
				continue
			}
			value = strings.TrimSpace(value)
			if len(value) > 1 && value[0] == '"' && value[len(value)-1] == '"' {
				value = value[1 : len(value)-1]
			}
			cookies[name] = value
		}
	}
	return cookies
}

// elapsedMillis returns the milliseconds between start and end, never negative.
func elapsedMillis(start, end time.Time) float64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// encodeJSON encodes a nested dump value. Empty header and cookie maps encode
// as [] like the empty query.
func encodeJSON(v any) string {
	switch m := v.(type) {
	case map[string]string:
		if len(m) == 0 {
			return "[]"
		}
	case map[string][]string:
		if len(m) == 0 {
			return "[]"
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimRight(buf.String(), "\n")
}
