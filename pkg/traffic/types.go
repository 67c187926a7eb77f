package traffic

import (
	"context"
	"time"
)

// Dump keys. The persisted artifact is a flat JSON object using exactly these
// keys; query, req_headers, req_cookies, uploaded_files and res_headers hold
// JSON-encoded strings rather than nested objects.
const (
	KeyUUID          = "uuid"
	KeyUserID        = "user_id"
	KeyURL           = "url"
	KeyMethod        = "method"
	KeyQuery         = "query"
	KeyReqHeaders    = "req_headers"
	KeyReqCookies    = "req_cookies"
	KeyReqBody       = "req_body"
	KeyUploadedFiles = "uploaded_files"
	KeyCreatedAt     = "created_at"

	KeyResHeaders = "res_headers"
	KeyResBody    = "res_body"
	KeyStatus     = "status"
	KeyDuration   = "duration"
)

// RequestKeys lists the keys present once the request facet is captured.
// user_id is only present when an authenticated user was resolved.
var RequestKeys = []string{
	KeyUUID, KeyURL, KeyMethod, KeyQuery, KeyReqHeaders,
	KeyReqCookies, KeyReqBody, KeyUploadedFiles, KeyCreatedAt,
}

// ResponseKeys lists the keys added once the response facet is captured.
var ResponseKeys = []string{KeyResHeaders, KeyResBody, KeyStatus, KeyDuration}

// CreatedAtLayout is the created_at format: second precision, no offset.
const CreatedAtLayout = "2006-01-02T15:04:05"

// Dump is the flat, serializable snapshot of a traffic record.
type Dump map[string]any

// String returns the string stored under key, or "" when absent or not a string.
func (d Dump) String(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// UploadedFile describes one file received in a multipart request.
type UploadedFile struct {
	Field                   string    `json:"field"`
	FileName                string    `json:"fileName"`
	ClientOriginalName      string    `json:"clientOriginalName"`
	ClientOriginalExtension string    `json:"clientOriginalExtension"`
	ClientMimeType          string    `json:"clientMimeType"`
	MimeType                string    `json:"mimeType"`
	Extension               string    `json:"extension"`
	Size                    int64     `json:"size"`
	UploadedAt              time.Time `json:"uploadedAt"`
	Error                   int       `json:"error"`
	ErrorMessage            string    `json:"errorMessage"`
}

// Upload error codes reported in UploadedFile.Error.
const (
	UploadOK      = 0
	UploadPartial = 3
)

// Entry is one serialized record handed to a Sink.
type Entry struct {
	// ID is the record identifier; sinks derive their location from it.
	ID string

	// CreatedAt is the record creation time, used for date partitioning.
	CreatedAt time.Time

	// Payload is the JSON encoding of the record dump.
	Payload []byte
}

// Sink persists serialized dumps. Implementations must be safe for concurrent
// use; record identifiers are unique, so writes never target the same location.
type Sink interface {
	// Name returns the backend name used in logs and metrics.
	Name() string

	// Store persists the entry and returns a location token for it.
	Store(ctx context.Context, entry Entry) (string, error)

	// Close releases any resources held by the sink.
	Close() error
}

// Pinger is implemented by sinks and dispatchers that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Message is one outbound notification.
type Message struct {
	// Topic is the destination topic.
	Topic string

	// Key is the partition/ordering key (creation timestamp, RFC 3339).
	Key string

	// Body is the JSON-encoded message body.
	Body []byte
}

// Dispatcher hands messages to an external transport. Dispatch must not wait
// for remote acknowledgment.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, msg Message) error
	Close() error
}
