package record

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ucraft/trafficlogger/pkg/traffic"
	"ucraft/trafficlogger/pkg/traffic/redact"
)

func newScenarioRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "https://example.com/foo?foo=bar", strings.NewReader("qux"))
	req.Header.Set("Foo", "BAR")
	req.Header.Set("Authorization", "Token")
	req.Header.Add("Cookie", "example.com:access-token=token;cookie-key=cookie-value")
	req.Header.Add("Cookie", "foo=bar; example.com:access-token=baz")
	return req
}

func TestRecord_CaptureRequest(t *testing.T) {
	rec := New(time.Now(), Config{})
	rec.CaptureRequest(newScenarioRequest())

	if !rec.RequestCaptured() {
		t.Fatal("RequestCaptured() = false, want true")
	}

	dumped := rec.Dump()

	if got := dumped.String(traffic.KeyURL); got != "https://example.com/foo" {
		t.Errorf("url = %q, want %q", got, "https://example.com/foo")
	}
	if got := dumped.String(traffic.KeyMethod); got != http.MethodGet {
		t.Errorf("method = %q, want GET", got)
	}
	if got := dumped.String(traffic.KeyQuery); got != `{"foo":"bar"}` {
		t.Errorf("query = %q, want %q", got, `{"foo":"bar"}`)
	}
	if got := dumped.String(traffic.KeyReqBody); got != "qux" {
		t.Errorf("req_body = %q, want qux", got)
	}

	var headers map[string][]string
	if err := json.Unmarshal([]byte(dumped.String(traffic.KeyReqHeaders)), &headers); err != nil {
		t.Fatalf("req_headers is not JSON: %v", err)
	}
	if _, ok := headers["authorization"]; ok {
		t.Errorf("req_headers contains authorization: %v", headers)
	}
	if got := headers["foo"]; !reflect.DeepEqual(got, []string{"BAR"}) {
		t.Errorf("req_headers[foo] = %v, want [BAR]", got)
	}
	if got := headers["host"]; !reflect.DeepEqual(got, []string{"example.com"}) {
		t.Errorf("req_headers[host] = %v, want [example.com]", got)
	}
	cookieHeader := strings.Join(headers["cookie"], ";")
	if !strings.Contains(cookieHeader, "cookie-key=cookie-value") {
		t.Errorf("req_headers cookie = %q, want cookie-key=cookie-value kept", cookieHeader)
	}
	if strings.Contains(cookieHeader, "example.com:access-token") {
		t.Errorf("req_headers cookie = %q, still contains the access token", cookieHeader)
	}

	var cookies map[string]string
	if err := json.Unmarshal([]byte(dumped.String(traffic.KeyReqCookies)), &cookies); err != nil {
		t.Fatalf("req_cookies is not JSON: %v", err)
	}
	if cookies["foo"] != "bar" {
		t.Errorf("req_cookies[foo] = %q, want bar", cookies["foo"])
	}
	for name := range cookies {
		if strings.Contains(name, "access-token") {
			t.Errorf("req_cookies contains %q", name)
		}
	}

	if got := dumped.String(traffic.KeyUploadedFiles); got != "[]" {
		t.Errorf("uploaded_files = %q, want []", got)
	}
}

func TestRecord_CaptureRequest_BodyStillReadable(t *testing.T) {
	payload := strings.Repeat("0123456789", 100)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))

	rec := New(time.Now(), Config{MaxBodyBytes: 16})
	rec.CaptureRequest(req)

	if got := rec.Dump().String(traffic.KeyReqBody); got != payload[:16] {
		t.Errorf("req_body = %q, want %q", got, payload[:16])
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(body) != payload {
		t.Errorf("handler body has %d bytes, want %d", len(body), len(payload))
	}
	if err := req.Body.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRecord_CaptureRequest_RedactsPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"login":"bob","password":"hunter2"}`))

	rec := New(time.Now(), Config{})
	rec.CaptureRequest(req)

	if got := rec.Dump().String(traffic.KeyReqBody); got != `{"login":"bob","password":""}` {
		t.Errorf("req_body = %q", got)
	}

	// the handler still gets the original body
	body, _ := io.ReadAll(req.Body)
	if !bytes.Contains(body, []byte("hunter2")) {
		t.Errorf("handler body = %q, want original", body)
	}
}

func TestRecord_CaptureRequest_RedactsPasswordCutByLimit(t *testing.T) {
	payload := `{"user":"bob","password":"hunter2-very-secret-value"}`

	tests := []struct {
		name  string
		limit int64
		want  string
	}{
		{"cut inside value", 40, `{"user":"bob","password":"`},
		{"cut after opening quote", 26, `{"user":"bob","password":"`},
		{"cut after closing quote", 52, `{"user":"bob","password":""`},
		{"body fits", int64(len(payload)), `{"user":"bob","password":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(payload))

			rec := New(time.Now(), Config{MaxBodyBytes: tt.limit})
			rec.CaptureRequest(req)

			got := rec.Dump().String(traffic.KeyReqBody)
			if got != tt.want {
				t.Errorf("req_body = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "hunter") {
				t.Errorf("req_body %q leaks the password", got)
			}

			body, _ := io.ReadAll(req.Body)
			if string(body) != payload {
				t.Errorf("handler body = %q, want %q", body, payload)
			}
		})
	}
}

func TestRecord_CaptureRequest_URL(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		forwardedProto string
		trustForwarded bool
		expected       string
	}{
		{
			name:     "plain http",
			target:   "/foo/bar?x=1",
			expected: "http://example.com/foo/bar",
		},
		{
			name:     "trailing slash trimmed",
			target:   "/foo/",
			expected: "http://example.com/foo",
		},
		{
			name:     "root",
			target:   "/",
			expected: "http://example.com",
		},
		{
			name:           "forwarded proto ignored by default",
			target:         "/foo",
			forwardedProto: "https",
			expected:       "http://example.com/foo",
		},
		{
			name:           "forwarded proto trusted",
			target:         "/foo",
			forwardedProto: "https",
			trustForwarded: true,
			expected:       "https://example.com/foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.forwardedProto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwardedProto)
			}

			rec := New(time.Now(), Config{TrustForwardedProto: tt.trustForwarded})
			rec.CaptureRequest(req)

			if got := rec.Dump().String(traffic.KeyURL); got != tt.expected {
				t.Errorf("url = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRecord_CaptureRequest_User(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(traffic.WithUser(req.Context(), "42"))

	rec := New(time.Now(), Config{})
	rec.CaptureRequest(req)

	if got := rec.Dump()[traffic.KeyUserID]; got != "42" {
		t.Errorf("user_id = %v, want 42", got)
	}

	anonymous := New(time.Now(), Config{})
	anonymous.CaptureRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := anonymous.Dump()[traffic.KeyUserID]; ok {
		t.Error("user_id present for anonymous request")
	}

	custom := New(time.Now(), Config{
		UserResolver: func(r *http.Request) (string, bool) {
			return r.Header.Get("X-User"), r.Header.Get("X-User") != ""
		},
	})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "alice")
	custom.CaptureRequest(req)
	if got := custom.Dump()[traffic.KeyUserID]; got != "alice" {
		t.Errorf("user_id = %v, want alice", got)
	}
}

func TestRecord_CaptureResponse(t *testing.T) {
	rec := New(time.Now().Add(-1100*time.Millisecond), Config{})

	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	header.Set("Authorization", "Token")
	header.Add("Set-Cookie", "cookie-key=cookie-value")
	header.Add("Set-Cookie", "example.com:access-token=token")

	rec.CaptureResponse(Response{
		StatusCode:   http.StatusOK,
		Header:       header,
		Body:         []byte("foo"),
		BodyCaptured: true,
	})

	if !rec.ResponseCaptured() {
		t.Fatal("ResponseCaptured() = false, want true")
	}

	dumped := rec.Dump()

	if got := dumped[traffic.KeyResBody]; got != "foo" {
		t.Errorf("res_body = %v, want foo", got)
	}
	if got := dumped[traffic.KeyStatus]; got != http.StatusOK {
		t.Errorf("status = %v, want 200", got)
	}
	duration, ok := dumped[traffic.KeyDuration].(float64)
	if !ok || duration <= 1000 {
		t.Errorf("duration = %v, want > 1000", dumped[traffic.KeyDuration])
	}

	resHeaders := dumped.String(traffic.KeyResHeaders)
	if !strings.Contains(resHeaders, "content-type") {
		t.Errorf("res_headers = %s, want content-type", resHeaders)
	}
	if strings.Contains(strings.ToLower(resHeaders), "authorization") {
		t.Errorf("res_headers = %s, contains authorization", resHeaders)
	}
	if !strings.Contains(resHeaders, "set-cookie") || !strings.Contains(resHeaders, "cookie-key=cookie-value") {
		t.Errorf("res_headers = %s, want set-cookie for cookie-key", resHeaders)
	}
	if strings.Contains(resHeaders, "example.com:access-token") {
		t.Errorf("res_headers = %s, contains the access token", resHeaders)
	}
}

func TestRecord_CaptureResponse_BodyNotCaptured(t *testing.T) {
	rec := New(time.Now(), Config{})
	rec.CaptureResponse(Response{StatusCode: http.StatusSwitchingProtocols})

	dumped := rec.Dump()
	v, ok := dumped[traffic.KeyResBody]
	if !ok || v != nil {
		t.Errorf("res_body = %v (present %v), want nil", v, ok)
	}

	data, err := Marshal(dumped)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Contains(data, []byte(`"res_body":null`)) {
		t.Errorf("Marshal() = %s, want res_body null", data)
	}
}

func TestRecord_Duration(t *testing.T) {
	rec := New(time.Now(), Config{})

	rec.CaptureResponse(Response{StatusCode: http.StatusOK})
	first := rec.Duration()
	if first < 0 {
		t.Fatalf("Duration() = %v, want >= 0", first)
	}

	time.Sleep(20 * time.Millisecond)
	rec.CaptureResponse(Response{StatusCode: http.StatusOK})
	second := rec.Duration()

	if second < first+20 {
		t.Errorf("Duration() = %v after sleeping, want >= %v", second, first+20)
	}
}

func TestElapsedMillis(t *testing.T) {
	start := time.Date(2024, 1, 31, 23, 59, 59, 500_000_000, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected float64
	}{
		{"sub second", start.Add(250 * time.Millisecond), 250},
		{"across midnight and month", start.Add(1500 * time.Millisecond), 1500},
		{"across days", start.Add(49 * time.Hour), float64(49 * time.Hour / time.Millisecond)},
		{"clock went backwards", start.Add(-time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := elapsedMillis(start, tt.end); got != tt.expected {
				t.Errorf("elapsedMillis() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecord_Dump_Facets(t *testing.T) {
	rec := New(time.Now(), Config{})

	if dumped := rec.Dump(); len(dumped) != 0 {
		t.Errorf("Dump() before capture = %v, want empty", dumped)
	}

	rec.CaptureRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	if got, want := sortedKeys(rec.Dump()), sortedCopy(traffic.RequestKeys); !reflect.DeepEqual(got, want) {
		t.Errorf("Dump() keys after request = %v, want %v", got, want)
	}

	rec.CaptureResponse(Response{StatusCode: http.StatusNoContent, BodyCaptured: true})
	want := sortedCopy(append(append([]string{}, traffic.RequestKeys...), traffic.ResponseKeys...))
	if got := sortedKeys(rec.Dump()); !reflect.DeepEqual(got, want) {
		t.Errorf("Dump() keys after response = %v, want %v", got, want)
	}
}

func TestRecord_Dump_ResponseOnly(t *testing.T) {
	rec := New(time.Now(), Config{})
	rec.CaptureResponse(Response{StatusCode: http.StatusOK, BodyCaptured: true})

	if got, want := sortedKeys(rec.Dump()), sortedCopy(traffic.ResponseKeys); !reflect.DeepEqual(got, want) {
		t.Errorf("Dump() keys = %v, want %v", got, want)
	}
}

func TestRecord_Dump_EmptyCollections(t *testing.T) {
	rec := New(time.Now(), Config{})
	rec.CaptureRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	rec.CaptureResponse(Response{StatusCode: http.StatusNoContent, BodyCaptured: true})

	dumped := rec.Dump()
	for _, key := range []string{traffic.KeyQuery, traffic.KeyReqCookies, traffic.KeyUploadedFiles, traffic.KeyResHeaders} {
		if got := dumped.String(key); got != "[]" {
			t.Errorf("%s = %q, want []", key, got)
		}
	}
}

func TestRecord_Dump_CreatedAt(t *testing.T) {
	createdAt := time.Date(2024, 3, 9, 14, 5, 7, 999_000_000, time.FixedZone("X", 4*3600))
	rec := New(createdAt, Config{})
	rec.CaptureRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Dump().String(traffic.KeyCreatedAt); got != "2024-03-09T10:05:07" {
		t.Errorf("created_at = %q, want 2024-03-09T10:05:07", got)
	}
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	rec := New(time.Now(), Config{})
	rec.CaptureRequest(newScenarioRequest())
	rec.CaptureResponse(Response{
		StatusCode:   http.StatusCreated,
		Header:       http.Header{"Content-Type": {"application/json"}},
		Body:         []byte(`{"ok":true,"html":"<b>"}`),
		BodyCaptured: true,
	})

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	dumped := rec.Dump()
	if len(decoded) != len(dumped) {
		t.Fatalf("decoded %d keys, want %d", len(decoded), len(dumped))
	}
	for key, want := range dumped {
		got := decoded[key]
		switch w := want.(type) {
		case int:
			if got != float64(w) {
				t.Errorf("%s = %v, want %v", key, got, w)
			}
		default:
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s = %v, want %v", key, got, want)
			}
		}
	}

	// nested fields stay double-encoded strings
	for _, key := range []string{traffic.KeyQuery, traffic.KeyReqHeaders, traffic.KeyReqCookies, traffic.KeyUploadedFiles, traffic.KeyResHeaders} {
		if _, ok := decoded[key].(string); !ok {
			t.Errorf("%s decoded as %T, want string", key, decoded[key])
		}
	}
}

func TestRecord_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New(time.Now(), Config{}).ID()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("ID() = %q is not a UUID: %v", id, err)
		}
		if parsed.Version() != 4 {
			t.Errorf("ID() version = %d, want 4", parsed.Version())
		}
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestRecord_CustomRedactor(t *testing.T) {
	rec := New(time.Now(), Config{Redactor: redact.New(redact.Config{
		HiddenHeaders:   []string{"x-api-key"},
		HiddenCookies:   []string{"laravel_session"},
		SensitiveTokens: []string{`"pin"`},
	})})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pin":"1234"}`))
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set("Authorization", "Token")
	req.Header.Set("Cookie", "laravel_session=abc; theme=dark")
	rec.CaptureRequest(req)

	dumped := rec.Dump()
	if got := dumped.String(traffic.KeyReqBody); got != `{"pin":""}` {
		t.Errorf("req_body = %q", got)
	}
	headers := dumped.String(traffic.KeyReqHeaders)
	if strings.Contains(headers, "x-api-key") {
		t.Errorf("req_headers = %s, contains x-api-key", headers)
	}
	if !strings.Contains(headers, "authorization") {
		t.Errorf("req_headers = %s, want authorization kept by custom set", headers)
	}
	if got := dumped.String(traffic.KeyReqCookies); got != `{"theme":"dark"}` {
		t.Errorf("req_cookies = %s", got)
	}
}

func TestRecord_UploadedFiles(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 100)...)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "holiday")
	fw, _ := mw.CreateFormFile("avatar", "photo.PNG")
	_, _ = fw.Write(png)
	fw, _ = mw.CreateFormFile("docs[]", "notes.txt")
	_, _ = fw.Write([]byte("hello world"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	at := time.Now()
	rec := New(at, Config{})
	rec.CaptureRequest(req)

	var files []traffic.UploadedFile
	if err := json.Unmarshal([]byte(rec.Dump().String(traffic.KeyUploadedFiles)), &files); err != nil {
		t.Fatalf("uploaded_files is not JSON: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("uploaded_files has %d entries, want 2", len(files))
	}

	avatar := files[0]
	if avatar.Field != "avatar" || avatar.ClientOriginalName != "photo.PNG" {
		t.Errorf("avatar = %+v", avatar)
	}
	if avatar.ClientOriginalExtension != "PNG" {
		t.Errorf("ClientOriginalExtension = %q, want PNG", avatar.ClientOriginalExtension)
	}
	if avatar.MimeType != "image/png" || avatar.Extension != "png" {
		t.Errorf("MimeType = %q, Extension = %q, want image/png, png", avatar.MimeType, avatar.Extension)
	}
	if avatar.ClientMimeType != "application/octet-stream" {
		t.Errorf("ClientMimeType = %q", avatar.ClientMimeType)
	}
	if avatar.Size != int64(len(png)) {
		t.Errorf("Size = %d, want %d", avatar.Size, len(png))
	}
	if avatar.Error != traffic.UploadOK || avatar.ErrorMessage != "" {
		t.Errorf("Error = %d %q, want none", avatar.Error, avatar.ErrorMessage)
	}
	if !avatar.UploadedAt.Equal(at) {
		t.Errorf("UploadedAt = %v, want %v", avatar.UploadedAt, at)
	}

	notes := files[1]
	if notes.Field != "docs[]" || notes.MimeType != "text/plain" || notes.Size != 11 {
		t.Errorf("notes = %+v", notes)
	}

	// handler can still parse the form
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm() error = %v", err)
	}
	if req.FormValue("title") != "holiday" {
		t.Errorf("FormValue(title) = %q", req.FormValue("title"))
	}
}

func TestRecord_UploadedFiles_Truncated(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("archive", "big.bin")
	_, _ = fw.Write(bytes.Repeat([]byte("a"), 4096))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := New(time.Now(), Config{MaxBodyBytes: 1024})
	rec.CaptureRequest(req)

	var files []traffic.UploadedFile
	if err := json.Unmarshal([]byte(rec.Dump().String(traffic.KeyUploadedFiles)), &files); err != nil {
		t.Fatalf("uploaded_files is not JSON: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("uploaded_files has %d entries, want 1", len(files))
	}
	if files[0].Error != traffic.UploadPartial {
		t.Errorf("Error = %d, want %d", files[0].Error, traffic.UploadPartial)
	}
	if files[0].Size >= 4096 {
		t.Errorf("Size = %d, want less than the full file", files[0].Size)
	}

	full, _ := io.ReadAll(req.Body)
	if len(full) != body.Len() {
		t.Errorf("handler body has %d bytes, want %d", len(full), body.Len())
	}
}

func TestParseCookies(t *testing.T) {
	cookies := parseCookies([]string{
		`a=1; b="quoted"; example.com:access-token=t`,
		"a=2;;=novalue; c",
	})

	expected := map[string]string{
		"a":                        "1",
		"b":                        "quoted",
		"example.com:access-token": "t",
		"c":                        "",
	}
	if !reflect.DeepEqual(cookies, expected) {
		t.Errorf("parseCookies() = %v, want %v", cookies, expected)
	}
}

func sortedKeys(d traffic.Dump) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
