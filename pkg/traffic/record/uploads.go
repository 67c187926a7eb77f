package record

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ucraft/trafficlogger/pkg/traffic"
)

const sniffLen = 512

// uploadedFiles extracts metadata for every file part of a multipart/form-data
// body. Only the captured prefix is inspected, so the file crossing the capture
// limit is reported as partially uploaded. File contents are never kept.
func uploadedFiles(contentType string, body []byte, at time.Time) []traffic.UploadedFile {
	files := []traffic.UploadedFile{}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return files
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF ends a well-formed body; anything else is a truncated or
			// malformed body and the files seen so far are still reported.
			return files
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		files = append(files, describePart(part, at))
		part.Close()
	}
}

func describePart(part *multipart.Part, at time.Time) traffic.UploadedFile {
	name := part.FileName()
	clientExt := strings.TrimPrefix(filepath.Ext(name), ".")

	head := &headWriter{limit: sniffLen}
	size, err := io.Copy(head, part)

	file := traffic.UploadedFile{
		Field:                   part.FormName(),
		FileName:                filepath.Base(name),
		ClientOriginalName:      name,
		ClientOriginalExtension: clientExt,
		ClientMimeType:          part.Header.Get("Content-Type"),
		MimeType:                sniffMimeType(head.buf),
		Size:                    size,
		UploadedAt:              at.UTC(),
	}
	file.Extension = guessExtension(file.MimeType, clientExt)

	// The part reader fails with io.ErrUnexpectedEOF when the closing
	// boundary is missing, which is what a body cut at the capture limit
	// looks like.
	if err != nil {
		file.Error = traffic.UploadPartial
		file.ErrorMessage = "The file was only partially uploaded."
	}
	return file
}

// headWriter keeps the first limit bytes written to it and discards the rest.
type headWriter struct {
	buf   []byte
	limit int
}

func (w *headWriter) Write(p []byte) (int, error) {
	if room := w.limit - len(w.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		w.buf = append(w.buf, p[:room]...)
	}
	return len(p), nil
}

func sniffMimeType(head []byte) string {
	if len(head) == 0 {
		return "application/x-empty"
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

// guessExtension picks an extension registered for mimeType, preferring the
// one the client supplied.
func guessExtension(mimeType, clientExt string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	for _, ext := range exts {
		if strings.EqualFold(strings.TrimPrefix(ext, "."), clientExt) {
			return strings.TrimPrefix(ext, ".")
		}
	}
	return strings.TrimPrefix(exts[0], ".")
}
