package erclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/goccy/go-json"
)

// File is one multipart attachment.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// Request is one logical API call.
type Request struct {
	// Endpoint labels the call in logs and metrics; it never reaches the wire.
	Endpoint string
	Method   string
	// Path is relative to /api/{version}/, or an absolute URL (a "next" link).
	Path    string
	Version string
	Query   url.Values
	JSON    any
	Files   []File
	Form    url.Values
	// Stream returns the raw body in Envelope.Stream instead of decoding it.
	Stream bool
	// Retry enables the whole-call retry loop for this request.
	Retry bool
}

// Envelope is the normalized response.
type Envelope struct {
	StatusCode int
	Header     http.Header
	// Body is the unwrapped payload: data, else metadata, else the raw body.
	Body json.RawMessage
	Raw  []byte
	// Stream is set only for Stream requests; the caller must close it.
	Stream io.ReadCloser
}

// Decode unmarshals the unwrapped body into out.
func (e *Envelope) Decode(out any) error {
	if out == nil || len(e.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// unwrap applies the envelope priority: data, then metadata, then raw.
func unwrap(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return raw
	}
	if data, ok := probe["data"]; ok {
		return data
	}
	if meta, ok := probe["metadata"]; ok {
		return meta
	}
	return raw
}

// encodeBody renders the request body once. JSON and multipart are separate
// paths; the bytes are replayed on every attempt.
func encodeBody(r *Request) ([]byte, string, error) {
	switch {
	case len(r.Files) > 0:
		return encodeMultipart(r.Form, r.Files)
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return b, "application/json", nil
	case len(r.Form) > 0:
		return []byte(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(form url.Values, files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, values := range form {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("write multipart field %q: %w", key, err)
			}
		}
	}

	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "filecontent.file"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create multipart part %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copy file %q: %w", f.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
