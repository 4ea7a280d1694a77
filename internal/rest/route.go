package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// route is the HTTP shape of one catalog request.
type route struct {
	method string
	path   string
	query  url.Values
	body   payload

	// unlimited routes carry no rate-limit headers.
	unlimited bool
}

func get(path string) route {
	return route{method: http.MethodGet, path: path}
}

func withJSON(method, path string, v any) route {
	return route{method: method, path: path, body: jsonPayload{value: v}}
}

// payload encodes a request body and names its content type.
type payload interface {
	encode() (io.Reader, string, error)
}

type jsonPayload struct {
	value any
}

func (p jsonPayload) encode() (io.Reader, string, error) {
	data, err := json.Marshal(p.value)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// filePayload is a multipart upload with an optional JSON part.
type filePayload struct {
	filename string
	content  []byte
	fields   any
}

func (p filePayload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if p.fields != nil {
		data, err := json.Marshal(p.fields)
		if err != nil {
			return nil, "", fmt.Errorf("encode upload fields: %w", err)
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="payload_json"`)
		header.Set("Content-Type", "application/json")
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", p.filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(p.content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
