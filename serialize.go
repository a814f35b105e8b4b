package openfetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// BodySerializer converts a request body into wire bytes and the content
// type to send with them. An empty content type leaves the header untouched.
type BodySerializer func(body any) (data []byte, contentType string, err error)

// JSONBody is the default serializer for bodies that are not already raw.
func JSONBody(body any) ([]byte, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return data, "application/json", nil
}

// FormFile is a file part for [MultipartForm].
type FormFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// MultipartForm serializes a map[string]any as multipart/form-data.
// Values may be strings, []byte, []string, FormFile, io.Reader or anything
// printable with fmt.
func MultipartForm(body any) ([]byte, string, error) {
	fields, ok := Unwrap(body).(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("multipart body must be map[string]any, got %T", body)
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range sortedKeys(fields) {
		if err := writeFormField(w, name, Unwrap(fields[name])); err != nil {
			return nil, "", fmt.Errorf("form field %q: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFormField(w *multipart.Writer, name string, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return w.WriteField(name, val)
	case []string:
		for _, s := range val {
			if err := w.WriteField(name, s); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		part, err := w.CreateFormFile(name, name)
		if err != nil {
			return err
		}
		_, err = part.Write(val)
		return err
	case FormFile:
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, val.Filename))
		ct := val.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = part.Write(val.Content)
		return err
	case io.Reader:
		part, err := w.CreateFormFile(name, name)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, val)
		return err
	default:
		return w.WriteField(name, fmt.Sprint(val))
	}
}

// encodeBody turns a body into bytes. A nil body yields no bytes and never
// reaches the serializer. Raw bodies pass through unchanged and report no
// content type.
func encodeBody(body any, serializer BodySerializer) ([]byte, string, error) {
	body = Unwrap(body)
	if body == nil {
		return nil, "", nil
	}
	if serializer != nil {
		return serializer(body)
	}
	switch b := body.(type) {
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read body: %w", err)
		}
		return data, "", nil
	}
	return JSONBody(body)
}
