package openfetch

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Response is a fully read HTTP response.
type Response struct {
	Method    string
	URL       string
	Status    int
	Header    http.Header
	MediaType string
	Body      []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode decodes the body into v according to the response media type.
// JSON bodies (application/json or any +json type) decode with
// encoding/json; text bodies require *string; anything else requires
// *[]byte. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	return decodeBody(r.MediaType, r.Body, v)
}

func decodeBody(contentType string, body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	mediaType := parseMediaType(contentType)
	if mediaType == "" {
		mediaType = sniffMediaType(body)
	}
	switch dst := v.(type) {
	case *[]byte:
		*dst = append((*dst)[:0], body...)
		return nil
	case *string:
		*dst = string(body)
		return nil
	}
	if isJSONMediaType(mediaType) {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("decode %s body: %w", mediaType, err)
		}
		return nil
	}
	return fmt.Errorf("cannot decode %s body into %T", mediaType, v)
}

// isJSONMediaType reports whether mt is application/json or a structured
// +json type such as application/vnd.petstore.v2+json.
func isJSONMediaType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// sniffMediaType detects the media type of a body sent without a
// Content-Type header.
func sniffMediaType(body []byte) string {
	mt := mimetype.Detect(body)
	return parseMediaType(mt.String())
}
