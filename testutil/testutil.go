// Package testutil provides fakes and assertion helpers for testing code
// that calls openfetch clients.
// This package is designed to be import-cycle safe and can be used from any package.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is a request observed by a RecordingDoer.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Context is the request context, kept so tests can inspect values
	// threaded through by hooks.
	Context context.Context
}

// RecordingDoer is a fake transport. It records every request and answers
// it with handler, without opening a connection. It satisfies
// openfetch.Doer.
type RecordingDoer struct {
	handler http.Handler

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewRecordingDoer creates a RecordingDoer serving requests with h. A nil
// handler answers every request with 204 No Content.
func NewRecordingDoer(h http.Handler) *RecordingDoer {
	if h == nil {
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
	return &RecordingDoer{handler: h}
}

// Do records req and serves it in-process.
func (d *RecordingDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	} else {
		// Handlers may read the body of any server request.
		req.Body = http.NoBody
	}
	d.mu.Lock()
	d.requests = append(d.requests, RecordedRequest{
		Method:  req.Method,
		URL:     req.URL.String(),
		Header:  req.Header.Clone(),
		Body:    body,
		Context: req.Context(),
	})
	d.mu.Unlock()

	w := httptest.NewRecorder()
	d.handler.ServeHTTP(w, req)
	return w.Result(), nil
}

// Requests returns a copy of all recorded requests in order.
func (d *RecordingDoer) Requests() []RecordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RecordedRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

// Last returns the most recent request. It fails the test if none was made.
func (d *RecordingDoer) Last(t *testing.T) RecordedRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		t.Fatal("expected at least one request")
	}
	return d.requests[len(d.requests)-1]
}

// Count returns the number of recorded requests.
func (d *RecordingDoer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

// JSON returns a handler that answers every request with status and v
// encoded as JSON.
func JSON(status int, v any) http.Handler {
	return JSONWithType(status, "application/json", v)
}

// JSONWithType is like JSON with a custom content type, e.g. a vendor media
// type.
func JSONWithType(status int, contentType string, v any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	})
}

// Echo returns a handler that answers with a JSON description of the
// request it received.
func Echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
			"accept": r.Header.Get("Accept"),
			"body":   string(body),
		})
	})
}

// AssertHeader checks that a recorded request carried a header value.
func AssertHeader(t *testing.T, r RecordedRequest, key, expectedValue string) {
	t.Helper()
	actual := r.Header.Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// AssertJSONBody compares a recorded request body with expected as JSON,
// ignoring formatting differences.
func AssertJSONBody(t *testing.T, r RecordedRequest, expected any) {
	t.Helper()

	expectedJSON, _ := json.Marshal(expected)
	var expectedData, actualData any
	json.Unmarshal(expectedJSON, &expectedData)
	if err := json.Unmarshal(r.Body, &actualData); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, r.Body)
	}

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("body mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}
