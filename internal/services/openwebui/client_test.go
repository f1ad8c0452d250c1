package openwebui_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/services/openwebui"
)

func newTestClient(t *testing.T, handler http.Handler) (*openwebui.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := openwebui.NewClient(openwebui.Config{
		URL:    server.URL,
		APIKey: "test-key",
		Model:  "test-model",
	}, openwebui.WithSleeper(func(time.Duration) {}))
	return client, server
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	healthy = false
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for unhealthy server")
	}
}

func TestChatCompletionReturnsContent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var payload struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Stream      bool    `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Temperature != 0.3 {
			t.Fatalf("unexpected temperature %v", payload.Temperature)
		}
		if payload.Stream {
			t.Fatal("expected stream false")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello  "}}]}`)) //nolint:errcheck
	}))

	content, err := client.ChatCompletion(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("ChatCompletion returned error: %v", err)
	}
	if content != "hello" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestChatCompletionRetriesServerErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)) //nolint:errcheck
	}))

	content, err := client.ChatCompletion(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("ChatCompletion returned error: %v", err)
	}
	if content != "ok" {
		t.Fatalf("unexpected content %q", content)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestChatCompletionDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))

	if _, err := client.ChatCompletion(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestUploadFileReplacesPrevious(t *testing.T) {
	var deleted string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/files/":
			w.Write([]byte(`[{"id":"old-1","filename":"note.md"},{"id":"x","filename":"other.md"}]`)) //nolint:errcheck
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/files/old-1":
			deleted = "old-1"
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/files/":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			defer file.Close()
			if header.Filename != "note.md" {
				t.Fatalf("unexpected filename %q", header.Filename)
			}
			w.Write([]byte(`{"id":"new-1","filename":"note.md"}`)) //nolint:errcheck
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# note"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	id, err := client.UploadFile(context.Background(), path, "note.md")
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if id != "new-1" {
		t.Fatalf("unexpected file id %q", id)
	}
	if deleted != "old-1" {
		t.Fatal("expected previous upload to be deleted first")
	}
}

func TestUploadFileProceedsWhenDeleteFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/files/":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`listing broken`)) //nolint:errcheck
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/files/":
			w.Write([]byte(`{"id":"new-1","filename":"note.md"}`)) //nolint:errcheck
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# note"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	id, err := client.UploadFile(context.Background(), path, "note.md")
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if id != "new-1" {
		t.Fatalf("unexpected file id %q", id)
	}
}

func TestLinkToCollectionTreatsBenignErrorsAsSuccess(t *testing.T) {
	responses := []struct {
		status int
		body   string
		wantOK bool
	}{
		{http.StatusOK, `{}`, true},
		{http.StatusBadRequest, `{"detail":"Duplicate content detected"}`, true},
		{http.StatusInternalServerError, `failed to extract enum MetadataValue`, true},
		{http.StatusBadRequest, `{"detail":"collection not found"}`, false},
	}
	idx := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/knowledge/col-1/file/add" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(responses[idx].status)
		w.Write([]byte(responses[idx].body)) //nolint:errcheck
	}))

	for i, tc := range responses {
		idx = i
		err := client.LinkToCollection(context.Background(), "file-1", "col-1")
		if tc.wantOK && err != nil {
			t.Fatalf("case %d: expected success, got %v", i, err)
		}
		if !tc.wantOK && err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDecodeModelJSONStripsCodeFences(t *testing.T) {
	cases := []string{
		`{"title":"A Walk"}`,
		"```json\n{\"title\":\"A Walk\"}\n```",
		"Here is the metadata:\n{\"title\":\"A Walk\"}",
	}
	for i, raw := range cases {
		var parsed struct {
			Title string `json:"title"`
		}
		if err := openwebui.DecodeModelJSON(raw, &parsed); err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if parsed.Title != "A Walk" {
			t.Fatalf("case %d: unexpected title %q", i, parsed.Title)
		}
	}

	var out any
	if err := openwebui.DecodeModelJSON("", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
