package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/files/upload" {
			t.Errorf("Expected /files/upload, got %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Expected multipart content type, got %s", r.Header.Get("Content-Type"))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Failed to read form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "sales.csv" {
			t.Errorf("Expected filename sales.csv, got %s", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "city,age\nA,10\n" {
			t.Errorf("Unexpected upload content %q", content)
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"File uploaded successfully","file_id":7,"file_metadata":{"columns":["city","age"],"dtypes":{"city":"object","age":"int64"},"num_rows":1}}`))
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Upload(context.Background(), "/tmp/data/sales.csv", strings.NewReader("city,age\nA,10\n"))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if resp.FileID != 7 {
		t.Errorf("Expected file_id 7, got %d", resp.FileID)
	}
	if resp.Filename != "sales.csv" {
		t.Errorf("Expected local filename fallback sales.csv, got %s", resp.Filename)
	}
	if resp.Metadata.NumRows != 1 || len(resp.Metadata.Columns) != 2 {
		t.Errorf("Unexpected metadata: %+v", resp.Metadata)
	}
}

func TestUpload_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Unsupported file type"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))

	var httpErr *Error
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", httpErr.StatusCode)
	}
	if httpErr.Message() != "Unsupported file type" {
		t.Errorf("Expected backend message, got %q", httpErr.Message())
	}
}

func TestListFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/files/list" {
			t.Errorf("Expected /files/list, got %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id": 1, "filename": "a.csv", "upload_time": "Tue, 03 Jun 2025 10:15:00 GMT", "file_metadata": {"columns": ["x"], "num_rows": 3}},
			{"id": 2, "filename": "b.xlsx", "upload_time": "", "file_metadata": {}}
		]`))
	}))
	defer server.Close()

	c := New(server.URL)
	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].ID != 1 || files[0].Filename != "a.csv" || files[0].Metadata.NumRows != 3 {
		t.Errorf("Unexpected first file: %+v", files[0])
	}

	ts, ok := files[0].UploadedAt()
	if !ok {
		t.Fatal("Expected upload time to parse")
	}
	if want := time.Date(2025, 6, 3, 10, 15, 0, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("Expected %v, got %v", want, ts)
	}
	if _, ok := files[1].UploadedAt(); ok {
		t.Error("Expected empty upload time not to parse")
	}
}

func TestListFiles_NullIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer server.Close()

	files, err := New(server.URL).ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", files)
	}
}

func TestDeleteFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/files/delete/42" {
			t.Errorf("Expected /files/delete/42, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"message": "File deleted successfully"}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).DeleteFile(context.Background(), 42)
	if err != nil {
		t.Fatalf("DeleteFile() error: %v", err)
	}
	if resp.Message != "File deleted successfully" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
}

func TestDeleteFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "File not found or unauthorized"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).DeleteFile(context.Background(), 9)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	var httpErr *Error
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 *Error, got %v", err)
	}
}

func TestSuggestCharts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charts/suggest/3" {
			t.Errorf("Expected /charts/suggest/3, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"suggestions": [
				{"type": "bar", "x": "city", "y": "age", "title": "Bar: age by city"},
				{"type": "bubble", "x": "a", "y": "b", "r": "c"}
			],
			"columns": ["city", "age"]
		}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).SuggestCharts(context.Background(), 3)
	if err != nil {
		t.Fatalf("SuggestCharts() error: %v", err)
	}
	if len(resp.Suggestions) != 2 {
		t.Fatalf("Expected 2 raw suggestions, got %d", len(resp.Suggestions))
	}
	var first map[string]any
	if err := json.Unmarshal(resp.Suggestions[0], &first); err != nil {
		t.Fatalf("Raw suggestion is not JSON: %v", err)
	}
	if first["type"] != "bar" {
		t.Errorf("Expected bar, got %v", first["type"])
	}
	if len(resp.Columns) != 2 {
		t.Errorf("Expected 2 columns, got %v", resp.Columns)
	}
}

func TestChartData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charts/data/3" {
			t.Errorf("Expected /charts/data/3, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"city": ["A", "B"], "age": [10, null]}`))
	}))
	defer server.Close()

	d, err := New(server.URL).ChartData(context.Background(), 3)
	if err != nil {
		t.Fatalf("ChartData() error: %v", err)
	}
	if got := d.ColumnNames(); len(got) != 2 || got[0] != "city" || got[1] != "age" {
		t.Errorf("Expected column order [city age], got %v", got)
	}
	if d.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", d.RowCount())
	}
}

func TestChartData_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city": ["A", "B"], "age": [10]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL).ChartData(context.Background(), 3); err == nil {
		t.Error("Expected error for ragged columns")
	}
}

func TestSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ai/summary/5" {
			t.Errorf("Expected /ai/summary/5, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"summary": "## Overview\nTwo columns."}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).Summary(context.Background(), 5)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if !strings.HasPrefix(resp.Summary, "## Overview") {
		t.Errorf("Unexpected summary %q", resp.Summary)
	}
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/ai/chat" {
			t.Errorf("Expected /ai/chat, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.FileID != 5 {
			t.Errorf("Expected file_id 5, got %d", req.FileID)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != "user" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(ChatResponse{Reply: "The mean age is 25."})
	}))
	defer server.Close()

	resp, err := New(server.URL).Chat(context.Background(), &ChatRequest{
		FileID: 5,
		Messages: []ChatTurn{
			{Role: "assistant", Content: "Hello!"},
			{Role: "user", Content: "What is the mean age?"},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Reply != "The mean age is 25." {
		t.Errorf("Unexpected reply %q", resp.Reply)
	}
}

func TestChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model unavailable"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Chat(context.Background(), &ChatRequest{FileID: 1})
	var httpErr *Error
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if httpErr.Message() != "model unavailable" {
		t.Errorf("Unexpected message %q", httpErr.Message())
	}
}

func TestError_MessageWithoutJSON(t *testing.T) {
	err := &Error{StatusCode: 502, Body: "<html>bad gateway</html>"}
	if err.Message() != "" {
		t.Errorf("Expected empty message, got %q", err.Message())
	}
	if !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("Unexpected error text %q", err.Error())
	}
}

func TestUnreachable(t *testing.T) {
	c := New("http://localhost:99999") // Invalid port
	if _, err := c.ListFiles(context.Background()); err == nil {
		t.Error("Expected error for unreachable server")
	}
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(server.URL).Summary(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGet_ResponseSizeLimiting(t *testing.T) {
	tests := []struct {
		name        string
		responseLen int64
		wantErr     bool
	}{
		{
			name:        "exact max size is accepted",
			responseLen: maxResponseSize,
			wantErr:     false,
		},
		{
			name:        "over max size is rejected",
			responseLen: maxResponseSize + 1,
			wantErr:     true,
		},
		{
			name:        "under max size is accepted",
			responseLen: 1000,
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Pad the summary so the body has the exact byte size.
				base := `{"summary":""}`
				padding := tt.responseLen - int64(len(base))
				if padding < 0 {
					padding = 0
				}
				w.Write([]byte(`{"summary":"` + strings.Repeat("a", int(padding)) + `"}`))
			}))
			defer server.Close()

			_, err := New(server.URL).Summary(context.Background(), 1)

			if tt.wantErr && err == nil {
				t.Error("Expected error for oversized response")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestNewWithAPIKey_SendsAuthorizationHeader(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	c := NewWithAPIKey(server.URL+"/", "vz_test123")
	if c.BaseURL() != server.URL {
		t.Errorf("Expected trailing slash trimmed, got %s", c.BaseURL())
	}
	if _, err := c.ListFiles(context.Background()); err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if _, err := c.Chat(context.Background(), &ChatRequest{FileID: 1}); err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if _, err := c.DeleteFile(context.Background(), 1); err != nil {
		t.Fatalf("DeleteFile() error: %v", err)
	}

	want := []string{"GET Bearer vz_test123", "POST Bearer vz_test123", "DELETE Bearer vz_test123"}
	if strings.Join(seen, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, seen)
	}
}

func TestNew_NoAuthorizationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Expected no Authorization header, got %q", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := New(server.URL).ListFiles(context.Background()); err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
}
