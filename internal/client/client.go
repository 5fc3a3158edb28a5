// Package client implements the vizbench backend HTTP client.
//
// The client covers every backend operation the workbench consumes:
// - POST /files/upload - Upload a tabular file (multipart)
// - GET /files/list - List uploaded files
// - DELETE /files/delete/{id} - Delete a file
// - GET /charts/suggest/{id} - Chart suggestions for a file
// - GET /charts/data/{id} - Column-oriented raw data
// - GET /ai/summary/{id} - AI summary of a file
// - POST /ai/chat - AI chat reply about a file
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/vizbench/vzb/internal/dataset"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps every response body. Chart data carries whole files.
const maxResponseSize = 32 * 1024 * 1024 // 32MB

// Client is the vizbench HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// NewWithAPIKey creates a client that sends apiKey as a bearer token on
// every request.
func NewWithAPIKey(baseURL, apiKey string) *Client {
	c := New(baseURL)
	c.apiKey = apiKey
	return c
}

// SetTimeout changes the per-request timeout. Zero disables it.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FileMetadata describes an uploaded file's shape.
type FileMetadata struct {
	NumRows int               `json:"num_rows"`
	Columns []string          `json:"columns"`
	Dtypes  map[string]string `json:"dtypes,omitempty"`
}

// File is one entry of the file listing.
type File struct {
	ID         int64        `json:"id"`
	Filename   string       `json:"filename"`
	UploadTime string       `json:"upload_time"`
	Metadata   FileMetadata `json:"file_metadata"`
}

// UploadedAt parses UploadTime. The backend emits HTTP dates; RFC 3339 is
// accepted too.
func (f File) UploadedAt() (time.Time, bool) {
	if f.UploadTime == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123, time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, f.UploadTime); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// UploadResponse is the response from POST /files/upload.
type UploadResponse struct {
	Message  string       `json:"message,omitempty"`
	FileID   int64        `json:"file_id"`
	Filename string       `json:"filename,omitempty"`
	Metadata FileMetadata `json:"file_metadata"`
}

// Upload sends a file to the backend as multipart form data. The server
// picks a unique stored name; when it does not echo one back, Filename is
// set to the local base name.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var resp UploadResponse
	if err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/files/upload",
		contentType: mw.FormDataContentType(),
		body:        &body,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Filename == "" {
		resp.Filename = filepath.Base(filename)
	}
	return &resp, nil
}

// ListFiles returns the files uploaded by the current user.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	if err := c.get(ctx, "/files/list", &files); err != nil {
		return nil, err
	}
	if files == nil {
		files = []File{}
	}
	return files, nil
}

// DeleteFileResponse is the response from DELETE /files/delete/{id}.
type DeleteFileResponse struct {
	Message string `json:"message"`
}

// DeleteFile removes a file and its stored content.
func (c *Client) DeleteFile(ctx context.Context, fileID int64) (*DeleteFileResponse, error) {
	var resp DeleteFileResponse
	if err := c.delete(ctx, fmt.Sprintf("/files/delete/%d", fileID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SuggestResponse is the response from GET /charts/suggest/{id}.
// Suggestions are kept raw; the charts package decides which it can draw.
type SuggestResponse struct {
	Suggestions []json.RawMessage `json:"suggestions"`
	Columns     []string          `json:"columns,omitempty"`
}

// SuggestCharts returns the backend's chart suggestions for a file.
func (c *Client) SuggestCharts(ctx context.Context, fileID int64) (*SuggestResponse, error) {
	var resp SuggestResponse
	if err := c.get(ctx, fmt.Sprintf("/charts/suggest/%d", fileID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChartData returns the file's raw columns.
func (c *Client) ChartData(ctx context.Context, fileID int64) (*dataset.Dataset, error) {
	d := dataset.Empty()
	if err := c.get(ctx, fmt.Sprintf("/charts/data/%d", fileID), d); err != nil {
		return nil, err
	}
	return d, nil
}

// SummaryResponse is the response from GET /ai/summary/{id}.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// Summary returns the AI-written markdown summary of a file.
func (c *Client) Summary(ctx context.Context, fileID int64) (*SummaryResponse, error) {
	var resp SummaryResponse
	if err := c.get(ctx, fmt.Sprintf("/ai/summary/%d", fileID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChatTurn is one message of the chat history sent to the backend.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for POST /ai/chat.
type ChatRequest struct {
	FileID   int64      `json:"file_id"`
	Messages []ChatTurn `json:"messages"`
}

// ChatResponse is the response from POST /ai/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat sends the conversation so far and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.post(ctx, "/ai/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Error represents an HTTP error response.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Message returns the backend's {"error": "..."} text when present.
func (e *Error) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return ""
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        bytes.NewReader(payload),
	}, respBody)
}

func (c *Client) get(ctx context.Context, path string, respBody any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path}, respBody)
}

func (c *Client) delete(ctx context.Context, path string, respBody any) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path}, respBody)
}

// request is one call against the backend API.
type request struct {
	method      string
	path        string
	contentType string
	body        io.Reader
}

// do sends r and decodes a 2xx JSON body into respBody. Other statuses return
// *Error carrying the raw body.
func (c *Client) do(ctx context.Context, r request, respBody any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := readLimited(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	if resp.StatusCode/100 != 2 {
		return &Error{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decoding %s response: %w", r.path, err)
	}
	return nil
}

// readLimited reads at most maxResponseSize bytes. A body of exactly
// maxResponseSize is accepted; one byte more is an error.
func readLimited(body io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(raw) > maxResponseSize {
		return nil, fmt.Errorf("response larger than %d bytes", maxResponseSize)
	}
	return raw, nil
}
