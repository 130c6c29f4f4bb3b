package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin HTTP client for the daemon API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a client for the daemon at baseURL. A bare
// host:port is promoted to http.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed != "" && !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

// Jobs lists job registry records, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]JobView, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var payload JobListResponse
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// Job fetches one job record by its canonical id.
func (c *Client) Job(ctx context.Context, jobID string) (JobView, error) {
	var payload JobResponse
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID), &payload)
	return payload.Job, err
}

// Download asks the daemon to fetch media for a URL.
func (c *Client) Download(ctx context.Context, sourceURL string) (DownloadResponse, error) {
	var payload DownloadResponse
	err := c.post(ctx, "/api/v1/download", DownloadRequest{URL: sourceURL}, &payload)
	return payload, err
}

// Transcribe asks the daemon for a transcript of fetched media.
func (c *Client) Transcribe(ctx context.Context, videoID string) (TranscribeResponse, error) {
	var payload TranscribeResponse
	err := c.post(ctx, "/api/v1/transcribe", TranscribeRequest{VideoID: videoID}, &payload)
	return payload, err
}

// Generate asks the daemon for markdown notes from a transcript.
func (c *Client) Generate(ctx context.Context, transcriptID, modelType string) (GenerateResponse, error) {
	var payload GenerateResponse
	err := c.post(ctx, "/api/v1/generate", GenerateRequest{TranscriptID: transcriptID, ModelType: modelType}, &payload)
	return payload, err
}

// Upload stores a media payload and returns its file id.
func (c *Client) Upload(ctx context.Context, media io.Reader) (UploadResponse, error) {
	var payload UploadResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", media)
	if err != nil {
		return payload, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	err = c.do(req, &payload)
	return payload, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
