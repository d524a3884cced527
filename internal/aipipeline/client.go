// Package aipipeline drives the AI Batch Pipeline: building batch
// requests, submitting them to the provider, polling for completion,
// and reconciling results back onto tasks and blogs.
package aipipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// BatchStatus mirrors the provider's batch lifecycle states relevant
// to reconciliation. Other provider-side states (validating,
// finalizing, cancelling, cancelled) pass through untouched and are
// simply polled again next tick.
type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchExpired    BatchStatus = "expired"
)

// BatchHandle identifies a submitted batch and its current state.
type BatchHandle struct {
	ID               string
	Status           BatchStatus
	OutputFileID     string
	RequestCounts    BatchRequestCounts
	CreatedAt        time.Time
}

type BatchRequestCounts struct {
	Total     int
	Completed int
	Failed    int
}

// ResultLine is one decoded JSONL line from the batch output file.
// CustomID is the blog id the request was built for.
type ResultLine struct {
	CustomID   string
	StatusCode int
	Refusal    string
	Content    string
	Error      string
}

// Provider is the AI Batch Pipeline's dependency on an external batch
// API. OpenAIBatchClient is the reference implementation; any
// OpenAI-compatible batch endpoint can satisfy this interface.
type Provider interface {
	UploadBatchFile(ctx context.Context, jsonl []byte) (fileID string, err error)
	CreateBatch(ctx context.Context, inputFileID string) (BatchHandle, error)
	RetrieveBatch(ctx context.Context, batchID string) (BatchHandle, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// OpenAIBatchClient talks to the provider's /v1/files and /v1/batches
// endpoints, retrying requests that fail in transport or answer 429 or
// 5xx.
type OpenAIBatchClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func NewOpenAIBatchClient(apiKey, baseURL string, timeout time.Duration, maxRetries int, httpClient *http.Client) *OpenAIBatchClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIBatchClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: httpClient,
	}
}

var _ Provider = (*OpenAIBatchClient)(nil)

func (c *OpenAIBatchClient) UploadBatchFile(ctx context.Context, jsonl []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", "batch_input.jsonl")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(jsonl); err != nil {
		return "", fmt.Errorf("write jsonl body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/files", writer.FormDataContentType(), &body, &out); err != nil {
		return "", fmt.Errorf("upload batch file: %w", err)
	}
	return out.ID, nil
}

func (c *OpenAIBatchClient) CreateBatch(ctx context.Context, inputFileID string) (BatchHandle, error) {
	payload, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": "24h",
	})
	if err != nil {
		return BatchHandle{}, fmt.Errorf("marshal batch create payload: %w", err)
	}

	var raw batchWireHandle
	if err := c.do(ctx, http.MethodPost, "/batches", "application/json", bytes.NewReader(payload), &raw); err != nil {
		return BatchHandle{}, fmt.Errorf("create batch: %w", err)
	}
	return raw.toHandle(), nil
}

func (c *OpenAIBatchClient) RetrieveBatch(ctx context.Context, batchID string) (BatchHandle, error) {
	var raw batchWireHandle
	if err := c.do(ctx, http.MethodGet, "/batches/"+batchID, "", nil, &raw); err != nil {
		return BatchHandle{}, fmt.Errorf("retrieve batch %s: %w", batchID, err)
	}
	return raw.toHandle(), nil
}

func (c *OpenAIBatchClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.baseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	return body, nil
}

func (c *OpenAIBatchClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	var lastErr error
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("buffer request body: %w", err)
		}
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)

		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(timeoutCtx, method, c.baseURL+path, reader)
		if err != nil {
			cancel()
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(350*(attempt+1)) * time.Millisecond):
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("batch provider request exhausted retries")
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type batchWireHandle struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	OutputFileID   string `json:"output_file_id"`
	CreatedAt      int64  `json:"created_at"`
	RequestCounts  struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"request_counts"`
}

func (h batchWireHandle) toHandle() BatchHandle {
	return BatchHandle{
		ID:           h.ID,
		Status:       BatchStatus(h.Status),
		OutputFileID: h.OutputFileID,
		CreatedAt:    time.Unix(h.CreatedAt, 0).UTC(),
		RequestCounts: BatchRequestCounts{
			Total:     h.RequestCounts.Total,
			Completed: h.RequestCounts.Completed,
			Failed:    h.RequestCounts.Failed,
		},
	}
}
