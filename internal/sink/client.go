package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// Client delivers converted documents to a downstream store over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DocumentPayload is the body for PUT /documents/{id}.
type DocumentPayload struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Format   string            `json:"format"`
	Metadata docmodel.Metadata `json:"metadata"`
	Tree     json.RawMessage   `json:"tree"`
	Markdown string            `json:"markdown,omitempty"`
	Issues   []DeliveredIssue  `json:"issues,omitempty"`
}

// DeliveredIssue mirrors a validation finding in the delivery payload.
type DeliveredIssue struct {
	Check  string `json:"check"`
	Ref    string `json:"ref,omitempty"`
	Detail string `json:"detail"`
}

// TransientError marks failures the caller may retry: network errors
// and 5xx responses from the store.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PutDocument stores a converted document under its ID.
func (c *Client) PutDocument(ctx context.Context, payload DocumentPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/documents/"+payload.ID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("put document: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("put document %s: status %d: %s", payload.ID, resp.StatusCode, string(respBody))
	if resp.StatusCode >= 500 {
		return &TransientError{Err: err}
	}
	return err
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
