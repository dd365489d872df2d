// Package summarizer calls the external text summarization service.
package summarizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/assignhub/marketplace/internal/api/metrics"
)

// maxContentBytes caps what is sent upstream; longer documents are truncated.
const maxContentBytes = 2 << 20

var ErrEmptySummary = errors.New("summarizer returned an empty summary")

type request struct {
	// Text is set for plain text; Document for files identified by FileType.
	Text     string `json:"text,omitempty"`
	Document string `json:"document_base64,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

type response struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Client implements ports.Summarizer over HTTP.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{url: url, apiKey: apiKey, http: &http.Client{Timeout: timeout}}
}

// Summarize sends content to the service. hint is a lowercase file extension,
// or empty for plain text.
func (c *Client) Summarize(ctx context.Context, content []byte, hint string) (summary string, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.SummarizerDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	if len(content) > maxContentBytes {
		content = content[:maxContentBytes]
	}
	req := request{FileType: hint}
	if hint == "" || hint == "txt" {
		req.Text = string(content)
	} else {
		req.Document = base64.StdEncoding.EncodeToString(content)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode summarize request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read summarize response: %w", err)
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode summarize response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("summarize: status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("summarize: status %d", resp.StatusCode)
	}

	summary = strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}
