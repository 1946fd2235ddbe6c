package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"askline/internal/constants"
	"askline/pkg/models"
)

// Client calls the external summarization service.
type Client interface {
	Summarize(ctx context.Context, sessionID string, msgs []models.Message) (string, error)
}

type HTTPClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &HTTPClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Summarize(ctx context.Context, sessionID string, msgs []models.Message) (string, error) {
	payload := upstreamRequest{
		SessionID: sessionID,
		Messages:  make([]upstreamMessage, 0, len(msgs)),
	}
	for _, msg := range msgs {
		payload.Messages = append(payload.Messages, upstreamMessage{
			Type:    string(msg.Type),
			Content: msg.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return "", fmt.Errorf("summarizer returned status: %d", resp.StatusCode)
	}

	var result upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode summarizer response: %w", err)
	}

	return result.Summary, nil
}
