package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client calls an external text-to-image HTTP API. The endpoint takes
// {"prompt": ...} and answers {"id": ..., "url": ...}.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (Artifact, error) {
	payload, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return Artifact{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Artifact{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Artifact{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Artifact{}, fmt.Errorf("image API error: %s - %s", resp.Status, string(body))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Artifact{}, err
	}
	if out.URL == "" {
		return Artifact{}, fmt.Errorf("image API returned no url")
	}

	id := out.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Artifact{ID: id, URL: out.URL, Prompt: prompt, CreatedAt: time.Now()}, nil
}
