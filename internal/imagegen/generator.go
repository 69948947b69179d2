package imagegen

import (
	"context"
	"time"
)

// Artifact is a generated image reference.
type Artifact struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Generator produces an image for a filled-in sentence.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Artifact, error)
}

// New returns the HTTP backend when apiURL is set, the offline
// placeholder otherwise.
func New(apiURL, apiKey string, timeout time.Duration) Generator {
	if apiURL == "" {
		return NewPlaceholder()
	}
	return NewClient(apiURL, apiKey, timeout)
}
