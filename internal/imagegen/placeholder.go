package imagegen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Placeholder is the offline backend. It derives a stable stock-image
// URL from the prompt so the round loop works without an API key.
type Placeholder struct{}

func NewPlaceholder() *Placeholder { return &Placeholder{} }

func (p *Placeholder) Generate(ctx context.Context, prompt string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	sum := sha256.Sum256([]byte(prompt))
	seed := hex.EncodeToString(sum[:8])
	return Artifact{
		ID:        uuid.NewString(),
		URL:       fmt.Sprintf("https://picsum.photos/seed/%s/512/512", seed),
		Prompt:    prompt,
		CreatedAt: time.Now(),
	}, nil
}
