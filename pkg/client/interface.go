package client

import (
	"context"
)

// VisionClient sends an image plus a prompt to a vision language model and
// returns its free-text answer
type VisionClient interface {
	Describe(ctx context.Context, model, prompt, imgB64 string) (string, error)
	Ping(ctx context.Context) error
}
