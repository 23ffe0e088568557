package generation

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer defines the interface contract for generative text services:
// a system instruction and a prompt in, raw text out.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	ModelName() string
}
