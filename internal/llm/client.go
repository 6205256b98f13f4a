// Package llm adapts external model providers to the narrow gateway the
// pipeline consumes: one blocking completion call and one incremental one.
package llm

import "context"

// Client is the model gateway capability. Implementations must be safe to
// call concurrently from independent turns.
type Client interface {
	// Complete sends a prompt with a system message and returns the full
	// completion text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteStream sends the same request and delivers the completion as
	// ordered text fragments. onDelta returning an error stops the stream
	// and is returned unchanged.
	CompleteStream(ctx context.Context, systemPrompt, userPrompt string, onDelta func(delta string) error) error

	// Model returns the underlying model identifier.
	Model() string
}
