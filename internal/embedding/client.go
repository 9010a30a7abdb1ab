// Package embedding wraps the text-embedding provider behind a small
// interface. From the turn pipeline's perspective embedding is a pure
// function from text to a fixed-length vector.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the provider is down or rate-limited.
// Callers decide how to degrade; the knowledge retriever falls back to
// text search.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Client produces fixed-dimensionality embeddings.
type Client interface {
	// Embed returns the embedding for text. Text longer than the
	// provider's token ceiling is truncated first.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the provider's fixed output size.
	Dimensions() int
}

// maxInputChars approximates the provider's 8192-token input ceiling at
// roughly four characters per token. Truncation is by character budget,
// not token-accurate; for retrieval queries the tail loss is harmless.
const maxInputChars = 8192 * 4

// Truncate deterministically trims text to the provider's input budget.
func Truncate(text string) string {
	if len(text) <= maxInputChars {
		return text
	}
	return text[:maxInputChars]
}
