// Package search defines the interface for web-search answer services.
package search

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned when the provider replies with something
// that does not contain an answer.
var ErrMalformedResponse = errors.New("malformed search response")

// Provider answers a free-form query using live web data.
type Provider interface {
	// Name returns the backend identifier (e.g., "perplexity").
	Name() string

	// Search sends query and returns the provider's answer text.
	Search(ctx context.Context, query string) (string, error)
}
