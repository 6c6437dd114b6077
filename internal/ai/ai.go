// Package ai defines the interface for the language-model provider.
//
// A provider answers chat prompts, describes images, transcribes speech and
// synthesizes speech. Copilot ships with one backend (OpenAI), which also
// works against any OpenAI-compatible server through its base URL.
package ai

import "context"

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "ru", "en") to guide transcription.
	Language string
}

// Provider is the interface for completion, transcription and speech synthesis.
type Provider interface {
	// Name returns the backend identifier (e.g., "openai").
	Name() string

	// Complete sends prompt as the sole user message and returns the reply.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteMultimodal asks about an image. imageURL may be a data: URL.
	CompleteMultimodal(ctx context.Context, prompt, imageURL string) (string, error)

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}
