// Package transport defines the interface for pluggable chat transports.
//
// Telegram is the production transport; the HTTP transport replays the same
// pipeline over REST for local testing. The dispatcher only works with the
// Transport and Gateway contracts and never sees a transport's wire types.
package transport

import (
	"context"

	"github.com/nadzzz/copilot/internal/message"
)

// Gateway is the outbound half of a chat platform: file retrieval and
// message delivery.
type Gateway interface {
	// GetFile resolves a platform file id to a downloadable path.
	GetFile(ctx context.Context, fileID string) (string, error)

	// DownloadFile fetches the bytes behind a path returned by GetFile.
	DownloadFile(ctx context.Context, path string) ([]byte, error)

	// SendText delivers a text message to a chat.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendVoice delivers an OGG/Opus voice message with an optional caption.
	SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error
}

// Handler processes one inbound message. Replies go through gw.
type Handler func(ctx context.Context, gw Gateway, msg *message.Inbound) error

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "telegram", "http").
	Name() string

	// Listen starts accepting incoming messages and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport.
	Close() error
}

// Download resolves fileID and fetches its bytes in one step.
func Download(ctx context.Context, gw Gateway, fileID string) ([]byte, error) {
	path, err := gw.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return gw.DownloadFile(ctx, path)
}
