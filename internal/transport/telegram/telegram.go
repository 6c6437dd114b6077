// Package telegram implements the Telegram Bot API transport using long polling.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/message"
	"github.com/nadzzz/copilot/internal/transport"
)

// maxDownload caps a single file download (Telegram bots cannot fetch more than 20 MB).
const maxDownload = 20 << 20

// Transport implements transport.Transport over the Telegram Bot API.
type Transport struct {
	bot            *telego.Bot
	client         *http.Client
	pollingTimeout int

	mu     sync.Mutex
	stop   context.CancelFunc
	closed bool
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Gateway   = (*Transport)(nil)
)

// New creates a Telegram transport. httpClient is used for both Bot API
// calls and file downloads; nil uses http.DefaultClient.
func New(cfg config.TelegramConfig, httpClient *http.Client) (*Transport, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	bot, err := telego.NewBot(cfg.Token, telego.WithHTTPClient(httpClient), telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	timeout := cfg.PollingTimeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Transport{bot: bot, client: httpClient, pollingTimeout: timeout}, nil
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "telegram" }

// Listen long-polls for updates and passes every supported message to the
// handler. Each message is handled in its own goroutine.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	ctx = t.watch(ctx)

	updates, err := t.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: t.pollingTimeout,
	})
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}

	bh, err := th.NewBotHandler(t.bot, updates)
	if err != nil {
		return fmt.Errorf("creating bot handler: %w", err)
	}

	bh.HandleMessage(func(hctx *th.Context, m telego.Message) error {
		return t.dispatch(hctx, handler, m)
	}, th.AnyMessage())

	slog.Info("telegram transport listening", "polling_timeout", t.pollingTimeout)

	go bh.Start()
	<-ctx.Done()
	bh.Stop()

	slog.Info("telegram transport stopped")
	return nil
}

func (t *Transport) dispatch(ctx context.Context, handler transport.Handler, m telego.Message) error {
	msg, ok := toInbound(m)
	if !ok {
		slog.Debug("ignoring unsupported telegram message", "chat_id", m.Chat.ID, "message_id", m.MessageID)
		return nil
	}

	log := slog.With("msg_id", msg.ID, "owner_id", msg.OwnerID, "modality", msg.Modality)
	log.Info("telegram message received")

	if err := handler(ctx, t, msg); err != nil {
		log.Error("handling telegram message failed", "error", err)
	}
	return nil
}

// toInbound converts a Telegram message into the transport-neutral form.
// It reports false for messages the bot does not handle (stickers, locations...).
func toInbound(m telego.Message) (*message.Inbound, bool) {
	msg := &message.Inbound{
		ID:         uuid.New().String(),
		ChatID:     m.Chat.ID,
		OwnerID:    m.Chat.ID,
		ReceivedAt: time.Unix(m.Date, 0),
	}
	if m.From != nil {
		msg.OwnerID = m.From.ID
	}

	switch {
	case m.Voice != nil:
		msg.Modality = message.ModalityVoice
		msg.FileID = m.Voice.FileID
		msg.MimeType = m.Voice.MimeType
	case m.Document != nil:
		msg.Modality = message.ModalityDocument
		msg.FileID = m.Document.FileID
		msg.FileName = m.Document.FileName
		msg.MimeType = m.Document.MimeType
		msg.Text = m.Caption
	case len(m.Photo) > 0:
		// Sizes are ordered smallest first.
		msg.Modality = message.ModalityPhoto
		msg.FileID = m.Photo[len(m.Photo)-1].FileID
		msg.MimeType = "image/jpeg"
		msg.Text = m.Caption
	case strings.HasPrefix(m.Text, "/"):
		msg.Modality = message.ModalityCommand
		msg.Text = m.Text
	case m.Text != "":
		msg.Modality = message.ModalityText
		msg.Text = m.Text
	default:
		return nil, false
	}
	return msg, true
}

// GetFile resolves a file id to its path on the Telegram file server.
func (t *Transport) GetFile(ctx context.Context, fileID string) (string, error) {
	f, err := t.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("telegram getFile: %w", err)
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("telegram getFile: file %s has no path", fileID)
	}
	return f.FilePath, nil
}

// DownloadFile fetches a file by the path returned from GetFile.
func (t *Transport) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.bot.FileDownloadURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram download: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("telegram download: reading body: %w", err)
	}
	slog.Debug("telegram file downloaded", "path", path, "bytes", len(data))
	return data, nil
}

// SendText sends a plain text message.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// SendVoice sends OGG/Opus audio as a voice message.
func (t *Transport) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error {
	params := tu.Voice(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(audio), "answer.ogg")))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if _, err := t.bot.SendVoice(ctx, params); err != nil {
		return fmt.Errorf("telegram sendVoice: %w", err)
	}
	return nil
}

// Close stops long polling.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.stop != nil {
		t.stop()
	}
	return nil
}

// watch derives the polling context that Close cancels. After Close the
// returned context is already done.
func (t *Transport) watch(ctx context.Context) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	t.stop = cancel
	if t.closed {
		cancel()
	}
	return ctx
}
