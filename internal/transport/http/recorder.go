package http

import (
	"context"
	"fmt"
	"sync"

	"github.com/nadzzz/copilot/internal/message"
	"github.com/nadzzz/copilot/internal/transport"
)

// inlineFileID marks an attachment carried in the request body.
const inlineFileID = "inline"

// recorder is a transport.Gateway that serves the request's inline
// attachment and records every outbound message instead of sending it.
type recorder struct {
	data []byte

	mu   sync.Mutex
	sent []message.Outbound
}

var _ transport.Gateway = (*recorder)(nil)

func newRecorder(data []byte) *recorder {
	return &recorder{data: data}
}

func (g *recorder) GetFile(_ context.Context, fileID string) (string, error) {
	if fileID != inlineFileID || len(g.data) == 0 {
		return "", fmt.Errorf("unknown file %q", fileID)
	}
	return inlineFileID, nil
}

func (g *recorder) DownloadFile(_ context.Context, path string) ([]byte, error) {
	if path != inlineFileID {
		return nil, fmt.Errorf("unknown path %q", path)
	}
	return g.data, nil
}

func (g *recorder) SendText(_ context.Context, chatID int64, text string) error {
	g.record(message.Outbound{ChatID: chatID, Kind: message.OutboundText, Text: text})
	return nil
}

func (g *recorder) SendVoice(_ context.Context, chatID int64, audio []byte, caption string) error {
	out := message.Outbound{ChatID: chatID, Kind: message.OutboundVoice, Caption: caption}
	out.SetAudioBytes(audio)
	g.record(out)
	return nil
}

func (g *recorder) record(out message.Outbound) {
	g.mu.Lock()
	g.sent = append(g.sent, out)
	g.mu.Unlock()
}

// Outbound returns a copy of everything sent so far.
func (g *recorder) Outbound() []message.Outbound {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]message.Outbound, len(g.sent))
	copy(out, g.sent)
	return out
}
