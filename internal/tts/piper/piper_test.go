package piper

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/tts"
)

// fakeWyoming accepts one connection, records the synthesize event and
// replies with the given events.
func fakeWyoming(t *testing.T, reply func(conn net.Conn)) (string, <-chan *wyomingEvent) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan *wyomingEvent, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		got <- evt
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func TestSynthesize(t *testing.T) {
	addr, got := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, []byte{1, 2})
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, []byte{3, 4})
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr, Voice: "ru_RU-ruslan-medium"})
	res, err := s.Synthesize(context.Background(), "Привет", tts.SynthesizeOpts{})
	require.NoError(t, err)
	assert.True(t, res.IsWAV())
	assert.Equal(t, "audio/wav", res.ContentType)
	assert.Equal(t, []byte{1, 2, 3, 4}, res.Audio[44:])

	evt := <-got
	assert.Equal(t, "synthesize", evt.Type)
	assert.Equal(t, "Привет", evt.Data["text"])
	assert.Equal(t, map[string]any{"name": "ru_RU-ruslan-medium"}, evt.Data["voice"])
}

func TestSynthesize_ServerError(t *testing.T) {
	addr, _ := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	_, err := New(config.PiperConfig{Endpoint: addr}).Synthesize(context.Background(), "x", tts.SynthesizeOpts{Voice: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice not found")
}

func TestSynthesize_Validation(t *testing.T) {
	_, err := New(config.PiperConfig{Endpoint: "127.0.0.1:1"}).Synthesize(context.Background(), "", tts.SynthesizeOpts{})
	assert.Error(t, err)

	_, err = New(config.PiperConfig{}).Synthesize(context.Background(), "text", tts.SynthesizeOpts{})
	assert.Error(t, err)
}

func TestEventRoundTripWithPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, wyomingEvent{Type: "audio-chunk", Data: map[string]any{"rate": 22050}}, []byte("pcm")))

	evt, payload, err := readEvent(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "audio-chunk", evt.Type)
	assert.Equal(t, float64(22050), evt.Data["rate"])
	assert.Equal(t, []byte("pcm"), payload)
}

func TestReadEvent_BadHeader(t *testing.T) {
	_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString("garbage\n")))
	assert.Error(t, err)
}
