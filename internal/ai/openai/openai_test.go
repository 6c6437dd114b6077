package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/copilot/internal/ai"
	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/tts"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.OpenAIConfig{
		APIKey:             "sk-test",
		BaseURL:            srv.URL + "/",
		CompletionModel:    "gpt-4o",
		TranscriptionModel: "whisper-1",
		SpeechModel:        "tts-1",
		Voice:              "nova",
	}, srv.Client())
}

const chatReply = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Привет!  "}}]}`

func TestComplete(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply)
	})

	got, err := p.Complete(context.Background(), "как дела?")
	require.NoError(t, err)
	assert.Equal(t, "Привет!", got)

	assert.Equal(t, "gpt-4o", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "как дела?", first["content"])
}

func TestCompleteMultimodal(t *testing.T) {
	var raw string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply)
	})

	got, err := p.CompleteMultimodal(context.Background(), "Что изображено на картинке?", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "Привет!", got)
	assert.Contains(t, raw, "Что изображено на картинке?")
	assert.Contains(t, raw, `"image_url"`)
	assert.Contains(t, raw, "data:image/png;base64,AAAA")
}

func TestComplete_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	_, err := p.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion")
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	})

	_, err := p.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestTranscribe(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ru", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.True(t, strings.HasSuffix(hdr.Filename, ".wav"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFFdata", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" ответ текстом привет "}`)
	})

	got, err := p.Transcribe(context.Background(), []byte("RIFFdata"), "audio/wav", ai.TranscribeOpts{Language: "ru"})
	require.NoError(t, err)
	assert.Equal(t, "ответ текстом привет", got)
}

func TestSynthesize(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-fake"))
	})

	res, err := p.Synthesize(context.Background(), "Привет", tts.SynthesizeOpts{})
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS-fake"), res.Audio)
	assert.Equal(t, "audio/ogg", res.ContentType)
	assert.False(t, res.IsWAV())

	assert.Equal(t, "tts-1", body["model"])
	assert.Equal(t, "nova", body["voice"])
	assert.Equal(t, "opus", body["response_format"])
	assert.Equal(t, "Привет", body["input"])
}

func TestSynthesize_EmptyText(t *testing.T) {
	p := New(config.OpenAIConfig{APIKey: "x"}, nil)
	_, err := p.Synthesize(context.Background(), "", tts.SynthesizeOpts{})
	assert.Error(t, err)
}

func TestExtFromContentType(t *testing.T) {
	assert.Equal(t, ".ogg", extFromContentType("audio/ogg"))
	assert.Equal(t, ".wav", extFromContentType("audio/wav"))
	assert.Equal(t, ".mp3", extFromContentType("audio/mpeg"))
	assert.Equal(t, ".wav", extFromContentType(""))
}
