// Package openai implements the ai.Provider and tts.Synthesizer interfaces
// using OpenAI's APIs.
//
// It uses the Chat Completions API for text and vision prompts, the Audio
// Transcription API (Whisper) for speech-to-text and the Speech API for
// voice replies. Every call is a single request: the client is built with
// retries disabled.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nadzzz/copilot/internal/ai"
	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/tts"
)

// Provider uses OpenAI APIs for completion, transcription and speech.
type Provider struct {
	client             openai.Client
	completionModel    string
	transcriptionModel string
	speechModel        string
	voice              string
}

var (
	_ ai.Provider     = (*Provider)(nil)
	_ tts.Synthesizer = (*Provider)(nil)
)

// New creates a new OpenAI provider from config. httpClient may be nil.
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Provider{
		client:             openai.NewClient(opts...),
		completionModel:    cfg.CompletionModel,
		transcriptionModel: cfg.TranscriptionModel,
		speechModel:        cfg.SpeechModel,
		voice:              cfg.Voice,
	}
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return "openai" }

// Complete sends prompt as the only user message and returns the trimmed reply.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.chat(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

// CompleteMultimodal sends the prompt followed by the image as a second user
// message and returns the trimmed reply.
func (p *Provider) CompleteMultimodal(ctx context.Context, prompt, imageURL string) (string, error) {
	return p.chat(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
		}),
	})
}

func (p *Provider) chat(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.completionModel),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("chat completion complete", "model", p.completionModel, "text_length", len(content))
	return content, nil
}

// Transcribe sends audio to the OpenAI Transcription API.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, contentType string, opts ai.TranscribeOpts) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "voice"+extFromContentType(contentType), contentType),
		Model: openai.AudioModel(p.transcriptionModel),
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}

	res, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	slog.Debug("transcription complete", "model", p.transcriptionModel, "text_length", len(text))
	return text, nil
}

// Synthesize turns text into an OGG/Opus clip suitable for a voice message.
func (p *Provider) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := p.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}

	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(p.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatOpus,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}

	slog.Debug("speech synthesis complete", "voice", voice, "audio_bytes", len(audio))
	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: "audio/ogg",
	}, nil
}

// Close is a no-op for the OpenAI provider.
func (p *Provider) Close() error { return nil }

func extFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}
