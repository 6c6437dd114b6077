// Package dispatch implements the core message routing engine.
//
// The dispatcher receives messages from transports, picks a handler by
// modality, classifies the resulting text into a reminder, search or chat
// intent, asks the matching upstream service for an answer and renders it
// back as text or voice through the transport's gateway.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/copilot/internal/ai"
	"github.com/nadzzz/copilot/internal/audio"
	"github.com/nadzzz/copilot/internal/document"
	"github.com/nadzzz/copilot/internal/intent"
	"github.com/nadzzz/copilot/internal/message"
	"github.com/nadzzz/copilot/internal/metrics"
	"github.com/nadzzz/copilot/internal/reminder"
	"github.com/nadzzz/copilot/internal/search"
	"github.com/nadzzz/copilot/internal/transport"
	"github.com/nadzzz/copilot/internal/tts"
)

// ErrNoText is returned when a message (or its transcript) has no text to act on.
var ErrNoText = errors.New("message has no text")

// User-visible strings.
const (
	searchFallback  = "Не удалось получить ответ."
	nonPDFReply     = "Пожалуйста, отправь PDF-документ."
	pdfPrompt       = "Сделай краткое саммари этого PDF-файла:\n\n"
	photoPrompt     = "Что изображено на картинке?"
	voiceCaption    = "🔊 Ответ голосом"
	reminderSetText = "✅ Напоминание установлено: "

	welcomeText = "👋 Привет! Я — Empathy Copilot.\n\n" +
		"Можешь отправить:\n" +
		"📄 текст — я помогу найти ответ\n" +
		"🎙 голос — отвечу голосом (и пришлю текстом)\n" +
		"📎 PDF или 🖼️ изображение — извлеку и объясню содержание\n\n" +
		"🔍 Добавь в текст или голосовое слова 'поиск', 'новости' или 'последняя информация' — найду данные в интернете.\n" +
		"⏰ Скажи или напиши 'Напомни...' — установлю напоминание.\n" +
		"💎 Работаю c GPT и Perplexity без VPN."
)

// DefaultMaxChars is the PDF text budget used when Deps.MaxChars is unset.
const DefaultMaxChars = 4000

// DefaultLanguage is the transcription language used when Deps.Language is unset.
const DefaultLanguage = "ru"

// failurePolicy says what Answer does when the upstream for an intent fails.
type failurePolicy struct {
	mask     bool   // reply with fallback instead of returning the error
	fallback string // user-visible text used when mask is set
}

// failurePolicies is keyed by intent kind. Search failures are replaced by a
// fixed reply; chat failures propagate to the transport.
var failurePolicies = map[message.IntentKind]failurePolicy{
	message.IntentSearch: {mask: true, fallback: searchFallback},
	message.IntentChat:   {mask: false},
}

// Deps are the collaborators a Dispatcher routes to.
type Deps struct {
	AI         ai.Provider
	Search     search.Provider
	Speech     tts.Synthesizer
	Transcoder audio.Transcoder
	Documents  document.Extractor
	Classifier *intent.Classifier
	Reminders  *reminder.Store
	Metrics    *metrics.Metrics
	MaxChars   int
	Language   string
}

// Dispatcher is the central routing engine.
type Dispatcher struct {
	ai         ai.Provider
	search     search.Provider
	speech     tts.Synthesizer
	transcoder audio.Transcoder
	documents  document.Extractor
	classifier *intent.Classifier
	reminders  *reminder.Store
	metrics    *metrics.Metrics
	maxChars   int
	language   string
	now        func() time.Time
}

// New creates a Dispatcher. A nil Classifier or Reminders gets a fresh default.
func New(deps Deps) *Dispatcher {
	if deps.Classifier == nil {
		deps.Classifier = intent.New(nil)
	}
	if deps.Reminders == nil {
		deps.Reminders = reminder.NewStore()
	}
	if deps.MaxChars <= 0 {
		deps.MaxChars = DefaultMaxChars
	}
	if deps.Language == "" {
		deps.Language = DefaultLanguage
	}
	return &Dispatcher{
		ai:         deps.AI,
		search:     deps.Search,
		speech:     deps.Speech,
		transcoder: deps.Transcoder,
		documents:  deps.Documents,
		classifier: deps.Classifier,
		reminders:  deps.Reminders,
		metrics:    deps.Metrics,
		maxChars:   deps.MaxChars,
		language:   deps.Language,
		now:        time.Now,
	}
}

// Reminders returns the store reminders are added to.
func (d *Dispatcher) Reminders() *reminder.Store { return d.reminders }

// Handle processes a single message through the full pipeline.
// This function is passed as the transport.Handler to each transport.
func (d *Dispatcher) Handle(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	start := time.Now()
	logger := slog.With("message_id", msg.ID, "owner_id", msg.OwnerID, "modality", msg.Modality)
	logger.Info("dispatch started")
	d.metrics.ObserveMessage(string(msg.Modality))

	var err error
	switch msg.Modality {
	case message.ModalityText:
		err = d.HandleText(ctx, gw, msg)
	case message.ModalityVoice:
		err = d.HandleVoice(ctx, gw, msg)
	case message.ModalityDocument:
		err = d.HandleDocument(ctx, gw, msg)
	case message.ModalityPhoto:
		err = d.HandlePhoto(ctx, gw, msg)
	case message.ModalityCommand:
		err = d.HandleCommand(ctx, gw, msg)
	default:
		err = fmt.Errorf("unsupported modality %q", msg.Modality)
	}

	d.metrics.ObserveHandler(string(msg.Modality), err, time.Since(start).Seconds())
	if err != nil {
		logger.Error("dispatch failed", "duration", time.Since(start), "error", err)
		return err
	}
	logger.Info("dispatch complete", "duration", time.Since(start))
	return nil
}

// HandleText answers a text message. Voice replies are opt-in.
func (d *Dispatcher) HandleText(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	return d.respond(ctx, gw, msg, msg.Text, message.ModalityText)
}

// HandleVoice transcribes a voice clip and answers the transcript.
// Voice replies are opt-out.
func (d *Dispatcher) HandleVoice(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	clip, err := transport.Download(ctx, gw, msg.FileID)
	if err != nil {
		return fmt.Errorf("downloading voice: %w", err)
	}

	wav, err := d.transcoder.ToWAV(ctx, clip, ".ogg")
	if err != nil {
		return fmt.Errorf("transcoding voice: %w", err)
	}

	transcript, err := d.ai.Transcribe(ctx, wav, "audio/wav", ai.TranscribeOpts{Language: d.language})
	if err != nil {
		return fmt.Errorf("transcribing voice: %w", err)
	}
	slog.Debug("voice transcribed", "message_id", msg.ID, "text_length", len(transcript))

	return d.respond(ctx, gw, msg, transcript, message.ModalityVoice)
}

// HandleDocument summarises a PDF. Anything else gets a corrective reply
// without being downloaded.
func (d *Dispatcher) HandleDocument(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	if !strings.HasSuffix(strings.ToLower(msg.FileName), ".pdf") {
		return gw.SendText(ctx, msg.ChatID, nonPDFReply)
	}

	data, err := transport.Download(ctx, gw, msg.FileID)
	if err != nil {
		return fmt.Errorf("downloading document: %w", err)
	}

	text, err := d.documents.ExtractText(ctx, data)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", msg.FileName, err)
	}

	summary, err := d.ai.Complete(ctx, pdfPrompt+document.Truncate(text, d.maxChars))
	if err != nil {
		return fmt.Errorf("summarising document: %w", err)
	}
	return gw.SendText(ctx, msg.ChatID, summary)
}

// HandlePhoto describes an image using a multimodal completion.
func (d *Dispatcher) HandlePhoto(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	data, err := transport.Download(ctx, gw, msg.FileID)
	if err != nil {
		return fmt.Errorf("downloading photo: %w", err)
	}

	description, err := d.ai.CompleteMultimodal(ctx, photoPrompt, imageDataURL(data))
	if err != nil {
		return fmt.Errorf("describing photo: %w", err)
	}
	return gw.SendText(ctx, msg.ChatID, description)
}

// HandleCommand replies to /start with the welcome text. Other commands are
// treated as plain text.
func (d *Dispatcher) HandleCommand(ctx context.Context, gw transport.Gateway, msg *message.Inbound) error {
	if commandName(msg.Text) == "start" {
		return gw.SendText(ctx, msg.ChatID, welcomeText)
	}
	return d.HandleText(ctx, gw, msg)
}

// respond classifies text and either stores a reminder or answers it.
func (d *Dispatcher) respond(ctx context.Context, gw transport.Gateway, msg *message.Inbound, text string, modality message.Modality) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoText
	}

	in := d.classifier.Classify(text, d.now())
	d.metrics.ObserveIntent(string(in.Kind))
	slog.Debug("intent classified", "message_id", msg.ID, "intent", in.Kind)

	if in.Kind == message.IntentReminder {
		r := d.reminders.Add(msg.OwnerID, in.DueAt, in.Text)
		d.metrics.ReminderAdded()
		d.metrics.SetPending(d.reminders.Len())
		slog.Info("reminder scheduled", "message_id", msg.ID, "reminder_id", r.ID, "due_at", r.DueAt)
		return gw.SendText(ctx, msg.ChatID, reminderSetText+r.Text)
	}

	reply, err := d.Answer(ctx, in)
	if err != nil {
		return err
	}
	return d.Render(ctx, gw, msg.ChatID, message.Answer{
		Text:           reply,
		VoicePreferred: intent.VoicePreferred(in.Text, modality),
	})
}

// Answer asks the upstream service for a reply to a search or chat intent.
func (d *Dispatcher) Answer(ctx context.Context, in message.Intent) (string, error) {
	var (
		text     string
		err      error
		provider string
	)
	switch in.Kind {
	case message.IntentSearch:
		provider = d.search.Name()
		text, err = d.search.Search(ctx, in.Text)
	case message.IntentChat:
		provider = d.ai.Name()
		text, err = d.ai.Complete(ctx, in.Text)
	default:
		return "", fmt.Errorf("no answer for intent %q", in.Kind)
	}

	if err == nil {
		return strings.TrimSpace(text), nil
	}

	policy := failurePolicies[in.Kind]
	if !policy.mask {
		return "", fmt.Errorf("%s %s: %w", provider, in.Kind, err)
	}
	slog.Warn("upstream failure masked", "provider", provider, "intent", in.Kind, "error", err)
	d.metrics.ObserveMaskedFailure(provider)
	return policy.fallback, nil
}

// Render delivers an answer as text, or as voice followed by the same text.
func (d *Dispatcher) Render(ctx context.Context, gw transport.Gateway, chatID int64, answer message.Answer) error {
	if !answer.VoicePreferred {
		return gw.SendText(ctx, chatID, answer.Text)
	}

	res, err := d.speech.Synthesize(ctx, answer.Text, tts.SynthesizeOpts{})
	if err != nil {
		return fmt.Errorf("synthesizing answer: %w", err)
	}

	voice := res.Audio
	if res.IsWAV() {
		if voice, err = d.transcoder.ToVoice(ctx, res.Audio); err != nil {
			return fmt.Errorf("encoding voice answer: %w", err)
		}
	}

	if err := gw.SendVoice(ctx, chatID, voice, voiceCaption); err != nil {
		return err
	}
	return gw.SendText(ctx, chatID, answer.Text)
}
