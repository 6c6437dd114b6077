// Package intent classifies user text into reminder, search or chat requests.
//
// Classification is purely lexical: a fixed set of trigger verbs marks a
// reminder request, a fixed set of trigger words marks a web search, and
// everything else goes to the chat model. Reminder detection takes precedence
// over search detection.
package intent

import (
	"strings"
	"time"

	"github.com/nadzzz/copilot/internal/message"
)

// reminderVerbs are the imperative/future forms of "remind me". Matched as a
// case-insensitive prefix of the trimmed text.
var reminderVerbs = []string{"напомни", "напомню"}

// searchTriggers route a message to the web-search provider.
var searchTriggers = []string{"поиск", "новости", "последняя информация"}

const (
	voiceReplyPhrase = "ответ голосом"
	textReplyPhrase  = "ответ текстом"
)

// voiceDefaults holds the per-modality default for voice replies. Text input
// opts in to voice with voiceReplyPhrase; voice input opts out with
// textReplyPhrase.
var voiceDefaults = map[message.Modality]bool{
	message.ModalityText:  false,
	message.ModalityVoice: true,
}

// DateParser finds a date/time expression anywhere in text.
// ok is false when no expression was recognised.
type DateParser interface {
	Parse(text string, base time.Time) (t time.Time, ok bool)
}

// Classifier turns raw text into an Intent.
type Classifier struct {
	dates DateParser
}

// New creates a Classifier. A nil parser uses NewDateParser().
func New(dates DateParser) *Classifier {
	if dates == nil {
		dates = NewDateParser()
	}
	return &Classifier{dates: dates}
}

// Classify inspects text and decides whether it is a reminder, a search
// request or a plain chat request. now anchors relative date expressions.
func (c *Classifier) Classify(text string, now time.Time) message.Intent {
	text = strings.TrimSpace(text)

	if due, reminderText, ok := c.extractReminder(text, now); ok {
		return message.Intent{Kind: message.IntentReminder, Text: reminderText, DueAt: due}
	}

	if IsSearch(text) {
		return message.Intent{Kind: message.IntentSearch, Text: text}
	}
	return message.Intent{Kind: message.IntentChat, Text: text}
}

// extractReminder returns the due time and cleaned text when text starts with
// a reminder verb and contains a parseable date. A missing date is not an
// error: the caller falls through to search/chat.
func (c *Classifier) extractReminder(text string, now time.Time) (time.Time, string, bool) {
	lowered := strings.ToLower(text)

	triggered := false
	for _, verb := range reminderVerbs {
		if strings.HasPrefix(lowered, verb) {
			triggered = true
			break
		}
	}
	if !triggered {
		return time.Time{}, "", false
	}

	due, ok := c.dates.Parse(text, now)
	if !ok {
		return time.Time{}, "", false
	}
	return due.Truncate(time.Minute), stripVerbs(text), true
}

// stripVerbs removes every occurrence of the reminder verbs, ignoring case.
func stripVerbs(text string) string {
	for _, verb := range reminderVerbs {
		text = removeFold(text, verb)
	}
	return strings.TrimSpace(text)
}

// removeFold deletes all case-insensitive occurrences of sub from s.
// Matching is done rune by rune so Cyrillic case folding works.
func removeFold(s, sub string) string {
	src := []rune(s)
	pat := []rune(sub)
	var sb strings.Builder
	for i := 0; i < len(src); {
		if i+len(pat) <= len(src) && strings.EqualFold(string(src[i:i+len(pat)]), sub) {
			i += len(pat)
			continue
		}
		sb.WriteRune(src[i])
		i++
	}
	return sb.String()
}

// IsSearch reports whether text contains any search trigger word.
func IsSearch(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range searchTriggers {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// VoicePreferred decides whether the reply should be synthesized speech.
// It is independent of the intent. Modalities without a default never get
// voice replies.
func VoicePreferred(text string, modality message.Modality) bool {
	def, ok := voiceDefaults[modality]
	if !ok {
		return false
	}
	lowered := strings.ToLower(text)
	if def {
		return !strings.Contains(lowered, textReplyPhrase)
	}
	return strings.Contains(lowered, voiceReplyPhrase)
}
