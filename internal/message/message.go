// Package message defines the core data types flowing through the copilot pipeline.
package message

import (
	"encoding/base64"
	"time"
)

// Modality identifies how an inbound message reached the bot.
type Modality string

const (
	// ModalityText is a plain text message.
	ModalityText Modality = "text"

	// ModalityVoice is a recorded voice clip (OGG/Opus from Telegram).
	ModalityVoice Modality = "voice"

	// ModalityDocument is a file attachment. Only PDFs are processed.
	ModalityDocument Modality = "document"

	// ModalityPhoto is a compressed photo.
	ModalityPhoto Modality = "photo"

	// ModalityCommand is a slash command such as /start.
	ModalityCommand Modality = "command"
)

// Inbound represents an incoming message from any transport.
type Inbound struct {
	// ID is a unique identifier for this message (UUID).
	ID string `json:"id"`

	// OwnerID identifies the user who sent the message. Reminders are keyed by it.
	OwnerID int64 `json:"owner_id"`

	// ChatID is where replies are delivered. Equal to OwnerID in private chats.
	ChatID int64 `json:"chat_id"`

	// Modality selects the handler.
	Modality Modality `json:"modality"`

	// Text is the message body (or the command, for ModalityCommand).
	Text string `json:"text,omitempty"`

	// FileID is the transport's handle for the attached file, if any.
	FileID string `json:"file_id,omitempty"`

	// FileName is the original attachment name (documents only).
	FileName string `json:"file_name,omitempty"`

	// MimeType is the attachment MIME type as reported by the transport.
	MimeType string `json:"mime_type,omitempty"`

	// ReceivedAt is when the transport received the message.
	ReceivedAt time.Time `json:"received_at"`
}

// HasFile returns true if the message carries an attachment.
func (m *Inbound) HasFile() bool {
	return m.FileID != ""
}

// IntentKind is the classification of a user request.
type IntentKind string

const (
	IntentReminder IntentKind = "reminder"
	IntentSearch   IntentKind = "search"
	IntentChat     IntentKind = "chat"
)

// Intent is the transient result of classifying a text.
type Intent struct {
	Kind IntentKind `json:"kind"`

	// Text is the query for search/chat, or the cleaned reminder text.
	Text string `json:"text"`

	// DueAt is set for reminders only, truncated to the minute.
	DueAt time.Time `json:"due_at,omitzero"`
}

// Answer is a text reply together with the preferred output modality.
type Answer struct {
	Text           string `json:"text"`
	VoicePreferred bool   `json:"voice_preferred"`
}

// Reminder is a pending notification for one owner.
type Reminder struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	DueAt     time.Time `json:"due_at"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// OutboundKind is the type of a delivered message.
type OutboundKind string

const (
	OutboundText  OutboundKind = "text"
	OutboundVoice OutboundKind = "voice"
)

// Outbound is one message delivered to a chat.
type Outbound struct {
	ChatID  int64        `json:"chat_id"`
	Kind    OutboundKind `json:"kind"`
	Text    string       `json:"text,omitempty"`
	Caption string       `json:"caption,omitempty"`

	// Audio is the voice payload as a base64-encoded string.
	Audio string `json:"audio,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (o *Outbound) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		o.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}
