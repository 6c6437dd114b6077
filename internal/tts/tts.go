// Package tts defines the interface for text-to-speech synthesis.
//
// Copilot uses TTS to answer voice messages with voice. The OpenAI provider
// returns OGG/Opus that Telegram accepts directly; the Piper backend returns
// WAV, which the renderer converts before delivery.
package tts

import "context"

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice overrides the configured voice.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates audio for the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the encoded audio file.
	Audio []byte

	// ContentType is the MIME type of the audio ("audio/ogg" or "audio/wav").
	ContentType string
}

// IsWAV reports whether the result needs converting before it can be sent as
// a voice message.
func (r *SynthesizeResult) IsWAV() bool {
	return r.ContentType == "audio/wav" || r.ContentType == "audio/x-wav"
}
