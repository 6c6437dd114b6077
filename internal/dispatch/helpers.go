package dispatch

import (
	"encoding/base64"
	"strings"
)

// imageDataURL inlines image bytes for a multimodal request. The upstream
// sniffs the real format, so the declared type is always png.
func imageDataURL(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// commandName extracts "start" from "/start", "/start@bot" or "/start payload".
func commandName(text string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name = strings.TrimPrefix(name, "/")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}
